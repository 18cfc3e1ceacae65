package testhelpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/mealbyme/backend/internal/service"
)

// FakeGenerationClient is a scripted assistant service. GetRun walks
// through Statuses and then keeps returning the last one.
type FakeGenerationClient struct {
	mu       sync.Mutex
	Statuses []string
	Output   string
	Err      error

	Messages    []string
	Assistants  []string
	GetRunCalls int
	threads     int
	runs        int
}

func NewFakeGenerationClient(output string, statuses ...string) *FakeGenerationClient {
	if len(statuses) == 0 {
		statuses = []string{"completed"}
	}
	return &FakeGenerationClient{Statuses: statuses, Output: output}
}

func (f *FakeGenerationClient) CreateThread(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.threads++
	return fmt.Sprintf("thread_%d", f.threads), nil
}

func (f *FakeGenerationClient) AddMessage(_ context.Context, _ string, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, content)
	return nil
}

func (f *FakeGenerationClient) StartRun(_ context.Context, _ string, assistantID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	f.Assistants = append(f.Assistants, assistantID)
	return fmt.Sprintf("run_%d", f.runs), nil
}

func (f *FakeGenerationClient) GetRun(_ context.Context, threadID, runID string) (*service.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.GetRunCalls
	if idx >= len(f.Statuses) {
		idx = len(f.Statuses) - 1
	}
	f.GetRunCalls++
	return &service.Run{ID: runID, ThreadID: threadID, Status: f.Statuses[idx]}, nil
}

func (f *FakeGenerationClient) LatestMessage(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Output, nil
}

// Calls returns how many times GetRun was called.
func (f *FakeGenerationClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetRunCalls
}

// MockBillingProvider is a testify mock of service.BillingProvider.
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) FindCustomerByEmail(ctx context.Context, email string) (string, bool, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockBillingProvider) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, email, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, params service.CheckoutParams) (*service.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if s, ok := args.Get(0).(*service.CheckoutSession); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBillingProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}
