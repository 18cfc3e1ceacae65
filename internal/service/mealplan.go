package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/metrics"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// Poll outcome statuses reported to the browser.
const (
	OutcomeProcessing    = "processing"
	OutcomeMaterializing = "materializing"
	OutcomeReady         = "ready"
)

// PollOutcome is the result of one browser poll. MealPlan is set once the
// plan is ready.
type PollOutcome struct {
	Status     string           `json:"status"`
	MealPlanID uuid.UUID        `json:"mealPlanId"`
	MealPlan   *models.MealPlan `json:"mealPlan,omitempty"`
}

// MealPlanService runs the submit/poll/materialize protocol for meal plans.
type MealPlanService struct {
	db            *gorm.DB
	client        GenerationClient
	poller        *Poller
	materializer  *Materializer
	ledger        JobLedger
	archive       PayloadArchive
	subscriptions *SubscriptionService
	assistantID   string
	log           *zap.Logger
}

// MealPlanDeps groups the collaborators of a MealPlanService.
type MealPlanDeps struct {
	DB            *gorm.DB
	Client        GenerationClient
	Poller        *Poller
	Materializer  *Materializer
	Ledger        JobLedger
	Archive       PayloadArchive
	Subscriptions *SubscriptionService
	AssistantID   string
	Logger        *zap.Logger
}

func NewMealPlanService(d MealPlanDeps) *MealPlanService {
	if d.Archive == nil {
		d.Archive = NopArchive{}
	}
	if d.Ledger == nil {
		d.Ledger = NewMemoryJobLedger()
	}
	return &MealPlanService{
		db:            d.DB,
		client:        d.Client,
		poller:        d.Poller,
		materializer:  d.Materializer,
		ledger:        d.Ledger,
		archive:       d.Archive,
		subscriptions: d.Subscriptions,
		assistantID:   d.AssistantID,
		log:           d.Logger,
	}
}

// Submit starts a generation run. A full request inserts a provisional
// plan before the run is known to succeed; a swap request reuses the plan
// it names.
func (s *MealPlanService) Submit(ctx context.Context, userID uuid.UUID, req types.SubmitMealPlanRequest) (*types.SubmitMealPlanResponse, error) {
	start, err := validateSubmit(req)
	if err != nil {
		return nil, err
	}

	subscribed, err := s.subscriptions.IsActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !IsFeatureAvailable(FeatureMealPlanning, subscribed) {
		return nil, apperrors.Forbidden("Meal planning requires an active subscription")
	}

	if req.FitnessGoal != nil && *req.FitnessGoal == "" {
		req.FitnessGoal = nil
	}
	prompt := MealPlanPrompt{
		Servings:            req.Servings,
		DietaryNeeds:        req.DietaryNeeds,
		FitnessGoal:         req.FitnessGoal,
		DislikedIngredients: req.DislikedIngredients,
	}

	var existing *models.MealPlan
	if req.SwapMeal != nil {
		existing, err = s.owned(ctx, userID, *req.MealPlanID)
		if err != nil {
			return nil, err
		}
		if existing.Status != models.MealPlanReady {
			return nil, apperrors.Validation("Meal plan is still being generated")
		}
		prompt = MealPlanPrompt{
			Servings:            existing.Servings,
			DietaryNeeds:        existing.DietaryNeeds,
			FitnessGoal:         existing.FitnessGoal,
			DislikedIngredients: existing.DislikedIngredients,
			Swap:                req.SwapMeal,
		}
	}

	threadID, err := s.client.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.client.AddMessage(ctx, threadID, BuildMealPlanPrompt(prompt)); err != nil {
		return nil, err
	}
	runID, err := s.client.StartRun(ctx, threadID, s.assistantID)
	if err != nil {
		return nil, err
	}

	kind := "meal_plan"
	planID := uuid.Nil
	if existing != nil {
		kind = "swap"
		planID = existing.ID
	} else {
		startDate, endDate := models.PlanWindow(start)
		plan := models.MealPlan{
			UserID:              userID,
			StartDate:           startDate,
			EndDate:             endDate,
			Servings:            req.Servings,
			DietaryNeeds:        datatypes.JSONSlice[string](nonNil(req.DietaryNeeds)),
			FitnessGoal:         req.FitnessGoal,
			DislikedIngredients: datatypes.JSONSlice[string](nonNil(req.DislikedIngredients)),
			Status:              models.MealPlanProcessing,
		}
		if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
			return nil, apperrors.Storage("Failed to create meal plan", err)
		}
		planID = plan.ID
	}

	job := GenerationJob{ThreadID: threadID, MealPlanID: planID, Swap: req.SwapMeal}
	if err := s.ledger.Bind(ctx, runID, job); err != nil {
		return nil, apperrors.Storage("Failed to record generation job", err)
	}
	metrics.GenerationSubmissions.WithLabelValues(kind).Inc()

	s.log.Info("meal plan generation submitted",
		zap.String("meal_plan_id", planID.String()),
		zap.String("thread_id", threadID),
		zap.String("run_id", runID),
		zap.String("kind", kind),
	)

	return &types.SubmitMealPlanResponse{
		MealPlanID: planID,
		ThreadID:   threadID,
		RunID:      runID,
		Status:     OutcomeProcessing,
	}, nil
}

// Poll advances the job by one step. The run must have been submitted for
// the polled plan; a swap run replaces the slot recorded at submit time.
// Completed runs are materialized once; failed, timed out and rejected runs
// leave the store untouched and are forgotten.
func (s *MealPlanService) Poll(ctx context.Context, userID uuid.UUID, req types.PollMealPlanRequest) (*PollOutcome, error) {
	if strings.TrimSpace(req.ThreadID) == "" || strings.TrimSpace(req.RunID) == "" {
		return nil, apperrors.Validation("threadId and runId are required")
	}

	plan, err := s.owned(ctx, userID, req.MealPlanID)
	if err != nil {
		return nil, err
	}

	job, err := s.ledger.Lookup(ctx, req.RunID)
	if err != nil {
		return nil, apperrors.Storage("Failed to read job state", err)
	}
	if job == nil || job.MealPlanID != plan.ID || job.ThreadID != req.ThreadID {
		return nil, apperrors.NotFound("Generation job not found")
	}
	swap := job.Swap
	if requested := req.Swap(); requested != nil && (swap == nil || *requested != *swap) {
		return nil, apperrors.Validation("Swap slot does not match the submitted job")
	}

	done, err := s.ledger.IsDone(ctx, req.RunID)
	if err != nil {
		return nil, apperrors.Storage("Failed to read job state", err)
	}
	if done || (swap == nil && plan.Status == models.MealPlanReady) {
		return s.ready(ctx, plan.ID)
	}

	attempt, err := s.ledger.RecordAttempt(ctx, req.RunID)
	if err != nil {
		return nil, apperrors.Storage("Failed to record poll attempt", err)
	}

	result, err := s.poller.Step(ctx, req.ThreadID, req.RunID, attempt)
	if err != nil {
		if result != nil && result.State.Terminal() {
			s.forget(ctx, req.RunID)
		}
		return nil, err
	}
	if !result.State.Terminal() {
		return &PollOutcome{Status: OutcomeProcessing, MealPlanID: plan.ID}, nil
	}

	claimed, err := s.ledger.Claim(ctx, req.RunID)
	if err != nil {
		return nil, apperrors.Storage("Failed to claim job", err)
	}
	if !claimed {
		return &PollOutcome{Status: OutcomeMaterializing, MealPlanID: plan.ID}, nil
	}

	payload, err := ParseMealPlanPayload(result.Output, swap)
	if err != nil {
		s.log.Warn("rejected generated meal plan",
			zap.String("meal_plan_id", plan.ID.String()),
			zap.String("run_id", req.RunID),
			zap.Error(err),
		)
		if archiveErr := s.archive.Archive(ctx, FailureKey(plan.ID, req.RunID), []byte(result.Output)); archiveErr != nil {
			s.log.Error("failed to archive rejected payload", zap.Error(archiveErr))
		}
		s.forget(ctx, req.RunID)
		return nil, err
	}

	aggregate, err := s.materializer.Materialize(ctx, plan.ID, payload, swap)
	if err != nil {
		s.release(ctx, req.RunID)
		return nil, err
	}
	if err := s.ledger.MarkDone(ctx, req.RunID); err != nil {
		s.log.Warn("failed to mark run done", zap.String("run_id", req.RunID), zap.Error(err))
	}
	return &PollOutcome{Status: OutcomeReady, MealPlanID: plan.ID, MealPlan: aggregate}, nil
}

// Get returns the full aggregate of one of the user's plans.
func (s *MealPlanService) Get(ctx context.Context, userID, planID uuid.UUID) (*models.MealPlan, error) {
	if _, err := s.owned(ctx, userID, planID); err != nil {
		return nil, err
	}
	return LoadAggregate(ctx, s.db, planID)
}

// List returns the user's plans, newest first, without their items.
func (s *MealPlanService) List(ctx context.Context, userID uuid.UUID) ([]models.MealPlan, error) {
	var plans []models.MealPlan
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&plans).Error
	if err != nil {
		return nil, apperrors.Storage("Failed to fetch meal plans", err)
	}
	return plans, nil
}

func (s *MealPlanService) ready(ctx context.Context, planID uuid.UUID) (*PollOutcome, error) {
	aggregate, err := LoadAggregate(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	return &PollOutcome{Status: OutcomeReady, MealPlanID: planID, MealPlan: aggregate}, nil
}

func (s *MealPlanService) release(ctx context.Context, runID string) {
	if err := s.ledger.Release(ctx, runID); err != nil {
		s.log.Warn("failed to release job claim", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *MealPlanService) forget(ctx context.Context, runID string) {
	if err := s.ledger.Forget(ctx, runID); err != nil {
		s.log.Warn("failed to forget run", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *MealPlanService) owned(ctx context.Context, userID, planID uuid.UUID) (*models.MealPlan, error) {
	if planID == uuid.Nil {
		return nil, apperrors.Validation("mealPlanId is required")
	}
	var plan models.MealPlan
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", planID, userID).First(&plan).Error
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NotFound("Meal plan not found")
		}
		return nil, apperrors.Storage("Failed to load meal plan", err)
	}
	return &plan, nil
}

func validateSubmit(req types.SubmitMealPlanRequest) (time.Time, error) {
	if req.SwapMeal != nil {
		if req.MealPlanID == nil || *req.MealPlanID == uuid.Nil {
			return time.Time{}, apperrors.Validation("mealPlanId is required to swap a meal")
		}
		return time.Time{}, validateSwap(req.SwapMeal)
	}

	if req.Servings <= 0 {
		return time.Time{}, apperrors.Validation("Servings must be a positive number")
	}
	if req.FitnessGoal != nil && *req.FitnessGoal != "" && !types.IsFitnessGoal(*req.FitnessGoal) {
		return time.Time{}, apperrors.Validation("Fitness goal must be one of weight_loss, muscle_gain or maintenance")
	}
	start, err := time.Parse(models.DateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		return time.Time{}, apperrors.Validation("startDate must be a date in YYYY-MM-DD format")
	}
	return start, nil
}

func validateSwap(swap *types.SwapMeal) error {
	if swap.Day < 1 || swap.Day > types.PlanDays {
		return apperrors.Validation("Swap day must be between 1 and 3")
	}
	if !types.IsMealType(swap.MealType) {
		return apperrors.Validation("Swap meal type must be breakfast, lunch, dinner or snack")
	}
	return nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
