package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayloadArchive keeps assistant output that failed validation so it can be
// inspected later. Archiving never affects the caller's outcome.
type PayloadArchive interface {
	Archive(ctx context.Context, key string, body []byte) error
}

// FailureKey names the archived payload of a failed run.
func FailureKey(planID uuid.UUID, runID string) string {
	return fmt.Sprintf("generation-failures/%s/%s.json", planID, runID)
}

// S3PayloadArchive writes payloads to an S3 bucket.
type S3PayloadArchive struct {
	client *s3.Client
	bucket string
	log    *zap.Logger
}

func NewS3PayloadArchive(client *s3.Client, bucket string, log *zap.Logger) *S3PayloadArchive {
	return &S3PayloadArchive{client: client, bucket: bucket, log: log}
}

func (a *S3PayloadArchive) Archive(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive payload: %w", err)
	}
	a.log.Info("archived rejected payload", zap.String("bucket", a.bucket), zap.String("key", key))
	return nil
}

// NopArchive drops payloads. Used when no bucket is configured.
type NopArchive struct{}

func (NopArchive) Archive(context.Context, string, []byte) error { return nil }
