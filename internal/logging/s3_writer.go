package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"central_logger/internal/models"
	"central_logger/internal/utils"
)

// PutObjectAPI is the subset of *s3.Client used by S3Writer
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the archive bucket
type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string // e.g. "archive/"
	PodName  string // distinguishes writers in multi-pod deployments
	Endpoint string // optional, for S3-compatible stores such as MinIO
}

// S3Writer handles writing batches of workflow logs to S3
type S3Writer struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	podName string
	now     func() time.Time
	logger  *utils.Logger
}

// NewS3Writer creates an S3 writer from the default AWS credential chain
func NewS3Writer(ctx context.Context, cfg S3Config) (*S3Writer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3WriterWithClient(client, cfg), nil
}

// NewS3WriterWithClient creates an S3 writer on an existing client
func NewS3WriterWithClient(client PutObjectAPI, cfg S3Config) *S3Writer {
	return &S3Writer{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		podName: cfg.PodName,
		now:     time.Now,
		logger:  utils.NewLogger("s3-writer"),
	}
}

// objectKey names a batch file, e.g.
// archive/acme/2025/12/24/collector-0-20251224-143022-123456789.jsonl
func (w *S3Writer) objectKey(tenantID string) string {
	now := w.now().UTC()
	return fmt.Sprintf("%s%s/%04d/%02d/%02d/%s-%s-%d.jsonl",
		w.prefix,
		tenantID,
		now.Year(),
		now.Month(),
		now.Day(),
		w.podName,
		now.Format("20060102-150405"),
		now.Nanosecond(),
	)
}

// WriteBatch writes one tenant's logs to S3 as a JSON Lines file and
// returns the key it was written to.
func (w *S3Writer) WriteBatch(ctx context.Context, tenantID string, logs []*models.WorkflowLog) (string, error) {
	if len(logs) == 0 {
		return "", nil
	}
	if tenantID == "" {
		return "", fmt.Errorf("tenant id is required")
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	written := 0
	for _, log := range logs {
		if log.TenantID != tenantID {
			w.logger.Error("Skipping log from another tenant", "tenant", tenantID, "log_tenant", log.TenantID, "id", log.ID)
			continue
		}
		if err := encoder.Encode(log); err != nil {
			w.logger.Error("Failed to encode log", "id", log.ID, "error", err)
			continue
		}
		written++
	}
	if written == 0 {
		return "", fmt.Errorf("no encodable logs in batch")
	}

	key := w.objectKey(tenantID)
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Info("Wrote batch to S3", "key", key, "count", written, "bytes", buf.Len())
	return key, nil
}
