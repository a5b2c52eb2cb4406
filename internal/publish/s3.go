package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/rates"
)

// Config describes the bucket the snapshot is mirrored to. Endpoint is
// optional and selects an S3-compatible service (R2, MinIO).
type Config struct {
	Bucket    string
	Key       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotMirror uploads the JSON snapshot after every refresh.
type SnapshotMirror struct {
	client        putter
	bucket        string
	key           string
	snapshotPath  string
	uploadTimeout time.Duration
}

func NewSnapshotMirror(ctx context.Context, cfg Config, snapshotPath string) (*SnapshotMirror, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newSnapshotMirror(client, cfg, snapshotPath), nil
}

func newSnapshotMirror(client putter, cfg Config, snapshotPath string) *SnapshotMirror {
	return &SnapshotMirror{
		client:        client,
		bucket:        cfg.Bucket,
		key:           cfg.Key,
		snapshotPath:  snapshotPath,
		uploadTimeout: 30 * time.Second,
	}
}

func (m *SnapshotMirror) NotifyRefresh(ctx context.Context, res *rates.Result) error {
	return m.Upload(ctx)
}

// Upload copies the current snapshot file to the bucket.
func (m *SnapshotMirror) Upload(ctx context.Context) error {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, m.uploadTimeout)
	defer cancel()

	_, err = m.client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	logger.Component("publish").Info().
		Str("bucket", m.bucket).
		Str("key", m.key).
		Int("bytes", len(data)).
		Msg("snapshot mirrored")
	return nil
}
