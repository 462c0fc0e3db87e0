package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
	"resumescreener/internal/utils"
)

// ObjectPutter is the part of the S3 client used for retention
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 retains uploads as objects under prefix/<batch>/<uuid>-<name>
type S3 struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *errors.Logger
}

// NewS3 builds an S3 client. A custom endpoint (R2, MinIO) switches to
// path-style addressing; static keys override the default credential chain.
func NewS3(ctx context.Context, cfg config.S3StorageConfig, logger *errors.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "storage.s3.bucket is required for the s3 policy", nil)
	}
	if logger == nil {
		logger = errors.Discard()
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 retention enabled",
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"endpoint", cfg.Endpoint,
		"region", region)

	return NewS3WithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3WithClient wraps an existing client
func NewS3WithClient(client ObjectPutter, bucket, prefix string, logger *errors.Logger) *S3 {
	if logger == nil {
		logger = errors.Discard()
	}
	return &S3{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (s *S3) Policy() string { return config.StoragePolicyS3 }

// Retain uploads a copy of upload and returns its s3:// location
func (s *S3) Retain(ctx context.Context, batchID string, upload types.Upload) (string, error) {
	key := objectKey(s.prefix, batchID, upload.FileName)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(upload.Data),
		ContentLength: aws.Int64(int64(len(upload.Data))),
		Metadata: map[string]string{
			"batch-id":      batchID,
			"original-name": utils.SanitizeFileName(upload.FileName),
		},
	}
	if contentType := mime.TypeByExtension(utils.GetFileExtension(upload.FileName)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to upload resume to S3", err).
			WithContext("bucket", s.bucket).
			WithContext("key", key)
	}

	s.logger.Debug("Upload retained", "bucket", s.bucket, "key", key, "size", len(upload.Data))
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func objectKey(prefix, batchID, fileName string) string {
	return path.Join(prefix, utils.SanitizeFileName(batchID), uuid.NewString()+"-"+utils.SanitizeFileName(fileName))
}
