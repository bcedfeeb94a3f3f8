package immutablestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/twinfoundation/auditable-item-stream/internal/ids"
)

// S3Store writes credential blobs to S3 under
// <prefix>/credentials/<id>.jwt, adapting S3Archiver's bucket/prefix key
// layout but without date sharding and keyed by a generated opaque id
// instead of an event id, since a credential blob has no identity of
// its own until it's stored.
type S3Store struct {
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Store creates an S3Store. Credentials are resolved from the
// environment the way NewS3Archiver does (AWS_REGION,
// AWS_PROFILE, AWS_ACCESS_KEY_ID/SECRET, or an attached role).
func NewS3Store(ctx context.Context, bucket string, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("immutablestore: bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("immutablestore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (s *S3Store) objectKey(id string) string {
	return path.Join(s.prefix, "credentials", id+".jwt")
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, blob []byte) (string, error) {
	id, err := ids.New()
	if err != nil {
		return "", fmt.Errorf("immutablestore: generate id: %w", err)
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.objectKey(id)),
		Body:                 bytes.NewReader(blob),
		ContentType:          aws.String("application/jwt"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("immutablestore: s3 upload: %w", err)
	}
	return id, nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, id string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("immutablestore: s3 get: %w", err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("immutablestore: read s3 body: %w", err)
	}
	return b, nil
}

// Remove implements Store.
func (s *S3Store) Remove(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("immutablestore: s3 delete: %w", err)
	}
	return nil
}
