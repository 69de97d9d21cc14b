package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store keeps artifacts in an S3 bucket and hands out presigned GET URLs
// whose lifetime matches the result TTL.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	urlExpiry time.Duration
}

// S3Options configures the S3 artifact backend.
type S3Options struct {
	Bucket    string
	Region    string
	Prefix    string
	URLExpiry time.Duration
}

// NewS3Store creates an S3 artifact store using the default AWS credential
// chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("artifact: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		urlExpiry: opts.URLExpiry,
	}, nil
}

var _ Store = (*S3Store)(nil)

func (s *S3Store) Save(ctx context.Context, jobID string, data []byte) (string, error) {
	key := s.key(jobID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("artifact: put object %s: %w", key, err)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("artifact: presign object %s: %w", key, err)
	}

	return presigned.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, jobID string) error {
	key := s.key(jobID)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("artifact: delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) key(jobID string) string {
	return path.Join(s.prefix, jobID+".png")
}
