package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Region        string
	BaseEndpoint  string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// S3Storage keeps objects in one bucket of an S3-compatible store (MinIO in
// development) and serves them from PublicBaseURL.
type S3Storage struct {
	client        objectAPI
	bucket        string
	publicBaseURL string
	now           func() time.Time
}

func NewS3Storage(ctx context.Context, c S3Config) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:        client,
		bucket:        c.Bucket,
		publicBaseURL: strings.TrimSuffix(c.PublicBaseURL, "/"),
		now:           time.Now,
	}, nil
}

// objectKey returns avatars/YYYY/MM/DD/<uuid><ext>.
func (s *S3Storage) objectKey(filename string) string {
	d := s.now().UTC()
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("avatars/%04d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *S3Storage) Upload(ctx context.Context, u Upload) (*Asset, error) {
	if u.Body == nil {
		return nil, fmt.Errorf("%w: no file to upload", common.ErrValidation)
	}

	key := s.objectKey(u.Filename)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   u.Body,
	}
	if u.ContentType != "" {
		in.ContentType = aws.String(u.ContentType)
	}
	if u.Size > 0 {
		in.ContentLength = aws.Int64(u.Size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &Asset{URL: s.publicBaseURL + "/" + key, PublicID: key}, nil
}

func (s *S3Storage) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", publicID, err)
	}
	return nil
}

func (s *S3Storage) PublicID(url string) string {
	prefix := s.publicBaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
