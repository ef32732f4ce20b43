package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/harrisonoakess/aluehealth-backend/utils"
)

// ObjectStore is the slice of StorageService the pipeline depends on.
type ObjectStore interface {
	UploadMealImage(ctx context.Context, accountID, mealID string, data []byte, mime string) (path string, storedMime string, err error)
	SignedImageURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// StorageService writes meal photos to a private bucket and hands out
// time-limited read URLs.
type StorageService struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewStorageService(ctx context.Context, bucket, region string) (*StorageService, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION") // fallback
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config for S3: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &StorageService{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

// UploadMealImage writes to {accountId}/{mealId}.{ext}. PutObject overwrites
// an existing key, so re-running a failed confirm reuses the same object
// instead of orphaning the old one.
func (s *StorageService) UploadMealImage(ctx context.Context, accountID, mealID string, data []byte, mime string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s/%s.%s", accountID, mealID, utils.ExtensionForMime(mime))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		return "", "", &UploadFailedError{Err: err}
	}
	return key, mime, nil
}

func (s *StorageService) SignedImageURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}
