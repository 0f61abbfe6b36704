package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appConfig "github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/utils"
)

// S3Interface defines the interface for object storage operations
type S3Interface interface {
	UploadFile(fileHeader *multipart.FileHeader, prefix string) (string, error)
	DeleteFile(key string) error
}

// S3Service uploads media to an S3 bucket and returns public URLs
type S3Service struct {
	client *s3.Client
	bucket string
	region string
}

var s3ServiceInstance S3Interface

// InitS3Service initializes the S3 service with AWS credentials
func InitS3Service() (S3Interface, error) {
	cfg := appConfig.GetConfig()

	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig)

	s3ServiceInstance = &S3Service{
		client: client,
		bucket: cfg.AWSS3Bucket,
		region: cfg.AWSRegion,
	}

	return s3ServiceInstance, nil
}

// GetS3Service returns the initialized S3 service instance
func GetS3Service() S3Interface {
	return s3ServiceInstance
}

// SetS3Service sets the S3 service instance (primarily for testing)
func SetS3Service(service S3Interface) {
	s3ServiceInstance = service
}

// UploadFile uploads a file to S3 under the given key prefix and returns the
// public object URL.
func (s *S3Service) UploadFile(fileHeader *multipart.FileHeader, prefix string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("warning: failed to close file: %v", closeErr)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	// Key format: <prefix>/<timestamp>_<filename>
	timestamp := time.Now().Unix()
	filename := filepath.Base(fileHeader.Filename)
	key := fmt.Sprintf("%s/%d_%s", prefix, timestamp, filename)

	_, err = s.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(utils.ContentTypeFor(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// DeleteFile deletes an object from S3
func (s *S3Service) DeleteFile(key string) error {
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// StoreMedia uploads a validated file to object storage, falling back to the
// local upload directory when the upload fails. Returns a URL the client can
// use either way.
func StoreMedia(fileHeader *multipart.FileHeader, prefix string) (string, error) {
	if svc := GetS3Service(); svc != nil {
		url, err := svc.UploadFile(fileHeader, prefix)
		if err == nil {
			return url, nil
		}
		log.Printf("Object storage upload failed, falling back to local disk: %v", err)
	}

	cfg := appConfig.GetConfig()
	uploadDir := utils.UploadDir
	if cfg != nil && cfg.UploadDir != "" {
		uploadDir = cfg.UploadDir
	}

	filename, err := utils.SaveUploadedFile(fileHeader, uploadDir)
	if err != nil {
		return "", fmt.Errorf("failed to store media locally: %w", err)
	}
	return utils.GetImageURL(filename), nil
}
