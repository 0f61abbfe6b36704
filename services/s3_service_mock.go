package services

import (
	"fmt"
	"mime/multipart"
	"sync"
)

// MockS3Service is an in-memory S3Interface for testing
type MockS3Service struct {
	mu          sync.Mutex
	Uploaded    []string
	Deleted     []string
	UploadError error
	DeleteError error
}

// NewMockS3Service creates an empty mock service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{}
}

// UploadFile records the upload and returns a fake public URL, or the
// configured failure
func (m *MockS3Service) UploadFile(fileHeader *multipart.FileHeader, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadError != nil {
		return "", m.UploadError
	}
	key := fmt.Sprintf("%s/%s", prefix, fileHeader.Filename)
	m.Uploaded = append(m.Uploaded, key)
	return "https://mock-bucket.s3.us-east-1.amazonaws.com/" + key, nil
}

// DeleteFile records the deletion, or returns the configured failure
func (m *MockS3Service) DeleteFile(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.Deleted = append(m.Deleted, key)
	return nil
}
