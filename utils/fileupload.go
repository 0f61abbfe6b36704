package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxFileSize is 5MB in bytes
const MaxFileSize = 5 * 1024 * 1024

// UploadDir is the directory where uploaded files are stored when object
// storage is unavailable. Can be overridden for testing.
var UploadDir = "./uploads"

// allowedImageExtensions are the image formats accepted for uploads
var allowedImageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only png, jpg, jpeg, gif, webp and svg files are allowed",
		}
	}

	return nil
}

// ContentTypeFor returns the MIME type for an allowed image filename,
// defaulting to application/octet-stream.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType, ok := allowedImageExtensions[ext]; ok {
		return contentType
	}
	return "application/octet-stream"
}

// SaveUploadedFile saves the uploaded file to the local filesystem
// Returns the generated filename
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir string) (filename string, err error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Timestamp prefix prevents collisions between same-named uploads
	filename = fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(fileHeader.Filename))
	fullPath := filepath.Join(uploadDir, filename)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			fmt.Printf("warning: failed to close source file: %v\n", closeErr)
		}
	}()

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filename, nil
}

// GetImageURL returns the URL path for accessing a locally stored upload
func GetImageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}
