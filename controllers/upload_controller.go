package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/services"
	"github.com/manga-store/manga-store-api/utils"
)

// AdminUploadImage handles POST /api/v1/admin/uploads - stores a catalog
// image through object storage with a local fallback and returns its URL
func AdminUploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "image file is required")
		return
	}

	if err := utils.ValidateImageFile(fileHeader); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}

	prefix := c.DefaultPostForm("prefix", "catalog")
	imageURL, err := services.StoreMedia(fileHeader, prefix)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to store image")
		return
	}

	if actor, ok := middleware.CurrentUser(c); ok {
		services.LogActivity(config.GetDB(), actor, "upload.image", imageURL)
	}

	respondData(c, http.StatusCreated, gin.H{"url": imageURL})
}

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves images
// saved through the local storage fallback
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Filename is required")
		return
	}

	// Directory traversal guard
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		respondError(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	}

	contentType := utils.ContentTypeFor(filename)
	if contentType == "" {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Unsupported file type")
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		respondError(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}
