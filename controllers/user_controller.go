package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/middleware"
	"github.com/manga-store/manga-store-api/models"
	"github.com/manga-store/manga-store-api/services"
	"github.com/manga-store/manga-store-api/utils"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	FirstName string `json:"first_name" binding:"omitempty"`
	LastName  string `json:"last_name" binding:"omitempty"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"omitempty"`
	Address   string `json:"address" binding:"omitempty"`
}

// CreateUser handles POST /api/v1/users - creates a new user from Auth0 userinfo
// This endpoint requires authentication and fetches user data from Auth0's /userinfo endpoint
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
		return
	}

	cfg := config.GetConfig()
	auth0Service := services.NewAuth0Service(cfg)
	userInfo, err := auth0Service.GetUserInfo(accessToken)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
		return
	}

	if userInfo.Email == "" {
		respondError(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0")
		return
	}
	if userInfo.Name == "" {
		respondError(c, http.StatusBadRequest, "MISSING_NAME", "Name not provided by Auth0")
		return
	}

	firstName, lastName := splitName(userInfo.Name)

	// Admin role can only come through the Auth0 role claim at bootstrap;
	// everything else defaults to a regular customer.
	isAdmin := false
	if claims, err := middleware.GetClaims(c); err == nil {
		if customClaims, ok := claims.CustomClaims.(*middleware.CustomClaims); ok {
			isAdmin = customClaims.Role == "admin"
		}
	}

	user := models.User{
		Auth0ID:   auth0ID,
		Email:     userInfo.Email,
		FirstName: firstName,
		LastName:  lastName,
		IsAdmin:   isAdmin,
		IsActive:  true,
	}

	db := config.GetDB()
	if err := db.Create(&user).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "USER_EXISTS", "A user with this Auth0 ID or email already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user")
		return
	}

	respondData(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's profile
func UpdateMyProfile(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	updates := make(map[string]interface{})
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Address != "" {
		updates["address"] = req.Address
	}

	if len(updates) == 0 {
		respondData(c, http.StatusOK, user)
		return
	}

	db := config.GetDB()
	if err := db.Model(user).Updates(updates).Error; err != nil {
		if isDuplicateKeyError(err) {
			respondError(c, http.StatusConflict, "EMAIL_EXISTS", "A user with this email already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user profile")
		return
	}

	if err := db.First(user, user.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated profile")
		return
	}

	respondData(c, http.StatusOK, user)
}

// UpdateMyProfilePicture handles POST /api/v1/users/me/picture - uploads a
// new profile picture through object storage with a local fallback
func UpdateMyProfilePicture(c *gin.Context) {
	user, ok := findUserByToken(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("profile_picture")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "profile_picture file is required")
		return
	}

	if err := utils.ValidateImageFile(fileHeader); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}

	imageURL, err := services.StoreMedia(fileHeader, "profiles")
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to store profile picture")
		return
	}

	db := config.GetDB()
	if err := db.Model(user).Update("profile_picture", imageURL).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update profile picture")
		return
	}
	user.ProfilePicture = imageURL

	respondData(c, http.StatusOK, user)
}

// findUserByToken loads the caller's user row from the JWT sub claim.
// Writes the error response itself and returns false when unavailable.
func findUserByToken(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		return nil, false
	}
	return &user, true
}

// isDuplicateKeyError detects unique constraint violations from both
// PostgreSQL and SQLite error strings
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique")
}

// splitName splits an Auth0 display name into first and last parts
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return name, ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
