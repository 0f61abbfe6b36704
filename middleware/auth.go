package middleware

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"

	"github.com/manga-store/manga-store-api/config"
	"github.com/manga-store/manga-store-api/models"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string `json:"scope"`
	Role  string `json:"https://mangastore.example/role"`
}

// Validate does nothing here, but is needed to satisfy the
// validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// HasScope checks whether our claims have a specific scope.
func (c CustomClaims) HasScope(expectedScope string) bool {
	result := strings.Split(c.Scope, " ")
	for i := range result {
		if result[i] == expectedScope {
			return true
		}
	}

	return false
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		log.Fatalf("Failed to parse the issuer url: %v", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			// Store the validated claims in Gin context
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			// Extract user_id from sub claim
			userID := token.RegisteredClaims.Subject
			c.Set("user_id", userID)
			c.Set("validated_claims", token)

			// Keep the raw token around for Auth0 userinfo calls
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				c.Set("access_token", strings.TrimPrefix(authHeader, "Bearer "))
			}

			c.Next()
		}

		// Use the JWT middleware to check the token
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetAccessToken extracts the raw access token from the Gin context
func GetAccessToken(c *gin.Context) (string, error) {
	token, exists := c.Get("access_token")
	if !exists {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	tokenStr, ok := token.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_TOKEN", Message: "Access token is not a string"}
	}

	return tokenStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get("validated_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// RequireAdmin loads the authenticated admin from the database and checks
// the named permission. Super admins bypass permission checks entirely; when
// permission is empty, any active admin passes. The loaded user is stored in
// the context under "current_user".
func RequireAdmin(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadCurrentUser(c)
		if !ok {
			return
		}

		if !user.IsActive {
			abortForbidden(c, "Account is disabled")
			return
		}
		if !user.IsAdmin && !user.IsSuperAdmin {
			abortForbidden(c, "Admin access required")
			return
		}
		if permission != "" && !user.HasPermission(permission) {
			abortForbidden(c, "Insufficient permissions to access this resource")
			return
		}

		c.Set("current_user", user)
		c.Next()
	}
}

// RequireDeliverer loads the authenticated courier from the database and
// stores it in the context under "current_deliverer".
func RequireDeliverer() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			c.Abort()
			return
		}

		var deliverer models.Deliverer
		if err := config.GetDB().Where("auth0_id = ?", auth0ID).First(&deliverer).Error; err != nil {
			abortForbidden(c, "Courier access required")
			return
		}
		if !deliverer.IsActive {
			abortForbidden(c, "Account is disabled")
			return
		}

		c.Set("current_deliverer", &deliverer)
		c.Next()
	}
}

// CurrentUser returns the admin user loaded by RequireAdmin
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("current_user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// CurrentDeliverer returns the courier loaded by RequireDeliverer
func CurrentDeliverer(c *gin.Context) (*models.Deliverer, bool) {
	value, exists := c.Get("current_deliverer")
	if !exists {
		return nil, false
	}
	deliverer, ok := value.(*models.Deliverer)
	return deliverer, ok
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func loadCurrentUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		c.Abort()
		return nil, false
	}

	var user models.User
	if err := config.GetDB().Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		c.Abort()
		return nil, false
	}
	return &user, true
}

func abortForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "FORBIDDEN",
			"message": message,
		},
	})
	c.Abort()
}
