package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/manga-store/manga-store-api/config"
)

// Auth0UserInfo is the subset of Auth0's /userinfo response we care about
type Auth0UserInfo struct {
	Sub   string `json:"sub"` // Auth0 user ID
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Auth0Service handles interactions with the Auth0 API
type Auth0Service struct {
	domain     string
	httpClient *http.Client
}

// NewAuth0Service creates a new Auth0 service instance
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	return &Auth0Service{
		domain: cfg.Auth0Domain,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetUserInfo fetches the caller's profile from Auth0's /userinfo endpoint
// using their access token.
func (s *Auth0Service) GetUserInfo(accessToken string) (*Auth0UserInfo, error) {
	// The domain may carry a protocol already (tests point it at a local
	// httptest server).
	endpoint := s.domain
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	endpoint += "/userinfo"

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	return &userInfo, nil
}
