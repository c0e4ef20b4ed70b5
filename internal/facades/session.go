package facades

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

// SessionHTTPFacade talks to the console session and captcha endpoints.
type SessionHTTPFacade struct {
	api apiClient
}

// NewSessionHTTPFacade creates a new facade for the console at baseURL.
func NewSessionHTTPFacade(baseURL string, client *http.Client) *SessionHTTPFacade {
	return &SessionHTTPFacade{api: newAPIClient(baseURL, client)}
}

// Login opens a session with the given credential.
func (f *SessionHTTPFacade) Login(ctx context.Context, cred models.LoginCredential) (*models.Profile, error) {
	var profile models.Profile
	if err := f.api.do(ctx, http.MethodPost, SessionPath, cred, &profile); err != nil {
		logger.Log.Errorw("login request failed", "username", cred.Username, "error", err)
		return nil, err
	}
	return &profile, nil
}

// GetCode fetches a new captcha challenge.
func (f *SessionHTTPFacade) GetCode(ctx context.Context) (*models.Captcha, error) {
	var captcha models.Captcha
	if err := f.api.do(ctx, http.MethodGet, CaptchaPath, nil, &captcha); err != nil {
		logger.Log.Errorw("captcha request failed", "error", err)
		return nil, err
	}
	return &captcha, nil
}
