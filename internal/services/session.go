package services

import (
	"context"
	"time"

	"github.com/sbilibin2017/kologin/internal/jwt"
	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

//go:generate mockgen -source=session.go -destination=mock_session.go -package=services

// SessionClient defines the remote session endpoints.
type SessionClient interface {
	Login(ctx context.Context, cred models.LoginCredential) (*models.Profile, error)
	GetCode(ctx context.Context) (*models.Captcha, error)
}

// ProfileWriter caches the profile of an opened session.
type ProfileWriter interface {
	Save(ctx context.Context, profile *models.Profile, ttl time.Duration) error
}

// SessionService implements Sessioner on top of the console API and a profile cache.
type SessionService struct {
	client     SessionClient
	profiles   ProfileWriter
	defaultTTL time.Duration
	now        func() time.Time
}

// NewSessionService creates a new SessionService instance.
// defaultTTL applies to profiles whose token does not tell when it expires.
func NewSessionService(client SessionClient, profiles ProfileWriter, defaultTTL time.Duration) *SessionService {
	return &SessionService{
		client:     client,
		profiles:   profiles,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Login opens a session.
func (svc *SessionService) Login(ctx context.Context, cred models.LoginCredential) (*models.Profile, error) {
	return svc.client.Login(ctx, cred)
}

// GetCode fetches a new captcha.
func (svc *SessionService) GetCode(ctx context.Context) (*models.Captcha, error) {
	return svc.client.GetCode(ctx)
}

// CacheProfile stores profile until its token expires.
func (svc *SessionService) CacheProfile(ctx context.Context, profile *models.Profile) error {
	ttl := jwt.TTL(profile.Token, svc.now(), svc.defaultTTL)

	if err := svc.profiles.Save(ctx, profile, ttl); err != nil {
		logger.Log.Errorw("failed to cache profile", "username", profile.User.Name, "ttl", ttl, "err", err)
		return err
	}
	return nil
}
