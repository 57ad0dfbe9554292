package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"aqi-platform/internal/auth"
	"aqi-platform/internal/models"
	"aqi-platform/internal/repository"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

// ErrRegistrationDisabled is returned by Register when self-registration is off
var ErrRegistrationDisabled = errors.New("admin registration is disabled")

const minPasswordLength = 8

// AuthConfig holds the admin authentication settings
type AuthConfig struct {
	AllowRegistration bool
	BcryptCost        int
}

// Token is a login response
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService registers admins and exchanges credentials for bearer tokens
type AuthService struct {
	repo    repository.Repository
	issuer  *auth.TokenIssuer
	config  AuthConfig
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAuthService creates a new auth service
func NewAuthService(repo repository.Repository, issuer *auth.TokenIssuer, cfg AuthConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AuthService {
	return &AuthService{
		repo:    repo,
		issuer:  issuer,
		config:  cfg,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Register creates an admin account
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.Admin, error) {
	if !s.config.AllowRegistration {
		return nil, ErrRegistrationDisabled
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	switch {
	case len(username) < 3 || len(username) > 50:
		return nil, &models.ValidationError{Field: "username", Value: username, Message: "username must be 3 to 50 characters"}
	case !validEmail(email):
		return nil, &models.ValidationError{Field: "email", Value: email, Message: "email is not a valid address"}
	case len(password) < minPasswordLength:
		return nil, &models.ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}

	hash, err := auth.HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{Username: username, Email: email, PasswordHash: hash}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[AUTH_REGISTER] Admin registered", logging.Fields{
		"admin_id": admin.ID,
		"username": admin.Username,
	})
	return admin, nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Login verifies credentials and issues a bearer token. Unknown users and
// wrong passwords both return auth.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Token, error) {
	admin, err := s.repo.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		var nf *repository.NotFoundError
		if errors.As(err, &nf) {
			s.logger.Warn(ctx, "[AUTH_LOGIN_FAILED] Unknown admin", logging.Fields{"username": username})
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.CheckPassword(admin.PasswordHash, password); err != nil {
		s.logger.Warn(ctx, "[AUTH_LOGIN_FAILED] Wrong password", logging.Fields{"username": username})
		return nil, err
	}

	token, expires, err := s.issuer.Issue(admin.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[AUTH_LOGIN] Admin logged in", logging.Fields{
		"admin_id": admin.ID,
	})
	return &Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expires}, nil
}

// Authenticate validates an Authorization header value and returns the admin id
func (s *AuthService) Authenticate(ctx context.Context, header string) (int64, error) {
	claims, err := s.issuer.Parse(header)
	if err != nil {
		return 0, err
	}
	return claims.AdminID, nil
}
