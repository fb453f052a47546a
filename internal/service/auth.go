package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cinegate/cinegate/internal/crypto"
	"github.com/cinegate/cinegate/internal/metrics"
	"github.com/cinegate/cinegate/internal/model"
	"github.com/cinegate/cinegate/internal/repository"
	"github.com/cinegate/cinegate/internal/session"
	"github.com/cinegate/cinegate/internal/validation"
)

const (
	MsgRegistered = "User registered successfully"
	MsgLoggedIn   = "Login successful"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoSuchUser         = fmt.Errorf("%w: user does not exist", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrDuplicateUser      = errors.New("user already exists")
)

// AuthService handles registration, login, logout and identity lookups.
type AuthService struct {
	repo     *repository.UserRepository
	tokens   *crypto.TokenService
	hashCost int
	metrics  metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *repository.UserRepository, tokens *crypto.TokenService, hashCost int, rec metrics.Recorder) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		hashCost: hashCost,
		metrics:  rec,
	}
}

// Register creates an account, issues a token and sets the session cookie.
func (s *AuthService) Register(ctx context.Context, rc session.RequestContext, req model.CredentialsRequest) (string, error) {
	if req.Username == "" {
		return "", ErrUsernameRequired
	}
	if req.Password == "" {
		return "", ErrPasswordRequired
	}
	if len(req.Password) > crypto.MaxPasswordBytes {
		return "", &validation.Error{Messages: []string{
			fmt.Sprintf("password must be at most %d bytes", crypto.MaxPasswordBytes),
		}}
	}

	// Skip the slow hash for names that are already taken; Create re-checks
	// under the store lock.
	if s.repo.Exists(ctx, req.Username) {
		s.metrics.RecordAuthEvent("register_duplicate")
		return "", ErrDuplicateUser
	}

	hash, err := crypto.HashPassword(req.Password, s.hashCost)
	if err != nil {
		return "", err
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			s.metrics.RecordAuthEvent("register_duplicate")
			return "", ErrDuplicateUser
		}
		return "", err
	}

	if err := s.startSession(rc, user.Username); err != nil {
		return "", err
	}

	slog.Info("user registered", "username", user.Username, "user_id", user.ID)
	s.metrics.RecordAuthEvent("register_success")
	return MsgRegistered, nil
}

// Login verifies the credentials, issues a token and sets the session cookie.
// No cookie is set when verification fails.
func (s *AuthService) Login(ctx context.Context, rc session.RequestContext, req model.CredentialsRequest) (string, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.RecordAuthEvent("login_failure")
			return "", ErrNoSuchUser
		}
		return "", err
	}

	match, err := crypto.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return "", err
	}
	if !match {
		s.metrics.RecordAuthEvent("login_failure")
		return "", ErrWrongPassword
	}

	if err := s.startSession(rc, user.Username); err != nil {
		return "", err
	}

	s.metrics.RecordAuthEvent("login_success")
	return MsgLoggedIn, nil
}

// Logout clears the session cookie. It succeeds even without a session.
func (s *AuthService) Logout(rc session.RequestContext) bool {
	if rc.Cookies != nil {
		rc.Cookies.Clear()
	}
	s.metrics.RecordAuthEvent("logout")
	return true
}

// Me returns the identity of the request; both fields are nil when anonymous.
func (s *AuthService) Me(rc session.RequestContext) model.MeResponse {
	user := rc.User()
	if user == nil {
		return model.MeResponse{}
	}
	return model.MeResponse{ID: &user.ID, Username: &user.Username}
}

func (s *AuthService) startSession(rc session.RequestContext, username string) error {
	token, err := s.tokens.Issue(username)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	if rc.Cookies != nil {
		rc.Cookies.SetToken(token)
	}
	return nil
}
