package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("user with this email already exists")
)

// AuthService orchestrates the login pipeline: guard, credential check,
// counter reset, token issuance. Unknown user and wrong password produce the
// same error so responses never reveal whether an account exists.
type AuthService struct {
	users  storage.UserRepository
	guard  *BruteForceGuard
	tokens *TokenService
	events *seclog.Recorder
}

func NewAuthService(users storage.UserRepository, guard *BruteForceGuard, tokens *TokenService, events *seclog.Recorder) *AuthService {
	return &AuthService{
		users:  users,
		guard:  guard,
		tokens: tokens,
		events: events,
	}
}

func (s *AuthService) Login(ctx context.Context, ip, email, password string) (*IssuedTokens, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.guard.Observe(ctx, ip, email)

	if err := s.guard.Check(ctx, ip, email); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.events.Event(seclog.EventLoginFailed, "email", email, "ip", ip, "reason", "unknown_user")
			return nil, nil, ErrInvalidCredentials
		}
		s.events.Event(seclog.EventLoginError, "email", email, "ip", ip, "error", err.Error())
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.events.Event(seclog.EventLoginFailed, "email", email, "ip", ip, "reason", "wrong_password")
		return nil, nil, ErrInvalidCredentials
	}

	// Correct credentials: drop both counters. A pre-existing account lock
	// stays until its TTL expires.
	if err := s.guard.Reset(ctx, ip, email); err != nil {
		return nil, nil, err
	}

	issued, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.events.Event(seclog.EventLoginSuccess, "userId", user.ID, "ip", ip)

	return issued, user, nil
}

func (s *AuthService) Register(ctx context.Context, email, password, shopName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash), strings.TrimSpace(shopName))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}
