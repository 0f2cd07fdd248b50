// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutrition/internal/domain"
	"nutrition/internal/token"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized indicates a missing, malformed or expired token, or a
	// token for a user that no longer exists.
	ErrUnauthorized = errors.New("could not validate credentials")
	// ErrInactiveUser indicates that the account has been deactivated.
	ErrInactiveUser = errors.New("inactive user")
)

// TokenIssuer issues and validates login tokens.
type TokenIssuer interface {
	IssuePair(userID int64) (token.Pair, error)
	Parse(raw string, want token.Kind) (int64, error)
}

// AuthService handles registration, login and token validation.
type AuthService struct {
	users  domain.UserRepository
	tokens TokenIssuer
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
	}
}

// Register creates a new account. The email is stored trimmed and lower-cased.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, email, string(hash))
}

// Login checks the password and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (token.Pair, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || user == nil || user.PasswordHash == "" {
		return token.Pair{}, ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return token.Pair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return token.Pair{}, ErrInactiveUser
	}

	return s.tokens.IssuePair(user.ID)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	user, err := s.userForToken(ctx, refreshToken, token.Refresh)
	if err != nil {
		return token.Pair{}, err
	}
	return s.tokens.IssuePair(user.ID)
}

// Authenticate resolves an access token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	return s.userForToken(ctx, accessToken, token.Access)
}

// LoginWithSSO issues tokens for a user already authenticated by the identity
// provider, creating a password-less account on first sight.
func (s *AuthService) LoginWithSSO(ctx context.Context, email string) (token.Pair, error) {
	email = normalizeEmail(email)
	if email == "" {
		return token.Pair{}, fmt.Errorf("%w: identity provider returned no email", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return token.Pair{}, err
	}
	if user == nil {
		user, err = s.users.Create(ctx, email, "")
		if errors.Is(err, domain.ErrEmailTaken) {
			// Lost a race with a concurrent first login.
			user, err = s.users.GetByEmail(ctx, email)
		}
		if err != nil {
			return token.Pair{}, err
		}
	}
	if !user.IsActive {
		return token.Pair{}, ErrInactiveUser
	}

	return s.tokens.IssuePair(user.ID)
}

func (s *AuthService) userForToken(ctx context.Context, raw string, kind token.Kind) (*domain.User, error) {
	userID, err := s.tokens.Parse(raw, kind)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
