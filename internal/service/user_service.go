package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"cassation-api/internal/auth"
	"cassation-api/internal/domain"
	"cassation-api/internal/repository"
)

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 6

// UserService describes account and token operations.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Identify returns the user id carried by a valid access token.
	Identify(accessToken string) (int64, error)
	// Refresh issues a new access token for a still existing user.
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type LoginResult struct {
	User   *domain.User
	Tokens auth.TokenPair
}

type userService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cost   int
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenManager) UserService {
	return &userService{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password is too short", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Login never tells an unknown email apart from a wrong password.
func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: sanitizeUser(user), Tokens: tokens}, nil
}

func (s *userService) Identify(accessToken string) (int64, error) {
	id, err := s.tokens.Verify(accessToken, auth.TokenTypeAccess)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return id, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	id, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", fmt.Errorf("%w: user %d no longer exists", ErrUnauthorized, id)
		}
		return "", err
	}
	return s.tokens.Issue(id, auth.TokenTypeAccess)
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
