package services

import (
	"context"
	"errors"
	"strings"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/pkg/credentials"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// RegisterUserInput carries a new user's profile and plaintext secret
type RegisterUserInput struct {
	ID       string
	Name     string
	Email    string
	Role     string
	Password string
}

// UserService handles user lookup and registration
type UserService struct {
	repo   repositories.UserRepository
	hasher *credentials.Hasher
}

// NewUserService creates a new user service
func NewUserService(repo repositories.UserRepository, hasher *credentials.Hasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register hashes the secret and stores the user. The plaintext is never persisted.
func (s *UserService) Register(ctx context.Context, in RegisterUserInput) (*entities.User, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.Email) == "" {
		return nil, apperrors.NewValidationError("user_id and email are required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, credentials.ErrSecretTooShort) {
		return nil, apperrors.NewValidationError("password is too short")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	role := in.Role
	if role == "" {
		role = "member"
	}
	user := &entities.User{
		ID:           in.ID,
		Name:         in.Name,
		Email:        in.Email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate reports whether secret matches the user's stored hash
func (s *UserService) Authenticate(ctx context.Context, id, secret string) (*entities.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if apperrors.HasCode(err, apperrors.CodeUserNotFound) {
		return nil, apperrors.NewValidationError("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := credentials.Verify(user.PasswordHash, secret); err != nil {
		return nil, apperrors.NewValidationError("invalid credentials")
	}
	return user, nil
}
