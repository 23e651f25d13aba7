package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/sqldb"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

const usersTable = "m_company_users"

var userColumns = []interface{}{
	"user_id", "user_name", "password_hash", "email", "role", "created_at", "updated_at",
}

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client *sqldb.Client
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *sqldb.Client) repositories.UserRepository {
	return &UserAdapter{client: client}
}

// Create creates a new user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	if user.PasswordHash == "" {
		return apperrors.NewValidationError("user " + user.ID + " has no password hash")
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query, args, err := a.client.Dialect().Insert(usersTable).Prepared(true).Rows(goqu.Record{
		"user_id":       user.ID,
		"user_name":     user.Name,
		"password_hash": user.PasswordHash,
		"email":         user.Email,
		"role":          user.Role,
		"created_at":    user.CreatedAt.UTC(),
		"updated_at":    user.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build user insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if sqldb.IsUniqueViolation(err) {
			return apperrors.NewValidationError("user " + user.ID + " or email " + user.Email + " already exists")
		}
		return apperrors.NewInternalError("failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query, args, err := a.client.Dialect().From(usersTable).Prepared(true).
		Select(userColumns...).
		Where(goqu.Ex{"user_id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user lookup", err)
	}

	user := &entities.User{}
	err = a.client.DB().GetContext(ctx, user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(apperrors.CodeUserNotFound, "User not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return user, nil
}
