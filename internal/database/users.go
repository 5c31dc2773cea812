package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-snippets/internal/apperror"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/google/uuid"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, issuer, subject, email, name, created_at, updated_at`

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Issuer,
		user.Subject,
		user.Email,
		user.Name,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetBySubject retrieves a user by token issuer and subject
func (r *UserRepository) GetBySubject(ctx context.Context, issuer, subject string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE issuer = $1 AND subject = $2`
	return r.getOne(ctx, query, issuer, subject)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Issuer,
		&user.Subject,
		&user.Email,
		&name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if name.Valid {
		user.Name = &name.String
	}
	return user, nil
}

// Update refreshes the profile fields copied from the identity token
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2, name = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		time.Now().UTC(),
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", user.ID, apperror.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// GetOrCreate resolves the owner for a verified identity, creating it on first
// sight and refreshing email and name when they changed.
func (r *UserRepository) GetOrCreate(ctx context.Context, issuer, subject, email string, name *string) (*models.User, error) {
	user, err := r.GetBySubject(ctx, issuer, subject)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		user = &models.User{Issuer: issuer, Subject: subject, Email: email, Name: name}
		if err := r.Create(ctx, user); err != nil {
			// Lost a race with a concurrent first request
			if existing, getErr := r.GetBySubject(ctx, issuer, subject); getErr == nil {
				return existing, nil
			}
			return nil, err
		}
		return user, nil
	}

	if profileChanged(user, email, name) {
		user.Email = email
		user.Name = name
		if err := r.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func profileChanged(user *models.User, email string, name *string) bool {
	if user.Email != email {
		return true
	}
	if (user.Name == nil) != (name == nil) {
		return true
	}
	return name != nil && *user.Name != *name
}
