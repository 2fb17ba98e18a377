// Package auth provides agent accounts and JWT-based authentication.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate     = "auth.repository.create"
	opGetByEmail = "auth.repository.get_by_email"
	opGetByID    = "auth.repository.get_by_id"
)

// User is an agent account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, password_hash, roles, is_active, created_at`

func (r *Repository) Create(ctx context.Context, email, name, passwordHash string, roles []string) (User, error) {
	if r == nil || r.pool == nil {
		return User{}, apperr.Internal("auth repository not configured").WithOp(opCreate)
	}
	if roles == nil {
		roles = []string{"agent"}
	}

	var u User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, roles)
		VALUES (lower($1), $2, $3, $4)
		RETURNING `+userColumns+`
	`, email, name, passwordHash, roles).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Roles, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, apperr.Conflict("email already registered").WithOp(opCreate)
		}
		return User{}, apperr.Internal(fmt.Sprintf("create user failed: %v", err)).WithOp(opCreate)
	}

	return u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	if r == nil || r.pool == nil {
		return User{}, apperr.Internal("auth repository not configured").WithOp(opGetByEmail)
	}

	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Roles, &u.IsActive, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user not found").WithOp(opGetByEmail)
	}
	if err != nil {
		return User{}, apperr.Internal(fmt.Sprintf("get user failed: %v", err)).WithOp(opGetByEmail)
	}

	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	if r == nil || r.pool == nil {
		return User{}, apperr.Internal("auth repository not configured").WithOp(opGetByID)
	}

	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Roles, &u.IsActive, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user not found").WithOp(opGetByID)
	}
	if err != nil {
		return User{}, apperr.Internal(fmt.Sprintf("get user failed: %v", err)).WithOp(opGetByID)
	}

	return u, nil
}

// AgentEmail satisfies the notification module's agent directory.
func (r *Repository) AgentEmail(ctx context.Context, agentID uuid.UUID) (string, string, error) {
	u, err := r.GetByID(ctx, agentID)
	if err != nil {
		return "", "", err
	}
	return u.Email, u.Name, nil
}
