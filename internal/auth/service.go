package auth

import (
	"context"
	"strings"
	"time"

	"estate_crm_backend/internal/auth/token"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/validator"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const opLogin = "auth.service.login"

type Service struct {
	repo   *Repository
	issuer *token.Issuer
	val    *validator.Validator
}

func NewService(repo *Repository, issuer *token.Issuer) *Service {
	return &Service{repo: repo, issuer: issuer, val: validator.New()}
}

// Session is a successful login result.
type Session struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        User      `json:"user"`
}

// Login verifies the credentials and issues an access token. Unknown email
// and wrong password produce the same error so the endpoint does not leak
// which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, apperr.Validation("email and password are required").WithOp(opLogin)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, apperr.Unauthorized("invalid credentials").WithOp(opLogin)
	}
	if !user.IsActive {
		return Session{}, apperr.Unauthorized("invalid credentials").WithOp(opLogin)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, apperr.Unauthorized("invalid credentials").WithOp(opLogin)
	}

	accessToken, expiresAt, err := s.issuer.Issue(user.ID, user.Roles)
	if err != nil {
		return Session{}, apperr.Internal("could not issue token").WithOp(opLogin)
	}

	return Session{AccessToken: accessToken, ExpiresAt: expiresAt, User: user}, nil
}

// Register creates an agent account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, name, password string, roles []string) (User, error) {
	if err := s.val.Var(email, "required,email"); err != nil {
		return User{}, apperr.Validation("a valid email is required")
	}
	if len(password) < 8 {
		return User{}, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, apperr.Internal("could not hash password")
	}

	return s.repo.Create(ctx, email, name, string(hash), roles)
}

// Profile returns the account for the authenticated user.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (User, error) {
	return s.repo.GetByID(ctx, userID)
}
