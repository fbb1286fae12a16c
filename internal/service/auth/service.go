package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/splax/ledger/internal/apperr"
	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
	"github.com/splax/ledger/internal/validation"
	"github.com/splax/ledger/pkg/crypto"
	jwtpkg "github.com/splax/ledger/pkg/jwt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var errInvalidCredentials = apperr.Validation("invalid credentials")

// Service handles registration and login.
type Service struct {
	users     repository.UserRepository
	authority *jwtpkg.Authority
	validate  *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, authority *jwtpkg.Authority, logger *slog.Logger) Service {
	return Service{
		users:     users,
		authority: authority,
		validate:  validation.New(),
		logger:    logger,
		now:       time.Now,
	}
}

type registration struct {
	Account  string `json:"account" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type credentials struct {
	Account  string `json:"account" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account storing only a bcrypt hash of the password.
func (s Service) Register(ctx context.Context, account, password string) (*domain.User, error) {
	in := registration{Account: strings.TrimSpace(account), Password: password}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	now := s.now().UTC()
	user := &domain.User{
		Account:      in.Account,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("account exists").WithStatus(http.StatusBadRequest)
		}
		return nil, apperr.Internal("create user", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies the credentials and issues a token valid for jwt.LoginTTL.
// Unknown accounts and wrong passwords produce the same error.
func (s Service) Login(ctx context.Context, account, password string) (string, error) {
	in := credentials{Account: strings.TrimSpace(account), Password: password}
	if err := s.validate.Validate(in); err != nil {
		return "", err
	}
	user, err := s.users.GetUserByAccount(ctx, in.Account)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", errInvalidCredentials
		}
		return "", apperr.Internal("find user", err)
	}
	if err := crypto.ComparePassword(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, crypto.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unusable", "user_id", user.ID, "error", err)
		}
		return "", errInvalidCredentials
	}
	token, err := s.authority.Sign(user.ID, jwtpkg.LoginTTL)
	if err != nil {
		return "", apperr.Internal("sign token", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}
