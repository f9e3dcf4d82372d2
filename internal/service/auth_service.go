package service

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/auth"
	"github.com/deskline/ticket-tracker/internal/config"
	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/repository"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

const (
	minPasswordLength = 6
	uniqueViolation   = "23505"
)

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	roles      *RoleStore
	tokenMgr   *auth.TokenManager
	resolver   *auth.Resolver
	revoked    auth.RevocationStore
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	RoleStore   *RoleStore
	Revocations auth.RevocationStore
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	return &AuthService{
		users:      deps.UserRepo,
		roles:      deps.RoleStore,
		tokenMgr:   tokens,
		resolver:   auth.NewResolver(tokens, deps.Revocations),
		revoked:    deps.Revocations,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// SignUp registers a new account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, emailTaken()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, emailTaken()
		}
		s.logger.Error("user create failed", zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))

	return s.issue(user)
}

// SignIn authenticates an existing account. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// SignOut revokes the token until it would have expired anyway. Without a
// revocation store it is a no-op.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if s.revoked == nil {
		return nil
	}
	claims, err := s.resolver.Claims(ctx, token)
	if err != nil {
		return err
	}
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("token revocation failed", zap.Error(err))
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

// Me returns the caller's directory entry joined with their role.
func (s *AuthService) Me(ctx context.Context, principal domain.Principal) (*domain.UserWithRole, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, principal.ID)
	if err != nil {
		return nil, apperrors.FromStore("user", err)
	}
	role, err := s.roles.GetRole(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	return &domain.UserWithRole{ID: user.ID, Email: user.Email, Role: role.Tag, IsAdmin: role.IsAdmin}, nil
}

// Resolver exposes the principal resolver for middleware usage.
func (s *AuthService) Resolver() *auth.Resolver {
	return s.resolver
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return apperrors.NewValidationError("valid email required", map[string]any{"field": "email"})
	}
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{
			"field":      "password",
			"min_length": minPasswordLength,
		})
	}
	return nil
}

func emailTaken() error {
	return apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
}
