package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/klamberth/helpcenter/internal/auth"
	"github.com/klamberth/helpcenter/internal/models"
	"github.com/klamberth/helpcenter/internal/repositories"
	pkgauth "github.com/klamberth/helpcenter/pkg/auth"
	pkglogger "github.com/klamberth/helpcenter/pkg/logger"
)

// UserRepository defines the interface for account data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f repositories.ListFilter) ([]*models.User, int64, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error

	RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration) error
	RecordLogin(ctx context.Context, id string) error
	ResetLoginAttempts(ctx context.Context, id string) error
	IncrementIssuesCreated(ctx context.Context, id string) error
	IncrementIssuesResolved(ctx context.Context, id string) error

	BulkSetActive(ctx context.Context, ids []string, active bool) (int64, error)
	BulkSetRole(ctx context.Context, ids []string, role models.Role) (int64, error)
	BulkDelete(ctx context.Context, ids []string) (int64, error)
	DeleteByEmailSuffix(ctx context.Context, suffix string) (int64, error)

	CountTotal(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	CountLoggedInSince(ctx context.Context, since time.Time) (int64, error)
	CountLocked(ctx context.Context) (int64, error)
}

// LockoutPolicy controls the failed-login state machine.
type LockoutPolicy struct {
	Threshold int           // consecutive failures before a lock
	LockFor   time.Duration // lock duration once the threshold is reached
}

// AuthService handles registration and login business logic
type AuthService struct {
	repo             UserRepository
	tm               *auth.TokenManager
	lockout          LockoutPolicy
	bootstrapAdmin   string // email registered straight into the admin role
	disposableDomain string
	logger           *slog.Logger
}

func NewAuthService(repo UserRepository, tm *auth.TokenManager, lockout LockoutPolicy, bootstrapAdmin, disposableDomain string, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:             repo,
		tm:               tm,
		lockout:          lockout,
		bootstrapAdmin:   strings.ToLower(bootstrapAdmin),
		disposableDomain: disposableDomain,
		logger:           logger,
	}
}

// AuthUser is the trimmed account view returned from auth operations.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	Token string    `json:"token"`
	User  *AuthUser `json:"user"`
}

// Register creates a new account. The bootstrap admin address registers as
// admin; everyone else starts as a regular user.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: account already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	role := models.RoleUser
	if email == s.bootstrapAdmin {
		role = models.RoleAdmin
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     true,
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tm.Issue(createdUser.ID)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", createdUser.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account registered",
		slog.String("user_id", createdUser.ID),
		slog.String("email", pkglogger.SanitizedEmail(createdUser.Email)),
		slog.String("role", string(createdUser.Role)))

	return &AuthResponse{Token: token, User: authUserView(createdUser)}, nil
}

// Login authenticates an account and returns a token. An active lock rejects
// the attempt before the password is even checked, so a correct password
// never bypasses a lock. Failed attempts are recorded with a single atomic
// statement at the store.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.Locked() {
		s.logger.Info("login blocked: account locked", slog.String("user_id", user.ID))
		return nil, models.ErrAccountLocked
	}

	if !user.IsActive {
		s.logger.Info("login blocked: account deactivated", slog.String("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, password) {
		if err := s.repo.RecordFailedLogin(ctx, user.ID, s.lockout.Threshold, s.lockout.LockFor); err != nil {
			s.logger.Error("failed to record failed login", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		s.logger.Info("login failed: invalid credentials", slog.String("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	if err := s.repo.RecordLogin(ctx, user.ID); err != nil {
		s.logger.Error("failed to record login", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tm.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))

	return &AuthResponse{Token: token, User: authUserView(user)}, nil
}

// CleanupDisposable deletes every account on the disposable email domain and
// returns the number removed.
func (s *AuthService) CleanupDisposable(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteByEmailSuffix(ctx, "@"+s.disposableDomain)
	if err != nil {
		s.logger.Error("failed to purge disposable accounts", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	if deleted > 0 {
		s.logger.Info("purged disposable accounts", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}

func authUserView(user *models.User) *AuthUser {
	return &AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Role:  string(user.Role),
	}
}
