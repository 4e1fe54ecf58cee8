package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/klamberth/helpcenter/internal/models"
	"github.com/klamberth/helpcenter/internal/repositories"
	pkgauth "github.com/klamberth/helpcenter/pkg/auth"
)

// AccountService handles account-management business logic
type AccountService struct {
	repo   UserRepository
	logger *slog.Logger
}

func NewAccountService(repo UserRepository, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		logger: logger,
	}
}

// AccountPage is one page of a filtered account listing.
type AccountPage struct {
	Users       []*models.User
	Total       int64
	TotalPages  int
	CurrentPage int
}

// AccountUpdate carries the mutable account fields. Nil pointers mean
// "leave unchanged". Role, IsActive and Permissions are only honored for
// elevated callers; a self update can never touch them.
type AccountUpdate struct {
	FirstName   *string
	LastName    *string
	Avatar      *string
	Profile     *models.Profile
	IsActive    *bool
	Role        *models.Role
	Permissions []string
}

// StatsOverview aggregates account counts for the admin dashboard.
type StatsOverview struct {
	TotalUsers     int64 `json:"totalUsers"`
	ActiveUsers    int64 `json:"activeUsers"`
	InactiveUsers  int64 `json:"inactiveUsers"`
	AdminUsers     int64 `json:"adminUsers"`
	ManagerUsers   int64 `json:"managerUsers"`
	RegularUsers   int64 `json:"regularUsers"`
	RecentLogins   int64 `json:"recentLogins"`
	LockedAccounts int64 `json:"lockedAccounts"`
}

// GetByID retrieves an account by ID
func (s *AccountService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("account not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// List returns a filtered, paginated account listing.
func (s *AccountService) List(ctx context.Context, f repositories.ListFilter) (*AccountPage, error) {
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	users, total, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error("failed to list accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))

	return &AccountPage{
		Users:       users,
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: f.Offset/f.Limit + 1,
	}, nil
}

// Create provisions an account on behalf of a manager or admin.
func (s *AccountService) Create(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if user.Role != "" && !user.Role.Valid() {
		return nil, models.ErrBadRequest
	}

	_, err := s.repo.GetByEmail(ctx, user.Email)
	if err == nil {
		s.logger.Info("account already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, models.ErrBadRequest
	}
	user.PasswordHash = hashedPassword
	user.IsActive = true

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account created", slog.String("user_id", createdUser.ID))
	return createdUser, nil
}

// Update applies an account update. Elevated callers may change role,
// active flag and permissions; self updates are limited to profile fields.
func (s *AccountService) Update(ctx context.Context, id string, upd AccountUpdate, elevated bool) (*models.User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if upd.FirstName != nil {
		existing.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		existing.LastName = *upd.LastName
	}
	if upd.Avatar != nil {
		existing.Avatar = *upd.Avatar
	}
	if upd.Profile != nil {
		existing.Profile = *upd.Profile
	}

	if elevated {
		if upd.Role != nil {
			if !upd.Role.Valid() {
				return nil, models.ErrBadRequest
			}
			existing.Role = *upd.Role
		}
		if upd.IsActive != nil {
			existing.IsActive = *upd.IsActive
		}
		if upd.Permissions != nil {
			existing.Permissions = upd.Permissions
		}
	}

	updatedUser, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		s.logger.Error("failed to update account", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account updated", slog.String("user_id", id))
	return updatedUser, nil
}

// ChangePassword sets a new password. When requireCurrent is true the
// caller's current password must verify first (self changes); admins acting
// on another account skip the check.
func (s *AccountService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string, requireCurrent bool) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if requireCurrent && !pkgauth.VerifyPassword(user.PasswordHash, currentPassword) {
		s.logger.Info("password change rejected: current password mismatch", slog.String("user_id", id))
		return models.ErrBadRequest
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return models.ErrBadRequest
	}

	if err := s.repo.UpdatePassword(ctx, id, hashedPassword); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("user_id", id))
	return nil
}

// ResetLoginAttempts clears the lockout state unconditionally.
func (s *AccountService) ResetLoginAttempts(ctx context.Context, id string) error {
	if err := s.repo.ResetLoginAttempts(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to reset login attempts", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("login attempts reset", slog.String("user_id", id))
	return nil
}

// Bulk actions accepted by the admin bulk endpoint.
const (
	BulkActivate   = "activate"
	BulkDeactivate = "deactivate"
	BulkChangeRole = "change-role"
	BulkDelete     = "delete"
)

// Bulk applies an action to a set of accounts and returns the affected count.
func (s *AccountService) Bulk(ctx context.Context, action string, ids []string, role models.Role) (int64, error) {
	if len(ids) == 0 {
		return 0, models.ErrBadRequest
	}

	var affected int64
	var err error

	switch action {
	case BulkActivate:
		affected, err = s.repo.BulkSetActive(ctx, ids, true)
	case BulkDeactivate:
		affected, err = s.repo.BulkSetActive(ctx, ids, false)
	case BulkChangeRole:
		if !role.Valid() {
			return 0, models.ErrBadRequest
		}
		affected, err = s.repo.BulkSetRole(ctx, ids, role)
	case BulkDelete:
		affected, err = s.repo.BulkDelete(ctx, ids)
	default:
		return 0, models.ErrBadRequest
	}

	if err != nil {
		s.logger.Error("bulk operation failed", slog.String("action", action), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.logger.Info("bulk operation completed",
		slog.String("action", action),
		slog.Int("requested", len(ids)),
		slog.Int64("affected", affected))
	return affected, nil
}

// Stats returns the aggregate counts for the overview endpoint.
func (s *AccountService) Stats(ctx context.Context) (*StatsOverview, error) {
	total, err := s.repo.CountTotal(ctx)
	if err != nil {
		s.logger.Error("stats: failed to count accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	active, err := s.repo.CountActive(ctx)
	if err != nil {
		s.logger.Error("stats: failed to count active accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	admins, err := s.repo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Error("stats: failed to count admins", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	managers, err := s.repo.CountByRole(ctx, models.RoleManager)
	if err != nil {
		s.logger.Error("stats: failed to count managers", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	regular, err := s.repo.CountByRole(ctx, models.RoleUser)
	if err != nil {
		s.logger.Error("stats: failed to count regular users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	recent, err := s.repo.CountLoggedInSince(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		s.logger.Error("stats: failed to count recent logins", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	locked, err := s.repo.CountLocked(ctx)
	if err != nil {
		s.logger.Error("stats: failed to count locked accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &StatsOverview{
		TotalUsers:     total,
		ActiveUsers:    active,
		InactiveUsers:  total - active,
		AdminUsers:     admins,
		ManagerUsers:   managers,
		RegularUsers:   regular,
		RecentLogins:   recent,
		LockedAccounts: locked,
	}, nil
}
