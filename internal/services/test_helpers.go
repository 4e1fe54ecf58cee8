package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/klamberth/helpcenter/internal/models"
	"github.com/klamberth/helpcenter/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc                 func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.User, error)
	ListFunc                    func(ctx context.Context, f repositories.ListFilter) ([]*models.User, int64, error)
	CreateFunc                  func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc                  func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc          func(ctx context.Context, id, passwordHash string) error
	DeleteFunc                  func(ctx context.Context, id string) error
	RecordFailedLoginFunc       func(ctx context.Context, id string, threshold int, lockFor time.Duration) error
	RecordLoginFunc             func(ctx context.Context, id string) error
	ResetLoginAttemptsFunc      func(ctx context.Context, id string) error
	IncrementIssuesCreatedFunc  func(ctx context.Context, id string) error
	IncrementIssuesResolvedFunc func(ctx context.Context, id string) error
	BulkSetActiveFunc           func(ctx context.Context, ids []string, active bool) (int64, error)
	BulkSetRoleFunc             func(ctx context.Context, ids []string, role models.Role) (int64, error)
	BulkDeleteFunc              func(ctx context.Context, ids []string) (int64, error)
	DeleteByEmailSuffixFunc     func(ctx context.Context, suffix string) (int64, error)
	CountTotalFunc              func(ctx context.Context) (int64, error)
	CountActiveFunc             func(ctx context.Context) (int64, error)
	CountByRoleFunc             func(ctx context.Context, role models.Role) (int64, error)
	CountLoggedInSinceFunc      func(ctx context.Context, since time.Time) (int64, error)
	CountLockedFunc             func(ctx context.Context) (int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, f repositories.ListFilter) ([]*models.User, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return []*models.User{}, 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration) error {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, id, threshold, lockFor)
	}
	return nil
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, id string) error {
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	if m.ResetLoginAttemptsFunc != nil {
		return m.ResetLoginAttemptsFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) IncrementIssuesCreated(ctx context.Context, id string) error {
	if m.IncrementIssuesCreatedFunc != nil {
		return m.IncrementIssuesCreatedFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) IncrementIssuesResolved(ctx context.Context, id string) error {
	if m.IncrementIssuesResolvedFunc != nil {
		return m.IncrementIssuesResolvedFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) BulkSetActive(ctx context.Context, ids []string, active bool) (int64, error) {
	if m.BulkSetActiveFunc != nil {
		return m.BulkSetActiveFunc(ctx, ids, active)
	}
	return int64(len(ids)), nil
}

func (m *MockUserRepository) BulkSetRole(ctx context.Context, ids []string, role models.Role) (int64, error) {
	if m.BulkSetRoleFunc != nil {
		return m.BulkSetRoleFunc(ctx, ids, role)
	}
	return int64(len(ids)), nil
}

func (m *MockUserRepository) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	if m.BulkDeleteFunc != nil {
		return m.BulkDeleteFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *MockUserRepository) DeleteByEmailSuffix(ctx context.Context, suffix string) (int64, error) {
	if m.DeleteByEmailSuffixFunc != nil {
		return m.DeleteByEmailSuffixFunc(ctx, suffix)
	}
	return 0, nil
}

func (m *MockUserRepository) CountTotal(ctx context.Context) (int64, error) {
	if m.CountTotalFunc != nil {
		return m.CountTotalFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) CountActive(ctx context.Context) (int64, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	if m.CountByRoleFunc != nil {
		return m.CountByRoleFunc(ctx, role)
	}
	return 0, nil
}

func (m *MockUserRepository) CountLoggedInSince(ctx context.Context, since time.Time) (int64, error) {
	if m.CountLoggedInSinceFunc != nil {
		return m.CountLoggedInSinceFunc(ctx, since)
	}
	return 0, nil
}

func (m *MockUserRepository) CountLocked(ctx context.Context) (int64, error) {
	if m.CountLockedFunc != nil {
		return m.CountLockedFunc(ctx)
	}
	return 0, nil
}

// MockIssueRepository implements IssueRepository for testing
type MockIssueRepository struct {
	ListFunc         func(ctx context.Context) ([]*models.Issue, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.Issue, error)
	CreateFunc       func(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	SetResponseFunc  func(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error)
	UpdateStatusFunc func(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockIssueRepository) List(ctx context.Context) ([]*models.Issue, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Issue{}, nil
}

func (m *MockIssueRepository) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockIssueRepository) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, issue)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIssueRepository) SetResponse(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error) {
	if m.SetResponseFunc != nil {
		return m.SetResponseFunc(ctx, id, responderID, text, images)
	}
	return nil, models.ErrNotFound
}

func (m *MockIssueRepository) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockIssueRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockAttachmentRemover implements AttachmentRemover for testing
type MockAttachmentRemover struct {
	RemoveFunc func(path string) error
	Removed    []string
}

func (m *MockAttachmentRemover) Remove(path string) error {
	m.Removed = append(m.Removed, path)
	if m.RemoveFunc != nil {
		return m.RemoveFunc(path)
	}
	return nil
}
