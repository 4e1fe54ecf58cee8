package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/klamberth/helpcenter/internal/models"
)

// IssueRepository defines the storage operations the issue service needs.
type IssueRepository interface {
	List(ctx context.Context) ([]*models.Issue, error)
	GetByID(ctx context.Context, id string) (*models.Issue, error)
	Create(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	SetResponse(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error)
	UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error)
	Delete(ctx context.Context, id string) error
}

// AttachmentRemover deletes stored attachment files when an issue is purged.
type AttachmentRemover interface {
	Remove(path string) error
}

// IssueService handles issue business logic
type IssueService struct {
	repo   IssueRepository
	users  UserRepository
	store  AttachmentRemover
	logger *slog.Logger
}

func NewIssueService(repo IssueRepository, users UserRepository, store AttachmentRemover, logger *slog.Logger) *IssueService {
	return &IssueService{
		repo:   repo,
		users:  users,
		store:  store,
		logger: logger,
	}
}

// List returns all issues, newest first.
func (s *IssueService) List(ctx context.Context) ([]*models.Issue, error) {
	issues, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list issues", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return issues, nil
}

// GetByID retrieves a single issue.
func (s *IssueService) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get issue", slog.String("issue_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return issue, nil
}

// Create records a new issue and bumps the creator's submission counter.
func (s *IssueService) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	issue.Title = strings.TrimSpace(issue.Title)
	issue.Description = strings.TrimSpace(issue.Description)
	if issue.Title == "" || issue.Description == "" {
		return nil, models.ErrBadRequest
	}
	if issue.Priority == "" {
		issue.Priority = models.PriorityMedium
	}
	if !issue.Priority.Valid() {
		return nil, models.ErrBadRequest
	}
	issue.Status = models.StatusPending

	created, err := s.repo.Create(ctx, issue)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to create issue", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.users.IncrementIssuesCreated(ctx, issue.CreatedBy); err != nil {
		// Counter drift is tolerable; the issue itself is recorded.
		s.logger.Warn("failed to increment issues_created",
			slog.String("user_id", issue.CreatedBy), slog.Any("error", err))
	}

	s.logger.Info("issue created",
		slog.String("issue_id", created.ID),
		slog.String("priority", string(created.Priority)))
	return created, nil
}

// Respond attaches an official response and marks the issue resolved.
func (s *IssueService) Respond(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ErrBadRequest
	}

	issue, err := s.repo.SetResponse(ctx, id, responderID, text, images)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to respond to issue", slog.String("issue_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.users.IncrementIssuesResolved(ctx, responderID); err != nil {
		s.logger.Warn("failed to increment issues_resolved",
			slog.String("user_id", responderID), slog.Any("error", err))
	}

	s.logger.Info("issue resolved",
		slog.String("issue_id", id),
		slog.String("responder_id", responderID))
	return issue, nil
}

// UpdateStatus moves an issue to a new workflow status.
func (s *IssueService) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error) {
	if !status.Valid() {
		return nil, models.ErrBadRequest
	}

	issue, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update issue status", slog.String("issue_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("issue status updated",
		slog.String("issue_id", id),
		slog.String("status", string(status)))
	return issue, nil
}

// Delete removes a resolved issue along with its stored attachments.
// Unresolved issues cannot be deleted.
func (s *IssueService) Delete(ctx context.Context, id string) error {
	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get issue", slog.String("issue_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if issue.Status != models.StatusResolved {
		return models.ErrBadRequest
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete issue", slog.String("issue_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	paths := issue.Images
	if issue.Response != nil {
		paths = append(paths, issue.Response.Images...)
	}
	for _, p := range paths {
		if err := s.store.Remove(p); err != nil {
			s.logger.Warn("failed to remove attachment",
				slog.String("issue_id", id),
				slog.String("path", p),
				slog.Any("error", err))
		}
	}

	s.logger.Info("issue deleted", slog.String("issue_id", id))
	return nil
}
