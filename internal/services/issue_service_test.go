package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klamberth/helpcenter/internal/models"
)

func newTestIssueService(repo IssueRepository, users UserRepository, store AttachmentRemover) *IssueService {
	if repo == nil {
		repo = &MockIssueRepository{}
	}
	if users == nil {
		users = &MockUserRepository{}
	}
	if store == nil {
		store = &MockAttachmentRemover{}
	}
	return NewIssueService(repo, users, store, testLogger())
}

func TestIssueService_Create_Success(t *testing.T) {
	creatorBumped := false
	mockRepo := &MockIssueRepository{
		CreateFunc: func(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
			issue.ID = "issue1"
			return issue, nil
		},
	}
	mockUsers := &MockUserRepository{
		IncrementIssuesCreatedFunc: func(ctx context.Context, id string) error {
			assert.Equal(t, "user123", id)
			creatorBumped = true
			return nil
		},
	}

	svc := newTestIssueService(mockRepo, mockUsers, nil)
	created, err := svc.Create(context.Background(), &models.Issue{
		Title:       "  Printer offline  ",
		Description: "The third floor printer stopped responding.",
		Priority:    models.PriorityHigh,
		CreatedBy:   "user123",
	})

	require.NoError(t, err)
	assert.Equal(t, "issue1", created.ID)
	assert.Equal(t, "Printer offline", created.Title)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.True(t, creatorBumped)
}

func TestIssueService_Create_DefaultsPriorityToMedium(t *testing.T) {
	mockRepo := &MockIssueRepository{
		CreateFunc: func(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
			return issue, nil
		},
	}

	svc := newTestIssueService(mockRepo, nil, nil)
	created, err := svc.Create(context.Background(), &models.Issue{
		Title:       "Slow VPN",
		Description: "Connections drop every hour.",
		CreatedBy:   "user123",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, created.Priority)
}

func TestIssueService_Create_Invalid(t *testing.T) {
	svc := newTestIssueService(nil, nil, nil)

	_, err := svc.Create(context.Background(), &models.Issue{Description: "no title"})
	assert.Equal(t, models.ErrBadRequest, err)

	_, err = svc.Create(context.Background(), &models.Issue{Title: "no description"})
	assert.Equal(t, models.ErrBadRequest, err)

	_, err = svc.Create(context.Background(), &models.Issue{
		Title:       "bad priority",
		Description: "x",
		Priority:    models.IssuePriority("urgent"),
	})
	assert.Equal(t, models.ErrBadRequest, err)
}

func TestIssueService_Create_CounterFailureDoesNotFailCreate(t *testing.T) {
	mockRepo := &MockIssueRepository{
		CreateFunc: func(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
			return issue, nil
		},
	}
	mockUsers := &MockUserRepository{
		IncrementIssuesCreatedFunc: func(ctx context.Context, id string) error {
			return models.ErrInternalServer
		},
	}

	svc := newTestIssueService(mockRepo, mockUsers, nil)
	_, err := svc.Create(context.Background(), &models.Issue{
		Title:       "Counter drift",
		Description: "still fine",
		CreatedBy:   "user123",
	})

	assert.NoError(t, err)
}

func TestIssueService_Respond_ResolvesAndBumpsCounter(t *testing.T) {
	resolverBumped := false
	mockRepo := &MockIssueRepository{
		SetResponseFunc: func(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error) {
			now := time.Now()
			return &models.Issue{
				ID:     id,
				Status: models.StatusResolved,
				Response: &models.IssueResponse{
					Text:        text,
					Images:      images,
					RespondedBy: responderID,
					RespondedAt: now,
				},
			}, nil
		},
	}
	mockUsers := &MockUserRepository{
		IncrementIssuesResolvedFunc: func(ctx context.Context, id string) error {
			assert.Equal(t, "admin1", id)
			resolverBumped = true
			return nil
		},
	}

	svc := newTestIssueService(mockRepo, mockUsers, nil)
	issue, err := svc.Respond(context.Background(), "issue1", "admin1", "Replaced the toner.", nil)

	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, issue.Status)
	require.NotNil(t, issue.Response)
	assert.Equal(t, "Replaced the toner.", issue.Response.Text)
	assert.True(t, resolverBumped)
}

func TestIssueService_Respond_EmptyText(t *testing.T) {
	svc := newTestIssueService(nil, nil, nil)

	_, err := svc.Respond(context.Background(), "issue1", "admin1", "   ", nil)

	assert.Equal(t, models.ErrBadRequest, err)
}

func TestIssueService_Respond_NotFound(t *testing.T) {
	svc := newTestIssueService(&MockIssueRepository{}, nil, nil)

	_, err := svc.Respond(context.Background(), "missing", "admin1", "text", nil)

	assert.Equal(t, models.ErrNotFound, err)
}

func TestIssueService_UpdateStatus(t *testing.T) {
	mockRepo := &MockIssueRepository{
		UpdateStatusFunc: func(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error) {
			return &models.Issue{ID: id, Status: status}, nil
		},
	}

	svc := newTestIssueService(mockRepo, nil, nil)
	issue, err := svc.UpdateStatus(context.Background(), "issue1", models.StatusInProgress)

	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, issue.Status)
}

func TestIssueService_UpdateStatus_Invalid(t *testing.T) {
	svc := newTestIssueService(nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "issue1", models.IssueStatus("closed"))

	assert.Equal(t, models.ErrBadRequest, err)
}

func TestIssueService_Delete_OnlyResolved(t *testing.T) {
	mockRepo := &MockIssueRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Issue, error) {
			return &models.Issue{ID: id, Status: models.StatusPending}, nil
		},
	}

	svc := newTestIssueService(mockRepo, nil, nil)
	err := svc.Delete(context.Background(), "issue1")

	assert.Equal(t, models.ErrBadRequest, err)
}

func TestIssueService_Delete_RemovesAttachments(t *testing.T) {
	mockRepo := &MockIssueRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Issue, error) {
			return &models.Issue{
				ID:     id,
				Status: models.StatusResolved,
				Images: []string{"uploads/a.png", "uploads/b.jpg"},
				Response: &models.IssueResponse{
					Text:   "done",
					Images: []string{"uploads/fix.png"},
				},
			}, nil
		},
	}
	store := &MockAttachmentRemover{}

	svc := newTestIssueService(mockRepo, nil, store)
	err := svc.Delete(context.Background(), "issue1")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"uploads/a.png", "uploads/b.jpg", "uploads/fix.png"}, store.Removed)
}

func TestIssueService_Delete_AttachmentFailureTolerated(t *testing.T) {
	mockRepo := &MockIssueRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Issue, error) {
			return &models.Issue{
				ID:     id,
				Status: models.StatusResolved,
				Images: []string{"uploads/gone.png"},
			}, nil
		},
	}
	store := &MockAttachmentRemover{
		RemoveFunc: func(path string) error { return models.ErrNotFound },
	}

	svc := newTestIssueService(mockRepo, nil, store)
	err := svc.Delete(context.Background(), "issue1")

	assert.NoError(t, err)
}
