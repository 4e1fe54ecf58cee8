package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klamberth/helpcenter/internal/database"
	"github.com/klamberth/helpcenter/internal/models"
)

const issueSelect = `
	SELECT i.id, i.title, i.description, i.priority, i.status, i.images,
		i.created_by, c.email,
		i.response_text, i.response_images, i.responded_by, r.email, i.responded_at,
		i.created_at, i.updated_at
	FROM issues i
	JOIN users c ON c.id = i.created_by
	LEFT JOIN users r ON r.id = i.responded_by
`

type IssueRepository struct {
	pool *pgxpool.Pool
}

func NewIssueRepository(db *database.DB) *IssueRepository {
	return &IssueRepository{pool: db.Pool}
}

func scanIssueRow(scanner rowScanner) (*models.Issue, error) {
	var issue models.Issue
	var responseText *string
	var responseImages []string
	var respondedBy, respondedByEmail *string
	var respondedAt *time.Time

	err := scanner.Scan(
		&issue.ID, &issue.Title, &issue.Description, &issue.Priority, &issue.Status,
		&issue.Images, &issue.CreatedBy, &issue.CreatedByEmail,
		&responseText, &responseImages, &respondedBy, &respondedByEmail, &respondedAt,
		&issue.CreatedAt, &issue.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if respondedBy != nil && responseText != nil && respondedAt != nil {
		resp := &models.IssueResponse{
			Text:        *responseText,
			Images:      responseImages,
			RespondedBy: *respondedBy,
			RespondedAt: *respondedAt,
		}
		if respondedByEmail != nil {
			resp.RespondedByEmail = *respondedByEmail
		}
		issue.Response = resp
	}

	return &issue, nil
}

// List returns all issues, newest first, with creator and responder emails.
func (r *IssueRepository) List(ctx context.Context) ([]*models.Issue, error) {
	rows, err := r.pool.Query(ctx, issueSelect+` ORDER BY i.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	issues := make([]*models.Issue, 0)
	for rows.Next() {
		issue, err := scanIssueRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return issues, nil
}

func (r *IssueRepository) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	return scanIssueRow(r.pool.QueryRow(ctx, issueSelect+` WHERE i.id = $1`, id))
}

func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	issue.ID = uuid.New().String()

	if issue.Priority == "" {
		issue.Priority = models.PriorityMedium
	}
	if issue.Images == nil {
		issue.Images = []string{}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO issues (id, title, description, priority, status, images, created_by)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
	`, issue.ID, issue.Title, issue.Description, issue.Priority, issue.Images, issue.CreatedBy)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.GetByID(ctx, issue.ID)
}

// SetResponse attaches the triage response and resolves the issue.
func (r *IssueRepository) SetResponse(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error) {
	if images == nil {
		images = []string{}
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE issues
		SET response_text = $1, response_images = $2, responded_by = $3,
			responded_at = now(), status = 'resolved', updated_at = now()
		WHERE id = $4
	`, text, images, responderID, id)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE issues SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
