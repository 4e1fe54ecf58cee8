package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/klamberth/helpcenter/internal/auth"
	"github.com/klamberth/helpcenter/internal/models"
	"github.com/klamberth/helpcenter/internal/storage"
	pkghttp "github.com/klamberth/helpcenter/pkg/http"
)

// IssueServiceInterface defines the interface for issue business logic
type IssueServiceInterface interface {
	List(ctx context.Context) ([]*models.Issue, error)
	GetByID(ctx context.Context, id string) (*models.Issue, error)
	Create(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	Respond(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error)
	UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error)
	Delete(ctx context.Context, id string) error
}

var errTooManyAttachments = errors.New("too many attachments")

// AttachmentStore persists uploaded images and hands back their stored paths.
type AttachmentStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(path string) error
}

// IssueHandler handles issue-related HTTP requests
type IssueHandler struct {
	service     IssueServiceInterface
	store       AttachmentStore
	maxPerIssue int
	maxMemory   int64
}

// NewIssueHandler creates a new IssueHandler
func NewIssueHandler(service IssueServiceInterface, store AttachmentStore, maxPerIssue int, maxFileSize int64) *IssueHandler {
	return &IssueHandler{
		service:     service,
		store:       store,
		maxPerIssue: maxPerIssue,
		maxMemory:   maxFileSize,
	}
}

// Request/Response DTOs

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in-progress resolved"`
}

// IssueResponseDTO represents the triage response attached to an issue
type IssueResponseDTO struct {
	Text             string    `json:"text"`
	Images           []string  `json:"images,omitempty"`
	RespondedBy      string    `json:"respondedBy"`
	RespondedByEmail string    `json:"respondedByEmail,omitempty"`
	RespondedAt      time.Time `json:"respondedAt"`
}

// IssueDTO represents an issue in the HTTP response
type IssueDTO struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Priority       string            `json:"priority"`
	Status         string            `json:"status"`
	Images         []string          `json:"images,omitempty"`
	CreatedBy      string            `json:"createdBy"`
	CreatedByEmail string            `json:"createdByEmail,omitempty"`
	Response       *IssueResponseDTO `json:"response,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ListIssuesResponse represents a list of issues
type ListIssuesResponse struct {
	Issues []*IssueDTO `json:"issues"`
	Total  int         `json:"total"`
}

func issueModelToDTO(issue *models.Issue) *IssueDTO {
	dto := &IssueDTO{
		ID:             issue.ID,
		Title:          issue.Title,
		Description:    issue.Description,
		Priority:       string(issue.Priority),
		Status:         string(issue.Status),
		Images:         issue.Images,
		CreatedBy:      issue.CreatedBy,
		CreatedByEmail: issue.CreatedByEmail,
		CreatedAt:      issue.CreatedAt,
		UpdatedAt:      issue.UpdatedAt,
	}
	if issue.Response != nil {
		dto.Response = &IssueResponseDTO{
			Text:             issue.Response.Text,
			Images:           issue.Response.Images,
			RespondedBy:      issue.Response.RespondedBy,
			RespondedByEmail: issue.Response.RespondedByEmail,
			RespondedAt:      issue.Response.RespondedAt,
		}
	}
	return dto
}

// saveUploads persists every file under the given form key. On any failure
// the files saved so far are removed again so nothing is orphaned.
func (h *IssueHandler) saveUploads(r *http.Request, key string) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[key]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > h.maxPerIssue {
		return nil, errTooManyAttachments
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		p, err := h.store.Save(fh)
		if err != nil {
			for _, saved := range paths {
				h.store.Remove(saved)
			}
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (h *IssueHandler) discardUploads(paths []string) {
	for _, p := range paths {
		h.store.Remove(p)
	}
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return "Attachment exceeds the size limit"
	case errors.Is(err, storage.ErrUnsupportedExt):
		return "Only png, jpg and jpeg attachments are accepted"
	case errors.Is(err, errTooManyAttachments):
		return "Too many attachments"
	default:
		return "Could not store attachment"
	}
}

// List retrieves all issues, newest first.
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.List(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListIssuesResponse{
		Issues: make([]*IssueDTO, len(issues)),
		Total:  len(issues),
	}
	for i, issue := range issues {
		resp.Issues[i] = issueModelToDTO(issue)
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Get retrieves a single issue.
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	issue, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Issue not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, issueModelToDTO(issue))
}

// Create submits a new issue. The body is multipart form data: title,
// description and priority fields plus up to the configured number of
// image attachments under the "images" key.
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := auth.AccountFromContext(r)
	if caller == nil {
		pkghttp.WriteUnauthorized(w, "please authenticate")
		return
	}

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid multipart form")
		return
	}

	images, err := h.saveUploads(r, "images")
	if err != nil {
		pkghttp.WriteBadRequest(w, uploadErrorMessage(err))
		return
	}

	issue := &models.Issue{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Priority:    models.IssuePriority(r.FormValue("priority")),
		Images:      images,
		CreatedBy:   caller.ID,
	}

	created, err := h.service.Create(r.Context(), issue)
	if err != nil {
		h.discardUploads(images)
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Title, description and a valid priority are required")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, issueModelToDTO(created))
}

// Respond attaches an official response to an issue and resolves it.
// Multipart form data: a "text" field plus optional "images" attachments.
func (h *IssueHandler) Respond(w http.ResponseWriter, r *http.Request) {
	caller := auth.AccountFromContext(r)
	if caller == nil {
		pkghttp.WriteUnauthorized(w, "please authenticate")
		return
	}

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid multipart form")
		return
	}

	images, err := h.saveUploads(r, "images")
	if err != nil {
		pkghttp.WriteBadRequest(w, uploadErrorMessage(err))
		return
	}

	issue, err := h.service.Respond(r.Context(), chi.URLParam(r, "id"), caller.ID, r.FormValue("text"), images)
	if err != nil {
		h.discardUploads(images)
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Issue not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Response text is required")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, issueModelToDTO(issue))
}

// UpdateStatus moves an issue to a new workflow status.
func (h *IssueHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	issue, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), models.IssueStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Issue not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid status")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, issueModelToDTO(issue))
}

// Delete removes a resolved issue and its attachments. Unresolved issues
// are refused.
func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Issue not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Only resolved issues can be deleted")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Issue deleted"})
}
