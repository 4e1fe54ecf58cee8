package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klamberth/helpcenter/internal/auth"
	"github.com/klamberth/helpcenter/internal/models"
	"github.com/klamberth/helpcenter/internal/repositories"
	"github.com/klamberth/helpcenter/internal/services"
	pkghttp "github.com/klamberth/helpcenter/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewMultipartRequest builds a multipart form request with the given text
// fields and image files, the way a browser submits an issue.
func NewMultipartRequest(t *testing.T, method, url string, fields map[string]string, images map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range images {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithAccount adds an authenticated account to the request context
func WithAccount(req *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, user)
	return req.WithContext(ctx)
}

// TestAccount builds an account with the given role for context injection
func TestAccount(id string, role models.Role) *models.User {
	return &models.User{
		ID:       id,
		Email:    strings.ToLower(id) + "@example.org",
		Role:     role,
		IsActive: true,
	}
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	if target != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), target))
	}
}

// AssertErrorResponse checks the uniform error envelope
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, expectedCode, resp.Error)
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc          func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	LoginFunc             func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	CleanupDisposableFunc func(ctx context.Context) (int64, error)
}

func (m *MockAuthService) Register(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) CleanupDisposable(ctx context.Context) (int64, error) {
	if m.CleanupDisposableFunc != nil {
		return m.CleanupDisposableFunc(ctx)
	}
	return 0, nil
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	ListFunc               func(ctx context.Context, f repositories.ListFilter) (*services.AccountPage, error)
	CreateFunc             func(ctx context.Context, user *models.User, password string) (*models.User, error)
	UpdateFunc             func(ctx context.Context, id string, upd services.AccountUpdate, elevated bool) (*models.User, error)
	ChangePasswordFunc     func(ctx context.Context, id, currentPassword, newPassword string, requireCurrent bool) error
	ResetLoginAttemptsFunc func(ctx context.Context, id string) error
	BulkFunc               func(ctx context.Context, action string, ids []string, role models.Role) (int64, error)
	StatsFunc              func(ctx context.Context) (*services.StatsOverview, error)
}

func (m *MockAccountService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountService) List(ctx context.Context, f repositories.ListFilter) (*services.AccountPage, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return &services.AccountPage{}, nil
}

func (m *MockAccountService) Create(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) Update(ctx context.Context, id string, upd services.AccountUpdate, elevated bool) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, upd, elevated)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string, requireCurrent bool) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, id, currentPassword, newPassword, requireCurrent)
	}
	return nil
}

func (m *MockAccountService) ResetLoginAttempts(ctx context.Context, id string) error {
	if m.ResetLoginAttemptsFunc != nil {
		return m.ResetLoginAttemptsFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountService) Bulk(ctx context.Context, action string, ids []string, role models.Role) (int64, error) {
	if m.BulkFunc != nil {
		return m.BulkFunc(ctx, action, ids, role)
	}
	return int64(len(ids)), nil
}

func (m *MockAccountService) Stats(ctx context.Context) (*services.StatsOverview, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &services.StatsOverview{}, nil
}

// MockIssueService implements IssueServiceInterface for testing
type MockIssueService struct {
	ListFunc         func(ctx context.Context) ([]*models.Issue, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.Issue, error)
	CreateFunc       func(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	RespondFunc      func(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error)
	UpdateStatusFunc func(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockIssueService) List(ctx context.Context) ([]*models.Issue, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Issue{}, nil
}

func (m *MockIssueService) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockIssueService) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, issue)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIssueService) Respond(ctx context.Context, id, responderID, text string, images []string) (*models.Issue, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, id, responderID, text, images)
	}
	return nil, models.ErrNotFound
}

func (m *MockIssueService) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockIssueService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockAttachmentStore implements AttachmentStore for testing
type MockAttachmentStore struct {
	SaveFunc   func(fh *multipart.FileHeader) (string, error)
	RemoveFunc func(path string) error
	Saved      []string
	Removed    []string
}

func (m *MockAttachmentStore) Save(fh *multipart.FileHeader) (string, error) {
	if m.SaveFunc != nil {
		p, err := m.SaveFunc(fh)
		if err == nil {
			m.Saved = append(m.Saved, p)
		}
		return p, err
	}
	p := "uploads/" + fh.Filename
	m.Saved = append(m.Saved, p)
	return p, nil
}

func (m *MockAttachmentStore) Remove(path string) error {
	m.Removed = append(m.Removed, path)
	if m.RemoveFunc != nil {
		return m.RemoveFunc(path)
	}
	return nil
}
