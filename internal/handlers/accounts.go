package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/klamberth/helpcenter/internal/auth"
	"github.com/klamberth/helpcenter/internal/models"
	"github.com/klamberth/helpcenter/internal/repositories"
	"github.com/klamberth/helpcenter/internal/services"
	pkghttp "github.com/klamberth/helpcenter/pkg/http"
)

// AccountServiceInterface defines the interface for account business logic
type AccountServiceInterface interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, f repositories.ListFilter) (*services.AccountPage, error)
	Create(ctx context.Context, user *models.User, password string) (*models.User, error)
	Update(ctx context.Context, id string, upd services.AccountUpdate, elevated bool) (*models.User, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string, requireCurrent bool) error
	ResetLoginAttempts(ctx context.Context, id string) error
	Bulk(ctx context.Context, action string, ids []string, role models.Role) (int64, error)
	Stats(ctx context.Context) (*services.StatsOverview, error)
}

// AccountHandler handles account-management HTTP requests
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// Request/Response DTOs

// CreateAccountRequest represents the request body for provisioning an account
type CreateAccountRequest struct {
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required"`
	Role      string         `json:"role" validate:"omitempty,oneof=user manager admin"`
	FirstName string         `json:"firstName" validate:"omitempty,max=100"`
	LastName  string         `json:"lastName" validate:"omitempty,max=100"`
	Profile   models.Profile `json:"profile"`
}

// UpdateAccountRequest represents the request body for updating an account.
// Absent fields are left unchanged.
type UpdateAccountRequest struct {
	FirstName   *string         `json:"firstName" validate:"omitempty,max=100"`
	LastName    *string         `json:"lastName" validate:"omitempty,max=100"`
	Avatar      *string         `json:"avatar"`
	Profile     *models.Profile `json:"profile"`
	Role        *string         `json:"role" validate:"omitempty,oneof=user manager admin"`
	IsActive    *bool           `json:"isActive"`
	Permissions []string        `json:"permissions"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// BulkRequest represents the request body for a bulk account operation
type BulkRequest struct {
	Action  string   `json:"action" validate:"required,oneof=activate deactivate change-role delete"`
	UserIDs []string `json:"userIds" validate:"required,min=1"`
	Role    string   `json:"role" validate:"omitempty,oneof=user manager admin"`
}

// BulkResponse reports how many accounts a bulk operation touched
type BulkResponse struct {
	Affected int64 `json:"affected"`
}

// AccountResponse represents an account in the HTTP response
type AccountResponse struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Role           string         `json:"role"`
	FirstName      string         `json:"firstName,omitempty"`
	LastName       string         `json:"lastName,omitempty"`
	Avatar         string         `json:"avatar,omitempty"`
	IsActive       bool           `json:"isActive"`
	Permissions    []string       `json:"permissions,omitempty"`
	Profile        models.Profile `json:"profile"`
	LoginAttempts  int            `json:"loginAttempts"`
	LockedUntil    *time.Time     `json:"lockedUntil,omitempty"`
	LastLogin      *time.Time     `json:"lastLogin,omitempty"`
	TotalLogins    int            `json:"totalLogins"`
	IssuesCreated  int            `json:"issuesCreated"`
	IssuesResolved int            `json:"issuesResolved"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ListAccountsResponse represents one page of accounts
type ListAccountsResponse struct {
	Users       []*AccountResponse `json:"users"`
	Total       int64              `json:"total"`
	TotalPages  int                `json:"totalPages"`
	CurrentPage int                `json:"currentPage"`
}

// accountModelToResponse converts an account model to a response DTO.
// The password hash never leaves the model.
func accountModelToResponse(user *models.User) *AccountResponse {
	return &AccountResponse{
		ID:             user.ID,
		Email:          user.Email,
		Role:           string(user.Role),
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Avatar:         user.Avatar,
		IsActive:       user.IsActive,
		Permissions:    user.Permissions,
		Profile:        user.Profile,
		LoginAttempts:  user.LoginAttempts,
		LockedUntil:    user.LockedUntil,
		LastLogin:      user.LastLogin,
		TotalLogins:    user.TotalLogins,
		IssuesCreated:  user.IssuesCreated,
		IssuesResolved: user.IssuesResolved,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

// Me returns the authenticated caller's own account.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := auth.AccountFromContext(r)
	if caller == nil {
		pkghttp.WriteUnauthorized(w, "please authenticate")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(caller))
}

// List retrieves a filtered, paginated account listing.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repositories.ListFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  10,
	}

	if role := q.Get("role"); role != "" {
		if !models.Role(role).Valid() {
			pkghttp.WriteBadRequest(w, "Invalid role filter")
			return
		}
		filter.Role = models.Role(role)
	}

	if active := q.Get("isActive"); active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid isActive filter")
			return
		}
		filter.IsActive = &v
	}

	if l := q.Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 || v > 100 {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		filter.Limit = v
	}

	page := 1
	if p := q.Get("page"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil || v < 1 {
			pkghttp.WriteBadRequest(w, "Invalid page parameter")
			return
		}
		page = v
	}
	filter.Offset = (page - 1) * filter.Limit

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListAccountsResponse{
		Users:       make([]*AccountResponse, len(result.Users)),
		Total:       result.Total,
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
	}
	for i, user := range result.Users {
		resp.Users[i] = accountModelToResponse(user)
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Get retrieves an account by ID. Regular users can only fetch themselves.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := auth.AccountFromContext(r)
	if caller == nil {
		pkghttp.WriteUnauthorized(w, "please authenticate")
		return
	}

	if caller.ID != id && !caller.Role.AtLeast(models.RoleManager) {
		pkghttp.WriteForbidden(w, "You cannot access this account")
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(user))
}

// Create provisions an account with an explicit role.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      models.Role(req.Role),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Profile:   req.Profile,
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	created, err := h.service.Create(r.Context(), user, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid account details")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountModelToResponse(created))
}

// Update modifies an account. Regular users can only update their own
// profile fields; role, active flag and permissions require manager or
// admin clearance.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := auth.AccountFromContext(r)
	if caller == nil {
		pkghttp.WriteUnauthorized(w, "please authenticate")
		return
	}

	elevated := caller.Role.AtLeast(models.RoleManager)
	if caller.ID != id && !elevated {
		pkghttp.WriteForbidden(w, "You cannot modify this account")
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	upd := services.AccountUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Avatar:      req.Avatar,
		Profile:     req.Profile,
		IsActive:    req.IsActive,
		Permissions: req.Permissions,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		upd.Role = &role
	}

	updated, err := h.service.Update(r.Context(), id, upd, elevated)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid account details")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountModelToResponse(updated))
}

// ChangePassword sets a new password. A self change must supply the
// current password; admins changing someone else's password skip it.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := auth.AccountFromContext(r)
	if caller == nil {
		pkghttp.WriteUnauthorized(w, "please authenticate")
		return
	}

	self := caller.ID == id
	if !self && !caller.Role.AtLeast(models.RoleAdmin) {
		pkghttp.WriteForbidden(w, "You cannot change this account's password")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if self && req.CurrentPassword == "" {
		pkghttp.WriteBadRequest(w, "Current password is required")
		return
	}

	err := h.service.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword, self)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Current password is incorrect")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// ResetLoginAttempts clears an account's lockout state.
func (h *AccountHandler) ResetLoginAttempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.ResetLoginAttempts(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Login attempts reset"})
}

// Bulk applies one action to a set of accounts.
func (h *AccountHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	affected, err := h.service.Bulk(r.Context(), req.Action, req.UserIDs, models.Role(req.Role))
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid bulk operation")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &BulkResponse{Affected: affected})
}

// Stats returns the account overview counters.
func (h *AccountHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}
