package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/service"
)

// UserHandler serves the /users endpoints: registration, lookup, listing,
// partial update, and deletion.
type UserHandler struct {
	accounts  *service.AccountService
	validator *Validator
	logger    *slog.Logger
}

// NewUserHandler creates a UserHandler with injected dependencies.
func NewUserHandler(accounts *service.AccountService, validator *Validator, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, validator: validator, logger: logger}
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Username  string `json:"username"  validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,userpassword"`
}

// HandleRegister creates an account.
//
// POST /v1/users
//
// 201 with the filtered user and a bearer token (also in the authorization
// response header); 409 duplicate email or username; 422 validation failure.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.validator.Check(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), service.RegisterInput{
		FirstName: escapeString(req.FirstName),
		LastName:  escapeString(req.LastName),
		Username:  escapeString(req.Username),
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("authorization", result.Token)
	writeJSON(w, http.StatusCreated, authResponse{FilteredUser: result.User, Token: result.Token}, msgSuccess)
}

// HandleList returns every user, filtered.
//
// GET /v1/users
//
// Zero accounts yields an empty array, not an error.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, users, msgSuccess)
}

// HandleMe returns the authenticated caller's own record.
//
// GET /v1/users/me (auth required)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, kept as a guard.
		writeJSON(w, http.StatusUnauthorized, nil, msgUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, user.Filtered(), msgSuccess)
}

// HandleGet returns a single user by id.
//
// GET /v1/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user, msgSuccess)
}

// updateRequest is a partial update: absent fields stay untouched.
type updateRequest struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Username     *string `json:"username"`
	Email        *string `json:"email"        validate:"omitempty,email"`
	Password     *string `json:"password"     validate:"omitempty,userpassword"`
	ProfilePhoto *string `json:"profilePhoto"`
}

// HandleUpdate applies a partial update to a user.
//
// PATCH /v1/users/{id} (auth required)
//
// The authenticated identity must match {id}; anything else is 403 even with
// a structurally valid token. Supplied fields are re-validated under the
// registration rules (password policy, email shape).
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, nil, msgUnauthorized)
		return
	}

	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.validator.Check(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.Update(r.Context(), actor.ID, chi.URLParam(r, "id"), service.UpdateInput{
		FirstName:    escapePtr(req.FirstName),
		LastName:     escapePtr(req.LastName),
		Username:     escapePtr(req.Username),
		Email:        req.Email,
		Password:     req.Password,
		ProfilePhoto: escapePtr(req.ProfilePhoto),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user, "User successfully updated.")
}

// HandleDelete removes a user permanently.
//
// DELETE /v1/users/{id} (auth required, self-match)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, nil, msgUnauthorized)
		return
	}

	msg, err := h.accounts.Delete(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, nil, msg)
}
