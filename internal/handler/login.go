package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/service"
)

// LoginHandler serves the authentication endpoints: password login, OAuth
// login, and logout. It parses and validates bodies, delegates to the
// account service, and shapes the response — no business rules live here.
type LoginHandler struct {
	accounts  *service.AccountService
	validator *Validator
	logger    *slog.Logger
}

// NewLoginHandler creates a LoginHandler with injected dependencies.
func NewLoginHandler(accounts *service.AccountService, validator *Validator, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{accounts: accounts, validator: validator, logger: logger}
}

// authResponse is the success payload of login and registration: the
// filtered user flattened together with the issued bearer token.
type authResponse struct {
	*model.FilteredUser
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates an email/password pair.
//
// POST /v1/login
//
// 200 with the filtered user and token (token also in the authorization
// response header); 401 bad password; 404 unknown email; 422 invalid body.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.validator.Check(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.accounts.BasicLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("authorization", result.Token)
	writeJSON(w, http.StatusOK, authResponse{FilteredUser: result.User, Token: result.Token}, msgSuccess)
}

type oauthLoginRequest struct {
	Provider   string `json:"provider"   validate:"required,oneof=GOOGLE FACEBOOK"`
	OAuthToken string `json:"oauthToken" validate:"required"`
}

// HandleOAuthLogin authenticates via a third-party provider access token.
//
// POST /v1/login/oauth
//
// 200 with the filtered user and token; 422 missing fields or unsupported
// provider; 500 when the provider exchange fails.
func (h *LoginHandler) HandleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req oauthLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.validator.Check(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.accounts.OAuthLogin(r.Context(), req.Provider, req.OAuthToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("authorization", result.Token)
	writeJSON(w, http.StatusOK, authResponse{FilteredUser: result.User, Token: result.Token}, msgSuccess)
}

// HandleLogout acknowledges a logout.
//
// POST /v1/logout (auth required)
//
// Tokens are stateless and there is no revocation list, so beyond verifying
// the caller's token (the middleware's job) there is nothing to clear server
// side; the token stays technically valid until it expires. The client is
// expected to discard it.
func (h *LoginHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nil, "Successfully logged out.")
}
