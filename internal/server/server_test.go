package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sakif/accounts-api/internal/config"
	"github.com/sakif/accounts-api/internal/handler"
)

// newTestServer builds the real dependency graph against an in-memory
// database and returns the router for httptest.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.Config{
		Port:                 0,
		DBPath:               ":memory:",
		JWTSecret:            "test-secret-at-least-16-bytes",
		JWTIssuer:            "accounts-api-test",
		DefaultOAuthPassword: "oauth-placeholder",
		OAuthTimeout:         time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("building server: %v", err)
	}
	t.Cleanup(func() { srv.db.Close() })

	return srv.Handler()
}

// do sends a JSON request through the router. token, when non-empty, goes in
// the raw authorization header the API expects.
func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("authorization", token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) handler.Envelope {
	t.Helper()

	var env handler.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope from %q: %v", rec.Body.String(), err)
	}
	return env
}

// register creates an account through the API and returns its id and token.
func register(t *testing.T, h http.Handler, username, email string) (id, token string) {
	t.Helper()

	body := `{"firstName":"Ada","lastName":"Lovelace","username":"` + username +
		`","email":"` + email + `","password":"Str0ng!pass"}`
	rec := do(h, http.MethodPost, "/v1/users", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	user := env.Response.(map[string]any)
	return user["id"].(string), user["token"].(string)
}

func TestRegisterEndpoint(t *testing.T) {
	h := newTestServer(t)

	body := `{"firstName":"Ada","lastName":"Lovelace","username":"ada","email":"Ada@Example.com","password":"Str0ng!pass"}`
	rec := do(h, http.MethodPost, "/v1/users", body, "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("authorization") == "" {
		t.Error("authorization response header should carry the token")
	}
	if strings.Contains(rec.Body.String(), `"password"`) {
		t.Error("response must not contain a password field")
	}

	env := decodeEnvelope(t, rec)
	if env.Message != "Success." {
		t.Errorf("message = %q, want Success.", env.Message)
	}
	user := env.Response.(map[string]any)
	if user["email"] != "ada@example.com" {
		t.Errorf("email = %v, want normalized lowercase", user["email"])
	}
	if user["token"] == "" {
		t.Error("response body should carry the token")
	}
	if _, ok := user["oauthProviders"].([]any); !ok {
		t.Errorf("oauthProviders = %v, want an array", user["oauthProviders"])
	}
}

func TestRegisterEndpoint_Failures(t *testing.T) {
	h := newTestServer(t)
	register(t, h, "ada", "ada@example.com")

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "duplicate email",
			body:       `{"firstName":"A","lastName":"B","username":"other","email":"ADA@example.com","password":"Str0ng!pass"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "duplicate username",
			body:       `{"firstName":"A","lastName":"B","username":"ada","email":"other@example.com","password":"Str0ng!pass"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "missing fields",
			body:       `{"email":"x@example.com"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "weak password",
			body:       `{"firstName":"A","lastName":"B","username":"c","email":"c@example.com","password":"weak"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed body",
			body:       `{not json`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/v1/users", tt.body, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			decodeEnvelope(t, rec)
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	h := newTestServer(t)
	register(t, h, "ada", "ada@example.com")

	t.Run("correct credentials", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/v1/login", `{"email":"ada@example.com","password":"Str0ng!pass"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("authorization") == "" {
			t.Error("authorization response header should carry the token")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/v1/login", `{"email":"ada@example.com","password":"Wr0ng!pass1"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/v1/login", `{"email":"nobody@example.com","password":"Str0ng!pass"}`, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/v1/login", `{"email":"not-an-email"}`, "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestOAuthLoginEndpoint_UnsupportedProvider(t *testing.T) {
	h := newTestServer(t)

	rec := do(h, http.MethodPost, "/v1/login/oauth", `{"provider":"TWITTER","oauthToken":"tok"}`, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestLogoutEndpoint(t *testing.T) {
	h := newTestServer(t)
	_, token := register(t, h, "ada", "ada@example.com")

	rec := do(h, http.MethodPost, "/v1/logout", `{}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env := decodeEnvelope(t, rec); env.Message != "Successfully logged out." {
		t.Errorf("message = %q", env.Message)
	}

	rec = do(h, http.MethodPost, "/v1/logout", `{}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("logout without token: status = %d, want 401", rec.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	h := newTestServer(t)
	id, token := register(t, h, "ada", "ada@example.com")

	rec := do(h, http.MethodGet, "/v1/users/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if got := env.Response.(map[string]any)["id"]; got != id {
		t.Errorf("id = %v, want %s", got, id)
	}

	rec = do(h, http.MethodGet, "/v1/users/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me without token: status = %d, want 401", rec.Code)
	}
}

func TestGetAndListEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := do(h, http.MethodGet, "/v1/users", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	if users, ok := decodeEnvelope(t, rec).Response.([]any); !ok || len(users) != 0 {
		t.Errorf("empty list should be a JSON array, got %s", rec.Body.String())
	}

	id, _ := register(t, h, "ada", "ada@example.com")

	rec = do(h, http.MethodGet, "/v1/users/"+id, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := decodeEnvelope(t, rec).Response.(map[string]any)["username"]; got != "ada" {
		t.Errorf("username = %v, want ada", got)
	}

	rec = do(h, http.MethodGet, "/v1/users/no-such-id", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing: status = %d, want 404", rec.Code)
	}

	rec = do(h, http.MethodGet, "/v1/users", "", "")
	if users := decodeEnvelope(t, rec).Response.([]any); len(users) != 1 {
		t.Errorf("got %d users, want 1", len(users))
	}
}

func TestUpdateEndpoint(t *testing.T) {
	h := newTestServer(t)
	id, token := register(t, h, "ada", "ada@example.com")
	otherID, otherToken := register(t, h, "grace", "grace@example.com")

	t.Run("self update", func(t *testing.T) {
		rec := do(h, http.MethodPatch, "/v1/users/"+id, `{"firstName":"Augusta"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		env := decodeEnvelope(t, rec)
		if env.Message != "User successfully updated." {
			t.Errorf("message = %q", env.Message)
		}
		if got := env.Response.(map[string]any)["firstName"]; got != "Augusta" {
			t.Errorf("firstName = %v, want Augusta", got)
		}
	})

	t.Run("cross-user update", func(t *testing.T) {
		rec := do(h, http.MethodPatch, "/v1/users/"+otherID, `{"firstName":"Mallory"}`, token)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("no token", func(t *testing.T) {
		rec := do(h, http.MethodPatch, "/v1/users/"+id, `{"firstName":"X"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid replacement email", func(t *testing.T) {
		rec := do(h, http.MethodPatch, "/v1/users/"+otherID, `{"email":"not-an-email"}`, otherToken)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestDeleteEndpoint(t *testing.T) {
	h := newTestServer(t)
	id, token := register(t, h, "ada", "ada@example.com")
	otherID, _ := register(t, h, "grace", "grace@example.com")

	t.Run("cross-user delete", func(t *testing.T) {
		rec := do(h, http.MethodDelete, "/v1/users/"+otherID, "", token)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("self delete", func(t *testing.T) {
		rec := do(h, http.MethodDelete, "/v1/users/"+id, "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if env := decodeEnvelope(t, rec); env.Message != "User successfully deleted." {
			t.Errorf("message = %q", env.Message)
		}

		rec = do(h, http.MethodGet, "/v1/users/"+id, "", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("deleted user still readable: status = %d", rec.Code)
		}

		// The account behind the token is gone, so the token no longer works.
		rec = do(h, http.MethodGet, "/v1/users/me", "", token)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("token for a deleted account: status = %d, want 401", rec.Code)
		}
	})
}

func TestContentTypeGate(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/login",
		strings.NewReader("email=a@b.com&password=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-JSON POST: status = %d, want 400", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t)

	rec := do(h, http.MethodGet, "/v1/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "Resource Not Found." {
		t.Errorf("message = %q", env.Message)
	}
}
