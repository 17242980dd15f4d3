package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/bank-cards/internal/auth"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type mockResolver struct {
	resolveFn func(ctx context.Context, name string) (*models.User, error)
}

func (m *mockResolver) ResolveUser(ctx context.Context, name string) (*models.User, error) {
	return m.resolveFn(ctx, name)
}

func quietLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, &buf
}

func newProtectedRouter(tokens TokenParser, users UserResolver, roles ...string) *mux.Router {
	log, _ := quietLogger()
	r := mux.NewRouter()
	protected := r.PathPrefix("/").Subrouter()
	protected.Use(Authenticate(tokens, users, log))
	if len(roles) > 0 {
		protected.Use(RequireRole(roles...))
	}
	protected.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		w.Write([]byte(user.Name))
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", "bank-cards", time.Hour)
	alice := &models.User{ID: 1, Name: "alice", Roles: []string{models.RoleUser}}
	ghost := &models.User{ID: 2, Name: "ghost", Roles: []string{models.RoleUser}}
	aliceToken, _ := issuer.Issue(alice)
	ghostToken, _ := issuer.Issue(ghost)

	outage := &models.User{ID: 3, Name: "outage", Roles: []string{models.RoleUser}}
	outageToken, _ := issuer.Issue(outage)

	users := &mockResolver{resolveFn: func(_ context.Context, name string) (*models.User, error) {
		switch name {
		case "alice":
			return alice, nil
		case "outage":
			return nil, fmt.Errorf("%w: find user: connection refused", service.ErrInternal)
		}
		return nil, service.ErrUserNotFound
	}}
	router := newProtectedRouter(issuer, users)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{"valid token", "Bearer " + aliceToken, http.StatusOK, "alice"},
		{"lowercase scheme", "bearer " + aliceToken, http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid authorization header format"},
		{"garbage token", "Bearer abc", http.StatusUnauthorized, "Invalid or expired token"},
		{"deleted user", "Bearer " + ghostToken, http.StatusUnauthorized, "Invalid or expired token"},
		{"user store unavailable", "Bearer " + outageToken, http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("Expected body to contain %q, got %s", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", "bank-cards", time.Hour)
	admin := &models.User{ID: 1, Name: "root", Roles: []string{models.RoleAdmin}}
	user := &models.User{ID: 2, Name: "alice", Roles: []string{models.RoleUser}}
	byName := map[string]*models.User{"root": admin, "alice": user}
	users := &mockResolver{resolveFn: func(_ context.Context, name string) (*models.User, error) {
		return byName[name], nil
	}}
	router := newProtectedRouter(issuer, users, models.RoleAdmin)

	tests := []struct {
		name           string
		user           *models.User
		expectedStatus int
	}{
		{"admin allowed", admin, http.StatusOK},
		{"user forbidden", user, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _ := issuer.Issue(tt.user)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestRequireRole_RolesComeFromStoreNotToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", "bank-cards", time.Hour)
	// the token still claims admin but the stored user has been demoted
	token, _ := issuer.Issue(&models.User{Name: "alice", Roles: []string{models.RoleAdmin}})
	users := &mockResolver{resolveFn: func(_ context.Context, name string) (*models.User, error) {
		return &models.User{ID: 1, Name: name, Roles: []string{models.RoleUser}}, nil
	}}
	router := newProtectedRouter(issuer, users, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	log, buf := quietLogger()
	r := mux.NewRouter()
	r.Use(RequestLogger(log))
	r.HandleFunc("/teapot", func(w http.ResponseWriter, r *http.Request) {
		if RequestID(r.Context()) == "" {
			t.Error("Expected request id in context")
		}
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	id := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected generated uuid request id, got %q", id)
	}
	if !strings.Contains(buf.String(), `"status":418`) || !strings.Contains(buf.String(), id) {
		t.Errorf("Expected status and request id in log, got %s", buf.String())
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/teapot", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("Expected incoming request id %s to be kept, got %s", incoming, got)
	}
}

func TestRecoverer(t *testing.T) {
	log, _ := quietLogger()
	r := mux.NewRouter()
	r.Use(Recoverer(log))
	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}
