package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourbook/internal/crud"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockResolver struct {
	user *model.User
	err  error
}

func (m *mockResolver) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func newTestMiddleware(resolver UserResolver) *Middleware {
	log := logger.New(logger.Config{Level: "error", Service: "test"})
	tokens := NewTokenManager(testSecret, time.Hour)
	return NewMiddleware(tokens, resolver, apperrors.NewResponder(false, log))
}

func noopNext(called *bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func responseCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body.Code
}

func TestProtect_NoToken(t *testing.T) {
	m := newTestMiddleware(&mockResolver{})
	called := false
	handle := m.Protect(noopNext(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if called {
		t.Error("next must not run without a token")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if code := responseCode(t, w); code != apperrors.CodeNotAuthenticated {
		t.Errorf("expected %s, got %s", apperrors.CodeNotAuthenticated, code)
	}
}

func TestProtect_ValidTokenAttachesUser(t *testing.T) {
	user := &model.User{ID: "507f1f77bcf86cd799439011", Role: model.RoleUser}
	m := newTestMiddleware(&mockResolver{user: user})

	token, err := m.tokens.Sign(user.ID)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	var gotUser *model.User
	handle := m.Protect(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotUser = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser == nil || gotUser.ID != user.ID {
		t.Errorf("expected user in context, got %v", gotUser)
	}
}

func TestProtect_CookieFallback(t *testing.T) {
	user := &model.User{ID: "507f1f77bcf86cd799439011"}
	m := newTestMiddleware(&mockResolver{user: user})

	token, err := m.tokens.Sign(user.ID)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	called := false
	handle := m.Protect(noopNext(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if !called {
		t.Errorf("expected cookie token to authenticate, got %d", w.Code)
	}
}

func TestProtect_LoggedOutCookieIsNotAToken(t *testing.T) {
	m := newTestMiddleware(&mockResolver{})
	called := false
	handle := m.Protect(noopNext(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: loggedOutCookieValue})
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if called {
		t.Error("logout sentinel must not authenticate")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestProtect_DeletedUser(t *testing.T) {
	m := newTestMiddleware(&mockResolver{err: crud.ErrNotFound})

	token, err := m.tokens.Sign("507f1f77bcf86cd799439011")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	called := false
	handle := m.Protect(noopNext(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if called {
		t.Error("next must not run for a deleted user")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestProtect_StoreFailureIsNotUnauthorized(t *testing.T) {
	m := newTestMiddleware(&mockResolver{err: errors.New("connection reset")})

	token, err := m.tokens.Sign("507f1f77bcf86cd799439011")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	called := false
	handle := m.Protect(noopNext(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if called {
		t.Error("next must not run when the lookup fails")
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("a store failure must surface as 500, not 401, got %d", w.Code)
	}
}

func TestProtect_StaleTokenAfterPasswordChange(t *testing.T) {
	user := &model.User{
		ID:                "507f1f77bcf86cd799439011",
		PasswordChangedAt: time.Now().Add(time.Hour),
	}
	m := newTestMiddleware(&mockResolver{user: user})

	token, err := m.tokens.Sign(user.ID)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	called := false
	handle := m.Protect(noopNext(&called))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if called {
		t.Error("next must not run for a stale token")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := responseCode(t, w); code != apperrors.CodeCredentialChanged {
		t.Errorf("expected %s, got %s", apperrors.CodeCredentialChanged, code)
	}
}

func TestRestrictTo(t *testing.T) {
	m := newTestMiddleware(&mockResolver{})
	restrict := m.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)

	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{"admin passes", &model.User{Role: model.RoleAdmin}, http.StatusOK},
		{"lead guide passes", &model.User{Role: model.RoleLeadGuide}, http.StatusOK},
		{"regular user forbidden", &model.User{Role: model.RoleUser}, http.StatusForbidden},
		{"no user unauthenticated", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handle := restrict(noopNext(&called))

			r := httptest.NewRequest(http.MethodDelete, "/api/v1/tours/x", nil)
			if tt.user != nil {
				r = r.WithContext(WithUser(r.Context(), tt.user))
			}
			w := httptest.NewRecorder()
			handle(w, r, nil)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			if (tt.want == http.StatusOK) != called {
				t.Errorf("next called = %v, want %v", called, tt.want == http.StatusOK)
			}
		})
	}
}

func TestSoftAuth_ValidTokenAttachesUser(t *testing.T) {
	user := &model.User{ID: "507f1f77bcf86cd799439011", Role: model.RoleUser}
	m := newTestMiddleware(&mockResolver{user: user})

	token, err := m.tokens.Sign(user.ID)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	var gotUser *model.User
	handle := m.SoftAuth(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotUser = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser == nil || gotUser.ID != user.ID {
		t.Errorf("expected user in context, got %v", gotUser)
	}
}

func TestSoftAuth_AnonymousPassesThrough(t *testing.T) {
	m := newTestMiddleware(&mockResolver{})

	var gotUser *model.User
	handle := m.SoftAuth(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotUser = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	w := httptest.NewRecorder()
	handle(w, r, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected anonymous request to pass, got %d", w.Code)
	}
	if gotUser != nil {
		t.Errorf("expected no user in context, got %v", gotUser)
	}
}
