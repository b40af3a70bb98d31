package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tourbook/internal/crud"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// UserResolver looks up the account behind a verified token. Deactivated or
// deleted accounts must come back as not found.
type UserResolver interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Middleware gates routes on the authentication state machine: extract the
// token, verify it, resolve the identity, check credential staleness, then
// attach the user to the request context. Each step has its own failure code.
type Middleware struct {
	tokens  *TokenManager
	users   UserResolver
	respond *apperrors.Responder
}

func NewMiddleware(tokens *TokenManager, users UserResolver, respond *apperrors.Responder) *Middleware {
	return &Middleware{tokens: tokens, users: users, respond: respond}
}

// Protect rejects the request unless it carries a valid, fresh session token
// for an existing active account.
func (m *Middleware) Protect(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, err := m.resolve(r)
		if err != nil {
			m.respond.Error(w, r, err)
			return
		}
		next(w, r.WithContext(WithUser(r.Context(), user)), ps)
	}
}

// SoftAuth attaches the user when a valid token is present but never rejects:
// anonymous requests pass through unauthenticated.
func (m *Middleware) SoftAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if user, err := m.resolve(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next(w, r, ps)
	}
}

// RestrictTo allows only the named roles past. It must run after Protect.
func (m *Middleware) RestrictTo(roles ...string) func(httprouter.Handle) httprouter.Handle {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			user := CurrentUser(r.Context())
			if user == nil {
				m.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
				return
			}
			if !allowed[user.Role] {
				m.respond.Error(w, r, apperrors.Forbidden("You do not have permission to perform this action"))
				return
			}
			next(w, r, ps)
		}
	}
}

func (m *Middleware) resolve(r *http.Request) (*model.User, error) {
	tokenString := extractToken(r)
	if tokenString == "" {
		return nil, apperrors.NotAuthenticated("You are not logged in! Please log in to get access.")
	}

	claims, err := m.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	user, userErr := m.users.FindByID(r.Context(), claims.Subject)
	if userErr != nil {
		if errors.Is(userErr, crud.ErrNotFound) || errors.Is(userErr, crud.ErrInvalidID) {
			return nil, apperrors.NotAuthenticated("The user belonging to this token does no longer exist.")
		}
		return nil, apperrors.Internal("Failed to resolve user for token", userErr)
	}

	if user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return nil, apperrors.CredentialChanged()
	}

	return user, nil
}

// extractToken prefers the Authorization header and falls back to the session
// cookie. The logout sentinel value is treated as absent.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != loggedOutCookieValue {
		return cookie.Value
	}
	return ""
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser returns the authenticated user, or nil outside a protected
// route.
func CurrentUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}
