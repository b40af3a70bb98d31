package auth

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/httpx"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	SessionCookieName    = "jwt"
	loggedOutCookieValue = "loggedout"
)

type Handler struct {
	service          *Service
	respond          *apperrors.Responder
	cookieExpiryDays int
	secureCookies    bool
}

func NewHandler(service *Service, respond *apperrors.Responder, cookieExpiryDays int, secureCookies bool) *Handler {
	return &Handler{
		service:          service,
		respond:          respond,
		cookieExpiryDays: cookieExpiryDays,
		secureCookies:    secureCookies,
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router, protect func(httprouter.Handle) httprouter.Handle) {
	router.POST("/api/v1/users/signup", h.Signup)
	router.POST("/api/v1/users/login", h.Login)
	router.GET("/api/v1/users/logout", h.Logout)
	router.POST("/api/v1/users/forgotPassword", h.ForgotPassword)
	router.PATCH("/api/v1/users/resetPassword/:token", h.ResetPassword)
	router.PATCH("/api/v1/users/updateMyPassword", protect(h.UpdateMyPassword))
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input SignupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Invalid request body"))
		return
	}

	user, token, err := h.service.Signup(r.Context(), input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.sendToken(w, http.StatusCreated, token, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Invalid request body"))
		return
	}

	user, token, err := h.service.Login(r.Context(), input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, token, user)
}

// Logout overwrites the session cookie with a short-lived sentinel value.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    loggedOutCookieValue,
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Path:     "/",
	})
	httpx.WriteMessage(w, http.StatusOK, "Logged out")
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input ForgotPasswordInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Invalid request body"))
		return
	}

	resetURLBase := requestScheme(r) + "://" + r.Host + "/api/v1/users/resetPassword"
	if err := h.service.ForgotPassword(r.Context(), input.Email, resetURLBase); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Token sent to email!")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input PasswordResetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Invalid request body"))
		return
	}

	user, token, err := h.service.ResetPassword(r.Context(), ps.ByName("token"), input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, token, user)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user := CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	var input PasswordUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Invalid request body"))
		return
	}

	updated, token, err := h.service.UpdatePassword(r.Context(), user.ID, input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, token, updated)
}

// sendToken sets the session cookie and returns the token in the body. The
// cookie is HTTP-only; Secure is enabled outside development.
func (h *Handler) sendToken(w http.ResponseWriter, statusCode int, token string, user *model.User) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Expires:  time.Now().Add(time.Duration(h.cookieExpiryDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   h.secureCookies,
		Path:     "/",
	})
	httpx.WriteToken(w, statusCode, token, map[string]any{"user": user})
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
