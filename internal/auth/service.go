package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tourbook/internal/crud"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"
)

const resetTokenTTL = 10 * time.Minute

// UserStore is the slice of user persistence the auth flows need.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetResetToken(ctx context.Context, email, hashedToken string, expires time.Time) (*model.User, error)
	ClearResetToken(ctx context.Context, id string) error
	FindByResetToken(ctx context.Context, hashedToken string) (*model.User, error)
}

// Notifier delivers account notifications. Delivery is asynchronous from the
// user's point of view; only the forgot-password flow treats a failure as
// fatal, because the reset token is useless if it never reaches the user.
type Notifier interface {
	Welcome(ctx context.Context, email, name string) error
	PasswordReset(ctx context.Context, email, resetURL string) error
}

type Service struct {
	users  UserStore
	tokens *TokenManager
	notify Notifier
	log    *logger.Logger
}

func NewService(users UserStore, tokens *TokenManager, notify Notifier, log *logger.Logger) *Service {
	return &Service{users: users, tokens: tokens, notify: notify, log: log}
}

// Signup creates an account and signs it in. The role is always "user": the
// signup surface never accepts a caller-supplied role.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*model.User, string, error) {
	if err := validateInput(input); err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to create account", err)
	}

	user := &model.User{
		Name:     input.Name,
		Email:    input.Email,
		Photo:    input.Photo,
		Role:     model.RoleUser,
		Password: hash,
		Active:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", apperrors.FromMongo(err, "user")
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to issue session token", err)
	}

	if err := s.notify.Welcome(ctx, user.Email, user.Name); err != nil {
		s.log.Warn("Welcome notification failed", "email", user.Email, "error", err)
	}

	return user, token, nil
}

// Login verifies credentials. Unknown email and wrong password produce the
// same response, so the endpoint cannot be used to probe for accounts.
func (s *Service) Login(ctx context.Context, input LoginInput) (*model.User, string, error) {
	if input.Email == "" || input.Password == "" {
		return nil, "", apperrors.InvalidInput("Please provide email and password!")
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			return nil, "", apperrors.NotAuthenticated("Incorrect email or password")
		}
		return nil, "", apperrors.Internal("Login failed", err)
	}
	if !CheckPassword(user.Password, input.Password) {
		return nil, "", apperrors.NotAuthenticated("Incorrect email or password")
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to issue session token", err)
	}

	return user, token, nil
}

// UpdatePassword re-verifies the current password before anything mutates;
// a wrong current password leaves the stored credential untouched.
func (s *Service) UpdatePassword(ctx context.Context, userID string, input PasswordUpdateInput) (*model.User, string, error) {
	if err := validateInput(input); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			return nil, "", apperrors.NotAuthenticated("The user belonging to this token does no longer exist.")
		}
		return nil, "", apperrors.Internal("Password update failed", err)
	}

	if !CheckPassword(user.Password, input.PasswordCurrent) {
		return nil, "", apperrors.NotAuthenticated("Your current password is wrong.")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", apperrors.Internal("Password update failed", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, "", apperrors.Internal("Password update failed", err)
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to issue session token", err)
	}

	return user, token, nil
}

// ForgotPassword writes a hashed reset token to the account and dispatches
// the plain token. If dispatch fails the token is rolled back, so no account
// is left holding a token its owner never received.
func (s *Service) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	if email == "" {
		return apperrors.InvalidInput("Please provide your email address")
	}

	plain, hashed, err := NewResetToken()
	if err != nil {
		return apperrors.Internal("Failed to generate reset token", err)
	}

	user, err := s.users.SetResetToken(ctx, email, hashed, time.Now().UTC().Add(resetTokenTTL))
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "There is no user with email address.", http.StatusNotFound)
		}
		return apperrors.Internal("Failed to start password reset", err)
	}

	resetURL := resetURLBase + "/" + plain
	if err := s.notify.PasswordReset(ctx, user.Email, resetURL); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.log.Error("Failed to roll back reset token", "user_id", user.ID, "error", clearErr)
		}
		return apperrors.Internal("There was an error sending the email. Try again later!", err)
	}

	return nil
}

// ResetPassword consumes a plain reset token. The token is matched by digest
// and must not have expired.
func (s *Service) ResetPassword(ctx context.Context, plainToken string, input PasswordResetInput) (*model.User, string, error) {
	if err := validateInput(input); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByResetToken(ctx, HashResetToken(plainToken))
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			return nil, "", apperrors.InvalidInput("Token is invalid or has expired")
		}
		return nil, "", apperrors.Internal("Password reset failed", err)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", apperrors.Internal("Password reset failed", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, "", apperrors.Internal("Password reset failed", err)
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to issue session token", err)
	}

	return user, token, nil
}
