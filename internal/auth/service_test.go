package auth

import (
	"context"
	"testing"
	"time"

	"tourbook/internal/crud"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct {
	users map[string]*model.User

	updatePasswordCalls int
	setTokenCalls       int
	clearTokenCalls     int
	byResetToken        *model.User
}

func newMockUserStore(users ...*model.User) *mockUserStore {
	m := &mockUserStore{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, crud.ErrNotFound
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, crud.ErrNotFound
}

func (m *mockUserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = "507f1f77bcf86cd799439011"
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id, hash string) error {
	m.updatePasswordCalls++
	if u, ok := m.users[id]; ok {
		u.Password = hash
		return nil
	}
	return crud.ErrNotFound
}

func (m *mockUserStore) SetResetToken(ctx context.Context, email, hashedToken string, expires time.Time) (*model.User, error) {
	m.setTokenCalls++
	return m.FindByEmail(ctx, email)
}

func (m *mockUserStore) ClearResetToken(ctx context.Context, id string) error {
	m.clearTokenCalls++
	return nil
}

func (m *mockUserStore) FindByResetToken(ctx context.Context, hashedToken string) (*model.User, error) {
	if m.byResetToken != nil {
		return m.byResetToken, nil
	}
	return nil, crud.ErrNotFound
}

type mockNotifier struct {
	welcomeCalls int
	resetCalls   int
	resetErr     error
}

func (m *mockNotifier) Welcome(ctx context.Context, email, name string) error {
	m.welcomeCalls++
	return nil
}

func (m *mockNotifier) PasswordReset(ctx context.Context, email, resetURL string) error {
	m.resetCalls++
	return m.resetErr
}

// quickHash uses the minimum cost so tests stay fast.
func quickHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	return string(hash)
}

func newTestService(store UserStore, notify Notifier) *Service {
	log := logger.New(logger.Config{Level: "error", Service: "test"})
	return NewService(store, NewTokenManager(testSecret, time.Hour), notify, log)
}

func TestLogin(t *testing.T) {
	user := &model.User{
		ID:       "507f1f77bcf86cd799439011",
		Email:    "alice@example.com",
		Password: quickHash(t, "correct-horse"),
	}
	svc := newTestService(newMockUserStore(user), &mockNotifier{})

	t.Run("valid credentials", func(t *testing.T) {
		got, token, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct-horse"})
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if got.ID != user.ID || token == "" {
			t.Errorf("expected user and token, got %v / %q", got, token)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})
		assertCode(t, err, apperrors.CodeNotAuthenticated)
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "whatever"})
		assertCode(t, err, apperrors.CodeNotAuthenticated)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), LoginInput{})
		assertCode(t, err, apperrors.CodeInvalidInput)
	})
}

func TestSignup_ForcesUserRole(t *testing.T) {
	store := newMockUserStore()
	notify := &mockNotifier{}
	svc := newTestService(store, notify)

	user, token, err := svc.Signup(context.Background(), SignupInput{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("signup must always create role=user, got %q", user.Role)
	}
	if user.Password == "correct-horse" {
		t.Error("password must be stored hashed")
	}
	if token == "" {
		t.Error("expected a session token")
	}
	if notify.welcomeCalls != 1 {
		t.Errorf("expected one welcome notification, got %d", notify.welcomeCalls)
	}
}

func TestSignup_PasswordMismatch(t *testing.T) {
	svc := newTestService(newMockUserStore(), &mockNotifier{})

	_, _, err := svc.Signup(context.Background(), SignupInput{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "correct-horse",
		PasswordConfirm: "different",
	})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestUpdatePassword_WrongCurrentPasswordDoesNotMutate(t *testing.T) {
	user := &model.User{
		ID:       "507f1f77bcf86cd799439011",
		Email:    "alice@example.com",
		Password: quickHash(t, "old-password"),
	}
	store := newMockUserStore(user)
	svc := newTestService(store, &mockNotifier{})

	_, _, err := svc.UpdatePassword(context.Background(), user.ID, PasswordUpdateInput{
		PasswordCurrent: "not-the-old-password",
		Password:        "new-password-123",
		PasswordConfirm: "new-password-123",
	})

	assertCode(t, err, apperrors.CodeNotAuthenticated)
	if store.updatePasswordCalls != 0 {
		t.Error("stored credential must not change when the current password is wrong")
	}
}

func TestUpdatePassword_Success(t *testing.T) {
	user := &model.User{
		ID:       "507f1f77bcf86cd799439011",
		Email:    "alice@example.com",
		Password: quickHash(t, "old-password"),
	}
	store := newMockUserStore(user)
	svc := newTestService(store, &mockNotifier{})

	_, token, err := svc.UpdatePassword(context.Background(), user.ID, PasswordUpdateInput{
		PasswordCurrent: "old-password",
		Password:        "new-password-123",
		PasswordConfirm: "new-password-123",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if store.updatePasswordCalls != 1 {
		t.Errorf("expected one password write, got %d", store.updatePasswordCalls)
	}
	if token == "" {
		t.Error("expected a fresh session token after the change")
	}
}

func TestForgotPassword_RollsBackTokenOnDispatchFailure(t *testing.T) {
	user := &model.User{
		ID:    "507f1f77bcf86cd799439011",
		Email: "alice@example.com",
	}
	store := newMockUserStore(user)
	notify := &mockNotifier{resetErr: context.DeadlineExceeded}
	svc := newTestService(store, notify)

	err := svc.ForgotPassword(context.Background(), "alice@example.com", "http://localhost/api/v1/users/resetPassword")

	assertCode(t, err, apperrors.CodeInternal)
	if store.clearTokenCalls != 1 {
		t.Errorf("expected the reset token to be rolled back, clear calls = %d", store.clearTokenCalls)
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	svc := newTestService(newMockUserStore(), &mockNotifier{})

	err := svc.ForgotPassword(context.Background(), "nobody@example.com", "http://localhost/api/v1/users/resetPassword")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestResetPassword(t *testing.T) {
	t.Run("invalid token", func(t *testing.T) {
		svc := newTestService(newMockUserStore(), &mockNotifier{})
		_, _, err := svc.ResetPassword(context.Background(), "bogus", PasswordResetInput{
			Password:        "new-password-123",
			PasswordConfirm: "new-password-123",
		})
		assertCode(t, err, apperrors.CodeInvalidInput)
	})

	t.Run("valid token sets the new password", func(t *testing.T) {
		user := &model.User{ID: "507f1f77bcf86cd799439011", Email: "alice@example.com"}
		store := newMockUserStore(user)
		store.byResetToken = user
		svc := newTestService(store, &mockNotifier{})

		_, token, err := svc.ResetPassword(context.Background(), "some-plain-token", PasswordResetInput{
			Password:        "new-password-123",
			PasswordConfirm: "new-password-123",
		})
		if err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		if store.updatePasswordCalls != 1 {
			t.Errorf("expected one password write, got %d", store.updatePasswordCalls)
		}
		if token == "" {
			t.Error("expected a session token after reset")
		}
	})
}
