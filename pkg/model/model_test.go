package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPasswordChangedAfter(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		changedAt time.Time
		want      bool
	}{
		{"never changed", time.Time{}, false},
		{"changed before issue", issued.Add(-time.Hour), false},
		{"changed after issue", issued.Add(time.Hour), true},
		{"changed same second", issued.Add(500 * time.Millisecond), false},
		{"changed next second", issued.Add(1500 * time.Millisecond), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{PasswordChangedAt: tt.changedAt}
			if got := u.PasswordChangedAfter(issued); got != tt.want {
				t.Errorf("PasswordChangedAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserCredentialFieldsNeverSerialize(t *testing.T) {
	u := User{
		ID:                   "507f1f77bcf86cd799439011",
		Name:                 "Ada",
		Email:                "ada@example.com",
		Password:             "$2a$14$secret",
		PasswordResetToken:   "deadbeef",
		PasswordChangedAt:    time.Now(),
		PasswordResetExpires: time.Now().Add(10 * time.Minute),
		Active:               true,
	}

	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := string(raw)

	for _, leaked := range []string{"password", "Password", "secret", "deadbeef", "active"} {
		if strings.Contains(body, leaked) {
			t.Errorf("serialized user leaks %q: %s", leaked, body)
		}
	}
	if !strings.Contains(body, "ada@example.com") {
		t.Errorf("expected public fields to serialize, got %s", body)
	}
}

func TestTourHidesSecretFlag(t *testing.T) {
	tour := Tour{Name: "The Hidden Gorge Trek", SecretTour: true}

	raw, err := json.Marshal(tour)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(raw), "secretTour") {
		t.Errorf("secretTour must not serialize: %s", raw)
	}
}
