package model

import "time"

const (
	RoleAdmin     = "admin"
	RoleLeadGuide = "lead-guide"
	RoleGuide     = "guide"
	RoleUser      = "user"
)

// User's credential fields never serialize outbound: the password hash and
// reset-token fields are json:"-" across the board.
type User struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name                 string    `json:"name" bson:"name" validate:"required"`
	Email                string    `json:"email" bson:"email" validate:"required,email"`
	Photo                string    `json:"photo,omitempty" bson:"photo,omitempty"`
	Role                 string    `json:"role" bson:"role" validate:"omitempty,oneof=admin lead-guide guide user"`
	Password             string    `json:"-" bson:"password"`
	PasswordChangedAt    time.Time `json:"-" bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   string    `json:"-" bson:"passwordResetToken,omitempty"`
	PasswordResetExpires time.Time `json:"-" bson:"passwordResetExpires,omitempty"`
	Active               bool      `json:"-" bson:"active"`
	CreatedAt            time.Time `json:"createdAt,omitempty" bson:"createdAt"`
}

// PasswordChangedAfter reports whether the stored credential was changed
// after the given token issue time. Tokens issued before a password change
// are invalid without needing a revocation list.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	// Truncate to seconds: JWT iat has second precision and the changed-at
	// stamp is written slightly in the past to cover signing latency.
	return u.PasswordChangedAt.Truncate(time.Second).After(issuedAt.Truncate(time.Second))
}
