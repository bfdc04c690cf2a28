package entity

import (
	"time"
)

// User is the aggregate root for the account domain. Password holds a bcrypt
// hash and is never serialized outward; handlers expose Public() instead.
type User struct {
	ID            string
	Email         string
	Username      string
	Name          string
	Bio           string
	ProfilePicURL string
	Password      string

	EmailVerified    bool
	EmailVerifyToken string // pending verification token, empty when none

	ResetOTP         string // most recently issued reset code, empty when none
	ResetOTPIssuedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the outward-facing projection of a User. It deliberately has
// no place for the password hash, tokens or OTP.
type PublicUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"userName"`
	Name          string    `json:"name"`
	Bio           string    `json:"bio,omitempty"`
	ProfilePicURL string    `json:"profilePic,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Public returns the serializable projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Name:          u.Name,
		Bio:           u.Bio,
		ProfilePicURL: u.ProfilePicURL,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
