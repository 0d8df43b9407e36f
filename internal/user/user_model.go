package user

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is the identity account backing a session. The Role column is the
// account-level metadata checked by the admin middleware; the profile
// table carries its own role reference for application-level checks.
type User struct {
	gorm.Model
	Name      string `json:"name"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `json:"-"`
	AvatarURL string `json:"avatar_url"`
	Role      string `gorm:"default:'student'" json:"role"`
}

// RefreshToken is a stored, revocable refresh credential.
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
}
