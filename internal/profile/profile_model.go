package profile

import "gorm.io/gorm"

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Role is application-level reference data (student, admin).
type Role struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
}

// Profile is the application-level user record, distinct from the
// identity account. Created lazily on first authenticated access.
type Profile struct {
	gorm.Model
	AuthID      uint   `gorm:"uniqueIndex;not null" json:"auth_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	RoleID      *uint  `gorm:"index" json:"role_id"`
}

type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

type InviteRequest struct {
	Code string `json:"code"`
}

// PublicProfile is the embedded shape other endpoints attach to rows
// (applications, party members, leaderboard).
type PublicProfile struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}
