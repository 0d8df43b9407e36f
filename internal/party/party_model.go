package party

import (
	"time"

	"github.com/questhall/questhall/internal/profile"
	"gorm.io/gorm"
)

const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// Party is a player-formed group with an optional minimum-rank gate.
type Party struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Category    string `gorm:"index" json:"category"`
	MinRankID   *uint  `json:"min_rank_id"`
	LeaderID    uint   `gorm:"index" json:"leader_id"`
}

// PartyMember links a profile to a party. The composite unique index
// backs the "already a member" rule; CreatedAt doubles as the join time.
type PartyMember struct {
	gorm.Model
	PartyID uint   `gorm:"not null;uniqueIndex:idx_party_members_party_user" json:"party_id"`
	UserID  uint   `gorm:"not null;uniqueIndex:idx_party_members_party_user" json:"user_id"`
	Role    string `gorm:"default:'member'" json:"role"`
}

type CreatePartyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	MinRankID   *uint  `json:"min_rank_id"`
}

type UpdatePartyRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	MinRankID   *uint   `json:"min_rank_id,omitempty"`
}

// MemberWithProfile is a membership row joined with the member's public
// profile fields.
type MemberWithProfile struct {
	ID        uint                  `json:"id"`
	PartyID   uint                  `json:"party_id"`
	UserID    uint                  `json:"user_id"`
	Role      string                `json:"role"`
	CreatedAt time.Time             `json:"created_at"`
	Profile   profile.PublicProfile `json:"profiles"`
}

// PartyWithMembers is the expanded listing shape.
type PartyWithMembers struct {
	Party
	Members []MemberWithProfile `json:"members"`
}
