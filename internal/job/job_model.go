package job

import (
	"time"

	"github.com/questhall/questhall/internal/profile"
	"gorm.io/gorm"
)

const (
	StatusOpen = "open"

	AppStatusPending   = "pending"
	AppStatusApplied   = "applied"
	AppStatusAccepted  = "accepted"
	AppStatusRejected  = "rejected"
	AppStatusCompleted = "completed"
)

// AllowedAppStatuses are the application statuses a transition may
// target. Storage keeps the column free-form; the handler gates it.
var AllowedAppStatuses = []string{AppStatusPending, AppStatusApplied, AppStatusAccepted, AppStatusRejected, AppStatusCompleted}

// Job is a postable quest with reward XP and limited acceptance slots.
type Job struct {
	gorm.Model
	Title             string `gorm:"not null" json:"title"`
	Description       string `json:"description"`
	Category          string `gorm:"index" json:"category"`
	Status            string `gorm:"default:'open';index" json:"status"`
	Slots             int    `gorm:"default:0" json:"slots"`
	RewardXP          int    `gorm:"default:0" json:"reward_xp"`
	Pay               int    `gorm:"default:0" json:"pay"`
	Location          string `json:"location"`
	RecommendedRankID *uint  `json:"recommended_rank_id"`
	CreatedByID       uint   `gorm:"index" json:"created_by_id"`
}

// JobApplication links a profile to a job. The composite unique index is
// the source of truth for "already applied"; the handler pre-check only
// provides the friendly 409.
type JobApplication struct {
	gorm.Model
	JobID  uint   `gorm:"not null;uniqueIndex:idx_job_applications_job_user" json:"job_id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_job_applications_job_user" json:"user_id"`
	Status string `gorm:"default:'pending'" json:"status"`
}

type CreateJobRequest struct {
	Title             string `json:"title" binding:"required"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	RewardXP          int    `json:"reward_xp" binding:"gte=0"`
	Slots             int    `json:"slots" binding:"gte=0"`
	Pay               int    `json:"pay"`
	Location          string `json:"location"`
	RecommendedRankID *uint  `json:"recommended_rank_id"`
}

type UpdateJobRequest struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	Category          *string `json:"category,omitempty"`
	Status            *string `json:"status,omitempty"`
	RewardXP          *int    `json:"reward_xp,omitempty" binding:"omitempty,gte=0"`
	Slots             *int    `json:"slots,omitempty" binding:"omitempty,gte=0"`
	Pay               *int    `json:"pay,omitempty"`
	Location          *string `json:"location,omitempty"`
	RecommendedRankID *uint   `json:"recommended_rank_id,omitempty"`
}

// ApplyRequest is the body of the flat /apply endpoint.
type ApplyRequest struct {
	JobID uint `json:"jobId"`
}

type UpdateApplicationRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListFilters narrow the public job listing.
type ListFilters struct {
	Category string
	RankID   *uint
	Since    *time.Time
	Limit    int
	Offset   int
}

// ApplicationWithProfile is an application row joined with the
// applicant's public profile fields.
type ApplicationWithProfile struct {
	ID        uint                  `json:"id"`
	UserID    uint                  `json:"user_id"`
	Status    string                `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	Profile   profile.PublicProfile `json:"profiles"`
}
