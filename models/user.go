package models

import (
	"time"

	"gorm.io/gorm"
)

// TournamentUser is a local snapshot of user data needed for tournaments.
// Owned and managed solely by this service; populated by the profile sync
// worker from the external profile service.
type TournamentUser struct {
	ID                string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID    string     `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username          string     `gorm:"index;not null" json:"username"`
	Email             string     `json:"email,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	IsBanned bool `json:"is_banned" gorm:"default:false"` // local tournament ban

	// Soft delete (if needed for history)
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
