package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Tournament lifecycle states. Participants may only be mutated while the
// tournament is in registration or upcoming.
const (
	TournamentStatusDraft        = "draft"
	TournamentStatusRegistration = "registration"
	TournamentStatusUpcoming     = "upcoming"
	TournamentStatusActive       = "active"
	TournamentStatusCompleted    = "completed"
	TournamentStatusCancelled    = "cancelled"
)

// Tournament represents a competitive event players register into.
type Tournament struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Slug        string `json:"slug" gorm:"uniqueIndex"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	GameTitle   string `json:"game_title"`
	CreatorID   string `json:"creator_id" gorm:"index;not null"`

	Status          string          `json:"status" gorm:"default:'draft';index"`
	Participants    ParticipantList `json:"participants" gorm:"type:jsonb;default:'[]'"`
	MaxParticipants int             `json:"max_participants" gorm:"not null"`

	// Version is the optimistic-concurrency token for participant writes.
	// Every successful participant update increments it; writers must supply
	// the version they read or the update is rejected.
	Version int64 `json:"version" gorm:"default:0"`

	CoverPhotoURL string     `json:"cover_photo_url"`
	PrizePool     string     `json:"prize_pool"`
	PublishAt     *time.Time `json:"publish_at,omitempty" gorm:"index"`
	StartTime     time.Time  `json:"start_time" gorm:"not null"`
	EndTime       *time.Time `json:"end_time,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Photos []TournamentPhoto `json:"photos,omitempty" gorm:"foreignKey:TournamentID"`
}

// RegistrationOpen reports whether the participant set may still be mutated.
func (t *Tournament) RegistrationOpen() bool {
	return t.Status == TournamentStatusRegistration || t.Status == TournamentStatusUpcoming
}

// IsFull reports whether the tournament has reached its participant cap.
func (t *Tournament) IsFull() bool {
	return len(t.Participants) >= t.MaxParticipants
}

type TournamentPhoto struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	URL          string `json:"url"`
	SortOrder    int    `json:"sort_order" gorm:"column:sort_order;default:0"`
}

// ParticipantList is the jsonb-backed set of participant ids on a tournament
// row. Order is insignificant; duplicates are forbidden by the participation
// service, not by this type.
type ParticipantList []string

func (p ParticipantList) Contains(userID string) bool {
	for _, id := range p {
		if id == userID {
			return true
		}
	}
	return false
}

// With returns a copy with userID appended.
func (p ParticipantList) With(userID string) ParticipantList {
	out := make(ParticipantList, 0, len(p)+1)
	out = append(out, p...)
	return append(out, userID)
}

// Without returns a copy with userID removed.
func (p ParticipantList) Without(userID string) ParticipantList {
	out := make(ParticipantList, 0, len(p))
	for _, id := range p {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

func (p ParticipantList) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *ParticipantList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = ParticipantList{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported participants column type %T", src)
	}
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
