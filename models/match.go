package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Match statuses. A completed match must carry a winner that is one of the
// two participants.
const (
	MatchStatusScheduled = "scheduled"
	MatchStatusReady     = "ready"
	MatchStatusActive    = "active"
	MatchStatusCompleted = "completed"
	MatchStatusCancelled = "cancelled"
	MatchStatusDisputed  = "disputed"
)

// Match records a head-to-head fixture between two tournament participants.
type Match struct {
	ID             string `json:"id" gorm:"primaryKey"`
	TournamentID   string `json:"tournament_id" gorm:"not null;index"`
	ParticipantAID string `json:"participant_a_id" gorm:"not null"`
	ParticipantBID string `json:"participant_b_id" gorm:"not null"`

	Status   string `json:"status" gorm:"default:'scheduled';index"`
	ScoreA   int64  `json:"score_a"`
	ScoreB   int64  `json:"score_b"`
	WinnerID string `json:"winner_id,omitempty"`

	MatchData *MatchData `json:"match_data,omitempty" gorm:"type:jsonb"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// HasParticipant reports whether userID plays in this match.
func (m *Match) HasParticipant(userID string) bool {
	return userID == m.ParticipantAID || userID == m.ParticipantBID
}

// MatchData carries the structured breakdown of a match result: the ordered
// per-game scores plus optional MVP and notes.
type MatchData struct {
	Games []GameResult `json:"games,omitempty"`
	MVPID string       `json:"mvp_id,omitempty"`
	Notes string       `json:"notes,omitempty"`
}

// GameResult is a single game inside a best-of series.
type GameResult struct {
	Number   int    `json:"number"`
	ScoreA   int64  `json:"score_a"`
	ScoreB   int64  `json:"score_b"`
	WinnerID string `json:"winner_id,omitempty"`
}

func (d *MatchData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *MatchData) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported match_data column type %T", src)
	}
}
