package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Admin log action kinds.
const (
	AdminActionOverrideMatch   = "override_match"
	AdminActionStatusChange    = "tournament_status_change"
	AdminActionPublishSchedule = "tournament_publish_schedule"
)

// AdminLogEntry is an immutable record of an administrative action. Entries
// are append-only: nothing in this codebase updates or deletes them.
type AdminLogEntry struct {
	ID         string  `json:"id" gorm:"primaryKey"`
	Action     string  `json:"action" gorm:"not null;index"`
	TargetType string  `json:"target_type" gorm:"not null"`
	TargetID   string  `json:"target_id" gorm:"not null;index"`
	AdminID    string  `json:"admin_id" gorm:"not null;index"`
	AdminName  string  `json:"admin_name"`
	Reason     string  `json:"reason"`
	Details    JSONMap `json:"details,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// JSONMap is a free-form jsonb detail blob.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported details column type %T", src)
	}
}
