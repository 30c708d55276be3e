package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/common"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
)

// GormStore implements TournamentStore, MatchStore and AuditWriter on top of
// the shared *gorm.DB.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetTournament(ctx context.Context, id string) (*models.Tournament, int64, error) {
	var t models.Tournament
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
		}
		return nil, 0, fmt.Errorf("fetching tournament %s: %w", id, err)
	}
	return &t, t.Version, nil
}

// UpdateParticipants performs the compare-and-swap: the UPDATE is guarded on
// the version column, so a concurrent writer that already bumped the version
// makes this statement touch zero rows.
func (s *GormStore) UpdateParticipants(ctx context.Context, id string, participants models.ParticipantList, expectedVersion int64) (*models.Tournament, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"participants": participants,
			"version":      expectedVersion + 1,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("updating participants for tournament %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Zero rows means either the row vanished or the version moved.
		// Re-check existence so the caller gets the right kind.
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Tournament{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("re-checking tournament %s: %w", id, err)
		}
		if count == 0 {
			return nil, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
		}
		return nil, common.ErrConflict
	}

	var t models.Tournament
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("re-fetching tournament %s: %w", id, err)
	}
	return &t, nil
}

// UpdateLifecycle touches only the status/publish columns so a participant
// write landing between the caller's read and this statement survives.
func (s *GormStore) UpdateLifecycle(ctx context.Context, id string, update LifecycleUpdate) (*models.Tournament, error) {
	fields := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.ClearPublishAt {
		fields["publish_at"] = nil
	} else if update.PublishAt != nil {
		fields["publish_at"] = *update.PublishAt
	}

	res := s.DB.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("updating lifecycle for tournament %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
	}

	var t models.Tournament
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("re-fetching tournament %s: %w", id, err)
	}
	return &t, nil
}

func (s *GormStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("match %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching match %s: %w", id, err)
	}
	return &m, nil
}

func (s *GormStore) UpdateMatchResult(ctx context.Context, id string, fields MatchResultFields) (*models.Match, error) {
	// match_data is always written: a nil input clears any previous per-game
	// breakdown so the row cannot carry stale games next to the new scores.
	updates := map[string]interface{}{
		"score_a":      fields.ScoreA,
		"score_b":      fields.ScoreB,
		"winner_id":    fields.WinnerID,
		"match_data":   fields.MatchData,
		"status":       fields.Status,
		"completed_at": fields.CompletedAt,
		"updated_at":   time.Now(),
	}

	res := s.DB.WithContext(ctx).
		Model(&models.Match{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("updating match %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("match %s: %w", id, common.ErrNotFound)
	}

	var m models.Match
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("re-fetching match %s: %w", id, err)
	}
	return &m, nil
}

func (s *GormStore) Append(ctx context.Context, entry *models.AdminLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("appending admin log entry: %w", err)
	}
	return nil
}
