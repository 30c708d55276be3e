// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/store"
)

// StartLifecycleScheduler runs the automatic tournament transitions: drafts
// with a due publish_at open for registration, and published tournaments
// whose start_time has passed go active. Writes go through the store's
// column-scoped lifecycle update so a join landing between the query and the
// write is never clobbered.
func (s *TournamentService) StartLifecycleScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: publish scheduled drafts
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var tournaments []models.Tournament
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at IS NOT NULL AND publish_at <= ?",
				models.TournamentStatusDraft, now).
				Find(&tournaments).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, t := range tournaments {
				status := models.TournamentStatusRegistration
				_, err := s.Tournaments.UpdateLifecycle(context.Background(), t.ID,
					store.LifecycleUpdate{Status: &status, ClearPublishAt: true})
				if err != nil {
					log.Printf("[Scheduler] Failed to publish tournament %s: %v", t.ID, err)
				} else {
					log.Printf("✅ Auto-opened registration for tournament: %s", t.Name)
				}
			}
		}),
	)

	// Every minute: activate tournaments past their start time
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()
			statuses := []string{models.TournamentStatusRegistration, models.TournamentStatusUpcoming}
			var tournaments []models.Tournament
			err := s.DB.Where("status IN ? AND start_time <= ?", statuses, now).
				Find(&tournaments).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, t := range tournaments {
				status := models.TournamentStatusActive
				_, err := s.Tournaments.UpdateLifecycle(context.Background(), t.ID,
					store.LifecycleUpdate{Status: &status})
				if err != nil {
					log.Printf("[Scheduler] Failed to activate tournament %s: %v", t.ID, err)
				} else {
					log.Printf("✅ Auto-activated tournament: %s", t.Name)
				}
			}
		}),
	)
}
