package services

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/common"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/store"
)

// ParticipationService owns join/leave transitions on a tournament's
// participant set. All writes go through the store's compare-and-swap, so two
// racing joins on the last open seat cannot both land: the loser gets
// common.ErrConflict and must retry with a fresh read. Retrying is the
// caller's job, not ours.
type ParticipationService struct {
	Tournaments store.TournamentStore
}

func NewParticipationService(tournaments store.TournamentStore) *ParticipationService {
	return &ParticipationService{Tournaments: tournaments}
}

// Join registers userID into the tournament. Checks run against the snapshot
// read here; the conditional write re-validates nothing itself, the version
// token guarantees the snapshot is still current when the write lands.
func (s *ParticipationService) Join(ctx context.Context, tournamentID, userID string) (*models.Tournament, error) {
	t, version, err := s.Tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	if !t.RegistrationOpen() {
		return nil, fmt.Errorf("tournament is %s, registration closed: %w", t.Status, common.ErrInvalidState)
	}
	if t.Participants.Contains(userID) {
		return nil, common.ErrAlreadyRegistered
	}
	if t.IsFull() {
		return nil, common.ErrTournamentFull
	}

	updated, err := s.Tournaments.UpdateParticipants(ctx, tournamentID, t.Participants.With(userID), version)
	if err != nil {
		return nil, err
	}

	log.Printf("[PARTICIPATION] user %s joined tournament %s (%d/%d)",
		userID, tournamentID, len(updated.Participants), updated.MaxParticipants)
	return updated, nil
}

// Leave removes userID from the tournament. Leaving is allowed until the
// tournament goes active; after that the bracket depends on the roster.
func (s *ParticipationService) Leave(ctx context.Context, tournamentID, userID string) (*models.Tournament, error) {
	t, version, err := s.Tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	if t.Status == models.TournamentStatusActive || t.Status == models.TournamentStatusCompleted {
		return nil, fmt.Errorf("cannot leave an active or completed tournament: %w", common.ErrInvalidState)
	}
	if !t.Participants.Contains(userID) {
		return nil, common.ErrNotRegistered
	}

	updated, err := s.Tournaments.UpdateParticipants(ctx, tournamentID, t.Participants.Without(userID), version)
	if err != nil {
		return nil, err
	}

	log.Printf("[PARTICIPATION] user %s left tournament %s (%d/%d)",
		userID, tournamentID, len(updated.Participants), updated.MaxParticipants)
	return updated, nil
}

// --- Fiber endpoints ---

// JoinTournament handles POST /tournaments/:id/join for the authenticated user.
func (s *ParticipationService) JoinTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if tournamentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "tournament id required in URL"})
	}

	caller := CallerFromCtx(c)
	if caller.UserID == "" {
		return common.RespondError(c, common.ErrUnauthenticated)
	}

	t, err := s.Join(c.UserContext(), tournamentID, caller.UserID)
	if err != nil {
		return common.RespondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message":    "joined tournament successfully",
		"tournament": t,
	})
}

// LeaveTournament handles POST /tournaments/:id/leave for the authenticated user.
func (s *ParticipationService) LeaveTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if tournamentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "tournament id required in URL"})
	}

	caller := CallerFromCtx(c)
	if caller.UserID == "" {
		return common.RespondError(c, common.ErrUnauthenticated)
	}

	t, err := s.Leave(c.UserContext(), tournamentID, caller.UserID)
	if err != nil {
		return common.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "left tournament successfully",
		"tournament": t,
	})
}
