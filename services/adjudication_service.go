package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/common"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/store"
)

const defaultOverrideReason = "No reason provided"

// AdjudicationService owns the privileged overwrite of a match result. The
// commit is last-writer-wins: override is a correction mechanism, so the
// prior state of the match is recorded in the audit trail instead of being
// enforced as a precondition.
type AdjudicationService struct {
	Matches store.MatchStore
	Audit   store.AuditWriter
}

func NewAdjudicationService(matches store.MatchStore, audit store.AuditWriter) *AdjudicationService {
	return &AdjudicationService{Matches: matches, Audit: audit}
}

// MatchResultInput is the operator-supplied result for an override.
type MatchResultInput struct {
	ScoreA    int64             `json:"score_a"`
	ScoreB    int64             `json:"score_b"`
	WinnerID  string            `json:"winner_id"`
	MatchData *models.MatchData `json:"match_data,omitempty"`
}

// OverrideOutcome reports the committed match plus whether the audit entry
// made it to the log. AuditLogged=false never fails the operation; the match
// update has already committed by the time the audit write runs.
type OverrideOutcome struct {
	Match       *models.Match
	PriorStatus string
	AuditLogged bool
}

// OverrideResult validates and commits result, then appends the audit entry.
// The role check runs before any store read so an under-privileged caller
// learns nothing about the match.
func (s *AdjudicationService) OverrideResult(ctx context.Context, matchID string, result MatchResultInput, reason string, caller Caller) (*OverrideOutcome, error) {
	if !caller.CanAdjudicate() {
		return nil, fmt.Errorf("role %q cannot override match results: %w", caller.Role, common.ErrForbidden)
	}

	if result.ScoreA < 0 || result.ScoreB < 0 {
		return nil, fmt.Errorf("scores must be non-negative: %w", common.ErrInvalidInput)
	}
	if result.WinnerID == "" {
		return nil, fmt.Errorf("winner_id is required: %w", common.ErrInvalidInput)
	}

	match, err := s.Matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !match.HasParticipant(result.WinnerID) {
		return nil, fmt.Errorf("winner must be a match participant: %w", common.ErrInvalidInput)
	}

	// When a per-game breakdown is supplied the series score must agree with
	// it, otherwise the completed match would contradict its own game list.
	if result.MatchData != nil && len(result.MatchData.Games) > 0 {
		var winsA, winsB int64
		for _, g := range result.MatchData.Games {
			switch g.WinnerID {
			case match.ParticipantAID:
				winsA++
			case match.ParticipantBID:
				winsB++
			}
		}
		if winsA != result.ScoreA || winsB != result.ScoreB {
			return nil, fmt.Errorf("scores %d-%d disagree with the recorded game results (%d-%d): %w",
				result.ScoreA, result.ScoreB, winsA, winsB, common.ErrInvalidInput)
		}
	}

	priorStatus := match.Status
	updated, err := s.Matches.UpdateMatchResult(ctx, matchID, store.MatchResultFields{
		ScoreA:      result.ScoreA,
		ScoreB:      result.ScoreB,
		WinnerID:    result.WinnerID,
		MatchData:   result.MatchData,
		Status:      models.MatchStatusCompleted,
		CompletedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	outcome := &OverrideOutcome{Match: updated, PriorStatus: priorStatus, AuditLogged: true}

	if reason == "" {
		reason = defaultOverrideReason
	}
	entry := &models.AdminLogEntry{
		ID:         uuid.NewString(),
		Action:     models.AdminActionOverrideMatch,
		TargetType: "match",
		TargetID:   matchID,
		AdminID:    caller.UserID,
		AdminName:  caller.DisplayName,
		Reason:     reason,
		Details: models.JSONMap{
			"prior_status": priorStatus,
			"score_a":      result.ScoreA,
			"score_b":      result.ScoreB,
			"winner_id":    result.WinnerID,
		},
	}
	if result.MatchData != nil {
		entry.Details["match_data"] = result.MatchData
	}

	// Best effort: the match row is already committed, a lost audit entry
	// must not turn a successful correction into a failure.
	if err := s.Audit.Append(ctx, entry); err != nil {
		log.Printf("[ADJUDICATION] audit append failed for match %s override by %s: %v", matchID, caller.UserID, err)
		outcome.AuditLogged = false
	}

	log.Printf("[ADJUDICATION] match %s result overridden by %s (%s): %d-%d winner=%s (was %s)",
		matchID, caller.UserID, caller.Role, result.ScoreA, result.ScoreB, result.WinnerID, priorStatus)
	return outcome, nil
}

// --- Fiber endpoints ---

// OverrideMatchResult handles POST /admin/matches/:id/override.
func (s *AdjudicationService) OverrideMatchResult(c *fiber.Ctx) error {
	matchID := c.Params("id")
	if matchID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "match id required in URL"})
	}

	type Req struct {
		Result MatchResultInput `json:"result"`
		Reason string           `json:"reason,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	caller := CallerFromCtx(c)
	if caller.UserID == "" {
		return common.RespondError(c, common.ErrUnauthenticated)
	}

	outcome, err := s.OverrideResult(c.UserContext(), matchID, req.Result, req.Reason, caller)
	if err != nil {
		return common.RespondError(c, err)
	}

	resp := fiber.Map{
		"message":      "match result overridden",
		"match_id":     outcome.Match.ID,
		"match":        outcome.Match,
		"prior_status": outcome.PriorStatus,
		"audit_logged": outcome.AuditLogged,
	}
	if !outcome.AuditLogged {
		resp["warning"] = "result committed but audit log write failed"
	}
	return c.JSON(resp)
}
