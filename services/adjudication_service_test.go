package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/common"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/store"
)

type fakeMatchStore struct {
	match *models.Match

	getCalls    int
	updateCalls int
}

func (s *fakeMatchStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	s.getCalls++
	if s.match == nil || s.match.ID != id {
		return nil, fmt.Errorf("match %s: %w", id, common.ErrNotFound)
	}
	snapshot := *s.match
	return &snapshot, nil
}

func (s *fakeMatchStore) UpdateMatchResult(ctx context.Context, id string, fields store.MatchResultFields) (*models.Match, error) {
	s.updateCalls++
	if s.match == nil || s.match.ID != id {
		return nil, fmt.Errorf("match %s: %w", id, common.ErrNotFound)
	}
	s.match.ScoreA = fields.ScoreA
	s.match.ScoreB = fields.ScoreB
	s.match.WinnerID = fields.WinnerID
	s.match.MatchData = fields.MatchData
	s.match.Status = fields.Status
	completedAt := fields.CompletedAt
	s.match.CompletedAt = &completedAt
	snapshot := *s.match
	return &snapshot, nil
}

type fakeAuditWriter struct {
	entries []*models.AdminLogEntry
	fail    bool
}

func (w *fakeAuditWriter) Append(ctx context.Context, entry *models.AdminLogEntry) error {
	if w.fail {
		return errors.New("audit sink unavailable")
	}
	w.entries = append(w.entries, entry)
	return nil
}

func scheduledMatch() *models.Match {
	return &models.Match{
		ID:             "m1",
		TournamentID:   "t1",
		ParticipantAID: "A",
		ParticipantBID: "B",
		Status:         models.MatchStatusScheduled,
	}
}

func adminCaller() Caller {
	return Caller{UserID: "admin-1", Role: RoleAdmin, DisplayName: "Admin One"}
}

func TestAdjudicationService_ForbiddenBeforeStoreRead(t *testing.T) {
	for _, role := range []string{RolePlayer, RoleLeader, ""} {
		t.Run("role "+role, func(t *testing.T) {
			matches := &fakeMatchStore{match: scheduledMatch()}
			svc := NewAdjudicationService(matches, &fakeAuditWriter{})

			_, err := svc.OverrideResult(context.Background(), "m1",
				MatchResultInput{ScoreA: 1, ScoreB: 0, WinnerID: "A"}, "",
				Caller{UserID: "u1", Role: role})

			assert.ErrorIs(t, err, common.ErrForbidden)
			assert.Zero(t, matches.getCalls, "store must not be read for an under-privileged caller")
			assert.Zero(t, matches.updateCalls)
		})
	}
}

func TestAdjudicationService_InputValidation(t *testing.T) {
	tests := []struct {
		name   string
		result MatchResultInput
	}{
		{"negative score_a", MatchResultInput{ScoreA: -1, ScoreB: 0, WinnerID: "A"}},
		{"negative score_b", MatchResultInput{ScoreA: 0, ScoreB: -3, WinnerID: "A"}},
		{"empty winner", MatchResultInput{ScoreA: 2, ScoreB: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := &fakeMatchStore{match: scheduledMatch()}
			svc := NewAdjudicationService(matches, &fakeAuditWriter{})

			_, err := svc.OverrideResult(context.Background(), "m1", tt.result, "", adminCaller())
			assert.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Zero(t, matches.updateCalls)
		})
	}
}

func TestAdjudicationService_WinnerMustBeParticipant(t *testing.T) {
	matches := &fakeMatchStore{match: scheduledMatch()}
	svc := NewAdjudicationService(matches, &fakeAuditWriter{})

	_, err := svc.OverrideResult(context.Background(), "m1",
		MatchResultInput{ScoreA: 2, ScoreB: 1, WinnerID: "C"}, "", adminCaller())

	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "winner must be a match participant")
	assert.Zero(t, matches.updateCalls, "the match record must be left unmodified")
	assert.Equal(t, models.MatchStatusScheduled, matches.match.Status)
}

func TestAdjudicationService_UnknownMatch(t *testing.T) {
	svc := NewAdjudicationService(&fakeMatchStore{}, &fakeAuditWriter{})

	_, err := svc.OverrideResult(context.Background(), "missing",
		MatchResultInput{ScoreA: 1, ScoreB: 0, WinnerID: "A"}, "", adminCaller())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAdjudicationService_SuccessfulOverride(t *testing.T) {
	matches := &fakeMatchStore{match: scheduledMatch()}
	audit := &fakeAuditWriter{}
	svc := NewAdjudicationService(matches, audit)

	data := &models.MatchData{
		Games: []models.GameResult{
			{Number: 1, ScoreA: 11, ScoreB: 7, WinnerID: "A"},
			{Number: 2, ScoreA: 9, ScoreB: 11, WinnerID: "B"},
			{Number: 3, ScoreA: 11, ScoreB: 4, WinnerID: "A"},
		},
		MVPID: "A",
	}
	outcome, err := svc.OverrideResult(context.Background(), "m1",
		MatchResultInput{ScoreA: 2, ScoreB: 1, WinnerID: "A", MatchData: data},
		"scorekeeper error in game 3", adminCaller())

	require.NoError(t, err)
	assert.True(t, outcome.AuditLogged)
	assert.Equal(t, models.MatchStatusScheduled, outcome.PriorStatus)
	assert.Equal(t, models.MatchStatusCompleted, outcome.Match.Status)
	assert.Equal(t, int64(2), outcome.Match.ScoreA)
	assert.Equal(t, int64(1), outcome.Match.ScoreB)
	assert.Equal(t, "A", outcome.Match.WinnerID)
	require.NotNil(t, outcome.Match.CompletedAt)

	// exactly one audit entry, capturing the prior status
	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, models.AdminActionOverrideMatch, entry.Action)
	assert.Equal(t, "match", entry.TargetType)
	assert.Equal(t, "m1", entry.TargetID)
	assert.Equal(t, "admin-1", entry.AdminID)
	assert.Equal(t, "scorekeeper error in game 3", entry.Reason)
	assert.Equal(t, models.MatchStatusScheduled, entry.Details["prior_status"])
}

func TestAdjudicationService_OrganizerMayOverride(t *testing.T) {
	matches := &fakeMatchStore{match: scheduledMatch()}
	svc := NewAdjudicationService(matches, &fakeAuditWriter{})

	outcome, err := svc.OverrideResult(context.Background(), "m1",
		MatchResultInput{ScoreA: 0, ScoreB: 2, WinnerID: "B"}, "",
		Caller{UserID: "org-1", Role: RoleOrganizer})

	require.NoError(t, err)
	assert.Equal(t, "B", outcome.Match.WinnerID)
}

func TestAdjudicationService_CompletedMatchCanBeCorrected(t *testing.T) {
	// No compare-and-swap here: override is a correction mechanism, the
	// prior result gets replaced and the old status lands in the audit trail.
	match := scheduledMatch()
	match.Status = models.MatchStatusCompleted
	match.WinnerID = "B"
	matches := &fakeMatchStore{match: match}
	audit := &fakeAuditWriter{}
	svc := NewAdjudicationService(matches, audit)

	outcome, err := svc.OverrideResult(context.Background(), "m1",
		MatchResultInput{ScoreA: 2, ScoreB: 0, WinnerID: "A"}, "dispute resolved", adminCaller())

	require.NoError(t, err)
	assert.Equal(t, "A", outcome.Match.WinnerID)
	assert.Equal(t, models.MatchStatusCompleted, outcome.PriorStatus)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.MatchStatusCompleted, audit.entries[0].Details["prior_status"])
}

func TestAdjudicationService_AuditFailureDoesNotFailOverride(t *testing.T) {
	matches := &fakeMatchStore{match: scheduledMatch()}
	audit := &fakeAuditWriter{fail: true}
	svc := NewAdjudicationService(matches, audit)

	outcome, err := svc.OverrideResult(context.Background(), "m1",
		MatchResultInput{ScoreA: 1, ScoreB: 0, WinnerID: "A"}, "", adminCaller())

	require.NoError(t, err, "a lost audit entry must not fail the committed override")
	assert.False(t, outcome.AuditLogged)
	assert.Equal(t, models.MatchStatusCompleted, outcome.Match.Status)
}

func TestAdjudicationService_DefaultReason(t *testing.T) {
	matches := &fakeMatchStore{match: scheduledMatch()}
	audit := &fakeAuditWriter{}
	svc := NewAdjudicationService(matches, audit)

	_, err := svc.OverrideResult(context.Background(), "m1",
		MatchResultInput{ScoreA: 1, ScoreB: 0, WinnerID: "A"}, "", adminCaller())

	require.NoError(t, err)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, defaultOverrideReason, audit.entries[0].Reason)
}

func TestAdjudicationService_OverrideClearsStaleGameBreakdown(t *testing.T) {
	// Correcting a result without a new breakdown must also drop the old one;
	// otherwise the row carries games contradicting its own scores.
	match := scheduledMatch()
	match.Status = models.MatchStatusCompleted
	match.ScoreA = 2
	match.ScoreB = 0
	match.WinnerID = "A"
	match.MatchData = &models.MatchData{Games: []models.GameResult{
		{Number: 1, ScoreA: 11, ScoreB: 3, WinnerID: "A"},
		{Number: 2, ScoreA: 11, ScoreB: 8, WinnerID: "A"},
	}}
	matches := &fakeMatchStore{match: match}
	svc := NewAdjudicationService(matches, &fakeAuditWriter{})

	outcome, err := svc.OverrideResult(context.Background(), "m1",
		MatchResultInput{ScoreA: 0, ScoreB: 2, WinnerID: "B"}, "reversed on protest", adminCaller())

	require.NoError(t, err)
	assert.Equal(t, "B", outcome.Match.WinnerID)
	assert.Nil(t, outcome.Match.MatchData)
}

func TestAdjudicationService_ScoresMustMatchGameResults(t *testing.T) {
	tests := []struct {
		name   string
		result MatchResultInput
	}{
		{
			"aggregate overstates the loser",
			MatchResultInput{ScoreA: 2, ScoreB: 1, WinnerID: "A", MatchData: &models.MatchData{
				Games: []models.GameResult{
					{Number: 1, ScoreA: 11, ScoreB: 5, WinnerID: "A"},
					{Number: 2, ScoreA: 11, ScoreB: 9, WinnerID: "A"},
				},
			}},
		},
		{
			"aggregate credits the wrong side",
			MatchResultInput{ScoreA: 2, ScoreB: 0, WinnerID: "A", MatchData: &models.MatchData{
				Games: []models.GameResult{
					{Number: 1, ScoreA: 11, ScoreB: 5, WinnerID: "A"},
					{Number: 2, ScoreA: 7, ScoreB: 11, WinnerID: "B"},
				},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := &fakeMatchStore{match: scheduledMatch()}
			svc := NewAdjudicationService(matches, &fakeAuditWriter{})

			_, err := svc.OverrideResult(context.Background(), "m1", tt.result, "", adminCaller())
			assert.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Zero(t, matches.updateCalls, "an inconsistent result must not be committed")
		})
	}
}
