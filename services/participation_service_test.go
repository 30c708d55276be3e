package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/common"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/store"
)

// fakeTournamentStore implements store.TournamentStore in memory with the
// same compare-and-swap discipline as the real one.
type fakeTournamentStore struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament

	// readBarrier, when set, blocks GetTournament until every concurrent
	// reader has arrived. Used to force two writers onto the same snapshot.
	readBarrier *sync.WaitGroup

	// afterGet, when set, runs after a snapshot is taken. Used to commit a
	// competing write between a caller's read and its write.
	afterGet func()
}

func newFakeTournamentStore(ts ...*models.Tournament) *fakeTournamentStore {
	s := &fakeTournamentStore{tournaments: map[string]*models.Tournament{}}
	for _, t := range ts {
		s.tournaments[t.ID] = t
	}
	return s
}

func (s *fakeTournamentStore) GetTournament(ctx context.Context, id string) (*models.Tournament, int64, error) {
	s.mu.Lock()
	t, ok := s.tournaments[id]
	if !ok {
		s.mu.Unlock()
		return nil, 0, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
	}
	snapshot := *t
	snapshot.Participants = append(models.ParticipantList{}, t.Participants...)
	s.mu.Unlock()

	if s.readBarrier != nil {
		s.readBarrier.Done()
		s.readBarrier.Wait()
	}
	if s.afterGet != nil {
		s.afterGet()
	}
	return &snapshot, snapshot.Version, nil
}

func (s *fakeTournamentStore) UpdateLifecycle(ctx context.Context, id string, update store.LifecycleUpdate) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
	}
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.ClearPublishAt {
		t.PublishAt = nil
	} else if update.PublishAt != nil {
		at := *update.PublishAt
		t.PublishAt = &at
	}
	snapshot := *t
	snapshot.Participants = append(models.ParticipantList{}, t.Participants...)
	return &snapshot, nil
}

func (s *fakeTournamentStore) UpdateParticipants(ctx context.Context, id string, participants models.ParticipantList, expectedVersion int64) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
	}
	if t.Version != expectedVersion {
		return nil, common.ErrConflict
	}
	t.Participants = participants
	t.Version++
	snapshot := *t
	snapshot.Participants = append(models.ParticipantList{}, t.Participants...)
	return &snapshot, nil
}

func registrationTournament(id string, maxParticipants int, participants ...string) *models.Tournament {
	return &models.Tournament{
		ID:              id,
		Name:            "Test Cup",
		Status:          models.TournamentStatusRegistration,
		Participants:    models.ParticipantList(participants),
		MaxParticipants: maxParticipants,
	}
}

func TestParticipationService_JoinSequence(t *testing.T) {
	// max 2, empty: u1 joins, u1 again is rejected, u2 joins, u3 bounces off the cap.
	store := newFakeTournamentStore(registrationTournament("t1", 2))
	svc := NewParticipationService(store)
	ctx := context.Background()

	got, err := svc.Join(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantList{"u1"}, got.Participants)

	_, err = svc.Join(ctx, "t1", "u1")
	assert.ErrorIs(t, err, common.ErrAlreadyRegistered)

	got, err = svc.Join(ctx, "t1", "u2")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantList{"u1", "u2"}, got.Participants)

	_, err = svc.Join(ctx, "t1", "u3")
	assert.ErrorIs(t, err, common.ErrTournamentFull)

	// capacity invariant held throughout
	final, _, err := store.GetTournament(ctx, "t1")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(final.Participants), final.MaxParticipants)
}

func TestParticipationService_JoinLifecycleStates(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr error
	}{
		{"registration is open", models.TournamentStatusRegistration, nil},
		{"upcoming is open", models.TournamentStatusUpcoming, nil},
		{"draft is closed", models.TournamentStatusDraft, common.ErrInvalidState},
		{"active is closed", models.TournamentStatusActive, common.ErrInvalidState},
		{"completed is closed", models.TournamentStatusCompleted, common.ErrInvalidState},
		{"cancelled is closed", models.TournamentStatusCancelled, common.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tournament := registrationTournament("t1", 8)
			tournament.Status = tt.status
			svc := NewParticipationService(newFakeTournamentStore(tournament))

			_, err := svc.Join(context.Background(), "t1", "u1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParticipationService_JoinUnknownTournament(t *testing.T) {
	svc := NewParticipationService(newFakeTournamentStore())
	_, err := svc.Join(context.Background(), "nope", "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestParticipationService_ConcurrentJoinLastSeat(t *testing.T) {
	// One open seat, two writers on the same snapshot: exactly one wins, the
	// loser sees Conflict, not Full.
	store := newFakeTournamentStore(registrationTournament("t1", 2, "u0"))
	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	store.readBarrier = barrier

	svc := NewParticipationService(store)

	errs := make(chan error, 2)
	for _, user := range []string{"u1", "u2"} {
		go func(userID string) {
			_, err := svc.Join(context.Background(), "t1", userID)
			errs <- err
		}(user)
	}

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		err := <-errs
		switch {
		case err == nil:
			successes++
		case errors.Is(err, common.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	store.readBarrier = nil
	final, _, err := store.GetTournament(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, final.Participants, 2)
}

func TestParticipationService_Leave(t *testing.T) {
	store := newFakeTournamentStore(registrationTournament("t1", 4, "u1", "u2"))
	svc := NewParticipationService(store)
	ctx := context.Background()

	got, err := svc.Leave(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantList{"u2"}, got.Participants)

	// leaving twice: second call must report NotRegistered, not succeed silently
	_, err = svc.Leave(ctx, "t1", "u1")
	assert.ErrorIs(t, err, common.ErrNotRegistered)
}

func TestParticipationService_LeaveClosedStates(t *testing.T) {
	for _, status := range []string{models.TournamentStatusActive, models.TournamentStatusCompleted} {
		t.Run(status, func(t *testing.T) {
			tournament := registrationTournament("t1", 4, "u1")
			tournament.Status = status
			svc := NewParticipationService(newFakeTournamentStore(tournament))

			_, err := svc.Leave(context.Background(), "t1", "u1")
			assert.ErrorIs(t, err, common.ErrInvalidState)
		})
	}
}

func TestParticipationService_LeaveFromDraftAndCancelled(t *testing.T) {
	// Leave is only blocked for active/completed; a registered user can bail
	// out of a cancelled tournament.
	for _, status := range []string{models.TournamentStatusCancelled, models.TournamentStatusDraft} {
		t.Run(status, func(t *testing.T) {
			tournament := registrationTournament("t1", 4, "u1")
			tournament.Status = status
			svc := NewParticipationService(newFakeTournamentStore(tournament))

			got, err := svc.Leave(context.Background(), "t1", "u1")
			require.NoError(t, err)
			assert.Empty(t, got.Participants)
		})
	}
}

func TestParticipationService_NoDuplicatesAfterMixedOps(t *testing.T) {
	store := newFakeTournamentStore(registrationTournament("t1", 8))
	svc := NewParticipationService(store)
	ctx := context.Background()

	for _, op := range []struct {
		join bool
		user string
	}{
		{true, "u1"}, {true, "u2"}, {false, "u1"}, {true, "u1"}, {true, "u3"},
	} {
		if op.join {
			_, _ = svc.Join(ctx, "t1", op.user)
		} else {
			_, _ = svc.Leave(ctx, "t1", op.user)
		}
	}

	final, _, err := store.GetTournament(ctx, "t1")
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, id := range final.Participants {
		assert.False(t, seen[id], "duplicate participant %s", id)
		seen[id] = true
	}
	assert.Equal(t, models.ParticipantList{"u2", "u1", "u3"}, final.Participants)
}
