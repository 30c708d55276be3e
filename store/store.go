// Package store defines the persistence contract consumed by the participation and
// adjudication services, plus its GORM/Postgres implementation. Keeping the
// services on these interfaces keeps them testable without a database.
package store

import (
	"context"
	"time"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
)

// TournamentStore reads and conditionally writes tournament rows.
type TournamentStore interface {
	// GetTournament returns the tournament and the version token observed at
	// read time. The token must be passed back to UpdateParticipants.
	GetTournament(ctx context.Context, id string) (*models.Tournament, int64, error)

	// UpdateParticipants replaces the participant set if and only if the row
	// version still equals expectedVersion (compare-and-swap). Returns
	// common.ErrConflict when another writer raced ahead.
	UpdateParticipants(ctx context.Context, id string, participants models.ParticipantList, expectedVersion int64) (*models.Tournament, error)

	// UpdateLifecycle writes the status/publish columns only. The participants
	// and version columns are never part of this write: a full-row save here
	// would silently undo a participant update committed between the caller's
	// read and this write.
	UpdateLifecycle(ctx context.Context, id string, update LifecycleUpdate) (*models.Tournament, error)
}

// LifecycleUpdate is the column set written by status and publish
// transitions. Nil fields are left untouched.
type LifecycleUpdate struct {
	Status         *string
	PublishAt      *time.Time
	ClearPublishAt bool
}

// MatchStore reads match rows and commits result overrides.
type MatchStore interface {
	GetMatch(ctx context.Context, id string) (*models.Match, error)

	// UpdateMatchResult commits the fields unconditionally (last-writer-wins):
	// administrative override is a correction mechanism, the operator's
	// decision is authoritative regardless of the row's prior state.
	UpdateMatchResult(ctx context.Context, id string, fields MatchResultFields) (*models.Match, error)
}

// MatchResultFields is the set of columns written by a result override.
type MatchResultFields struct {
	ScoreA      int64
	ScoreB      int64
	WinnerID    string
	MatchData   *models.MatchData
	Status      string
	CompletedAt time.Time
}

// AuditWriter appends immutable admin log entries. Append failures are the
// caller's to report; they never roll back the primary write.
type AuditWriter interface {
	Append(ctx context.Context, entry *models.AdminLogEntry) error
}
