package services

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
)

func newStaffApp(svc *TournamentService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "admin-1")
		c.Locals("user_role", RoleAdmin)
		c.Locals("user_name", "Admin One")
		return c.Next()
	})
	app.Patch("/tournaments/:id/status", svc.UpdateTournamentStatus)
	app.Post("/tournaments/:id/publish/now", svc.PublishNow)
	return app
}

func TestTournamentService_StatusChangePreservesConcurrentJoin(t *testing.T) {
	// A join commits between the handler's read and its status write. The
	// write is column-scoped, so the join and the bumped version token must
	// both survive the transition.
	st := newFakeTournamentStore(registrationTournament("t1", 8, "u1"))
	var once sync.Once
	st.afterGet = func() {
		once.Do(func() {
			_, err := st.UpdateParticipants(context.Background(), "t1", models.ParticipantList{"u1", "u2"}, 0)
			require.NoError(t, err)
		})
	}
	svc := NewTournamentService(nil, st, &fakeAuditWriter{})
	app := newStaffApp(svc)

	req := httptest.NewRequest("PATCH", "/tournaments/t1/status",
		bytes.NewBufferString(`{"status":"upcoming"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	st.afterGet = nil
	final, version, err := st.GetTournament(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusUpcoming, final.Status)
	assert.Equal(t, models.ParticipantList{"u1", "u2"}, final.Participants,
		"a join committed mid-transition must not be erased by the status write")
	assert.Equal(t, int64(1), version, "version token must not regress")
}

func TestTournamentService_RejectsInvalidTransition(t *testing.T) {
	st := newFakeTournamentStore(registrationTournament("t1", 8))
	svc := NewTournamentService(nil, st, &fakeAuditWriter{})
	app := newStaffApp(svc)

	req := httptest.NewRequest("PATCH", "/tournaments/t1/status",
		bytes.NewBufferString(`{"status":"draft"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	final, _, err := st.GetTournament(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusRegistration, final.Status)
}

func TestTournamentService_PublishNow(t *testing.T) {
	tournament := registrationTournament("t1", 8)
	tournament.Status = models.TournamentStatusDraft
	at := time.Now().Add(time.Hour)
	tournament.PublishAt = &at
	st := newFakeTournamentStore(tournament)
	audit := &fakeAuditWriter{}
	svc := NewTournamentService(nil, st, audit)
	app := newStaffApp(svc)

	req := httptest.NewRequest("POST", "/tournaments/t1/publish/now", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	final, _, err := st.GetTournament(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusRegistration, final.Status)
	assert.Nil(t, final.PublishAt)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AdminActionPublishSchedule, audit.entries[0].Action)
}
