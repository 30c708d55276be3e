package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/middleware"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/services"
)

// SetupTournamentRoutes wires the tournament surface. Anything mutating state
// sits behind UserContextMiddleware; role checks happen in the services,
// per-call.
func SetupTournamentRoutes(
	app *fiber.App,
	tournamentService *services.TournamentService,
	participationService *services.ParticipationService,
	matchService *services.MatchService,
	adjudicationService *services.AdjudicationService,
	authClient *services.AuthServiceClient,
) {
	// 🔓 Public routes (published tournaments only)
	app.Get("/tournaments/published", tournamentService.GetPublishedTournaments)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware(authClient))

	// Tournament CRUD (role checks inside the service)
	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Get("/tournaments", tournamentService.GetAllTournaments)
	secured.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	secured.Patch("/tournaments/:id/status", tournamentService.UpdateTournamentStatus)

	// Publish scheduling
	secured.Post("/tournaments/:id/publish/now", tournamentService.PublishNow)
	secured.Post("/tournaments/:id/publish/schedule", tournamentService.SchedulePublish)
	secured.Post("/tournaments/:id/publish/cancel", tournamentService.CancelScheduledPublish)

	// Participation (any authenticated user, own identity only)
	secured.Post("/tournaments/:id/join", participationService.JoinTournament)
	secured.Post("/tournaments/:id/leave", participationService.LeaveTournament)
	secured.Get("/tournaments/:id/participants", tournamentService.GetTournamentParticipants)

	// Matches
	secured.Post("/tournaments/:id/matches", matchService.CreateMatch)
	secured.Get("/tournaments/:id/matches", matchService.ListTournamentMatches)
	secured.Get("/matches/:id", matchService.GetMatchByID)

	// Users (mirrored profiles)
	secured.Get("/users/search", tournamentService.SearchUsers)

	// 🔒 Admin routes
	admin := secured.Group("/admin")
	admin.Post("/matches/:id/override", adjudicationService.OverrideMatchResult)
	admin.Get("/logs", tournamentService.GetAdminLogs)
}
