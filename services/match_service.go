package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/common"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
)

// MatchService handles match creation and reads. Result overrides are the
// AdjudicationService's job.
type MatchService struct {
	DB *gorm.DB
}

func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{DB: db}
}

// CreateMatch registers a fixture between two tournament participants.
// This service does not generate brackets; fixtures come from staff or an
// external bracket tool.
func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	caller := CallerFromCtx(c)
	if caller.Role != RoleAdmin && caller.Role != RoleOrganizer {
		return common.RespondError(c, fmt.Errorf("only admins and organizers can create matches: %w", common.ErrForbidden))
	}

	tournamentID := c.Params("id")
	type Req struct {
		ParticipantAID string     `json:"participant_a_id"`
		ParticipantBID string     `json:"participant_b_id"`
		ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.ParticipantAID == "" || req.ParticipantBID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participant_a_id and participant_b_id are required"})
	}
	if req.ParticipantAID == req.ParticipantBID {
		return c.Status(400).JSON(fiber.Map{"error": "a participant cannot be matched against themselves"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}

	if !tournament.Participants.Contains(req.ParticipantAID) || !tournament.Participants.Contains(req.ParticipantBID) {
		return c.Status(400).JSON(fiber.Map{"error": "both participants must be registered in the tournament"})
	}

	match := models.Match{
		ID:             uuid.NewString(),
		TournamentID:   tournament.ID,
		ParticipantAID: req.ParticipantAID,
		ParticipantBID: req.ParticipantBID,
		Status:         models.MatchStatusScheduled,
		ScheduledAt:    req.ScheduledAt,
	}
	if err := s.DB.Create(&match).Error; err != nil {
		log.Printf("[MATCH] create failed for tournament %s: %v", tournament.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create match", "details": err.Error()})
	}

	log.Printf("[MATCH] created %s in tournament %s (%s vs %s)", match.ID, tournament.ID, req.ParticipantAID, req.ParticipantBID)
	return c.Status(201).JSON(match)
}

// ListTournamentMatches returns all matches for a tournament.
func (s *MatchService) ListTournamentMatches(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	var matches []models.Match
	err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("created_at ASC").
		Find(&matches).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}
	return c.JSON(matches)
}

func (s *MatchService) GetMatchByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var match models.Match
	if err := s.DB.First(&match, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching match"})
	}
	return c.JSON(match)
}
