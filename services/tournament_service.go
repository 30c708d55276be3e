package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/common"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/store"
	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/utils"
)

// TournamentService handles the tournament CRUD/publishing surface. Join and
// leave live in ParticipationService; result overrides in AdjudicationService.
// Status and publish transitions write through Tournaments so they never
// touch the participants/version columns owned by the participation flow.
type TournamentService struct {
	DB          *gorm.DB
	Tournaments store.TournamentStore
	Audit       store.AuditWriter
}

func NewTournamentService(db *gorm.DB, tournaments store.TournamentStore, audit store.AuditWriter) *TournamentService {
	return &TournamentService{DB: db, Tournaments: tournaments, Audit: audit}
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	caller := CallerFromCtx(c)
	if caller.Role != RoleAdmin && caller.Role != RoleOrganizer {
		return common.RespondError(c, fmt.Errorf("only admins and organizers can create tournaments: %w", common.ErrForbidden))
	}

	// --- Parse form values ---
	name := c.FormValue("name")
	description := c.FormValue("description")
	gameTitle := c.FormValue("game_title")
	maxParticipantsStr := c.FormValue("max_participants")
	prizePool := c.FormValue("prize_pool")
	startTimeStr := c.FormValue("start_time")
	endTimeStr := c.FormValue("end_time")
	publishScheduleStr := c.FormValue("publish_schedule") // Expected format: RFC3339

	// --- Validation ---
	if name == "" || startTimeStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and start_time are required"})
	}

	maxParticipants := 0
	if n, err := strconv.Atoi(maxParticipantsStr); err == nil && n > 0 {
		maxParticipants = n
	} else {
		return c.Status(400).JSON(fiber.Map{"error": "max_participants must be a positive integer"})
	}

	startTime, err := time.Parse(time.RFC3339, startTimeStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
	}

	var endTime *time.Time
	if endTimeStr != "" {
		et, err := time.Parse(time.RFC3339, endTimeStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid end_time (use RFC3339)"})
		}
		endTime = &et
	}

	var publishAt *time.Time
	if publishScheduleStr != "" {
		scheduledTime, err := time.Parse(time.RFC3339, publishScheduleStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid publish_schedule (use RFC3339)"})
		}
		publishAt = &scheduledTime
	}

	tournamentID := uuid.NewString()

	// --- Handle cover photo (R2 if configured, local uploads/ otherwise) ---
	var coverPhotoURL string
	if cover, err := c.FormFile("cover_photo"); err == nil && cover.Size > 0 {
		ext := filepath.Ext(cover.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		key := "tournaments/covers/" + tournamentID + ext
		url, err := utils.StoreUpload(cover, key)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to store cover photo"})
		}
		coverPhotoURL = url
	}

	// --- Handle gallery photos (up to 5) ---
	var photos []models.TournamentPhoto
	for i := 0; i < 5; i++ {
		field := fmt.Sprintf("photos[%d]", i)
		photo, err := c.FormFile(field)
		if err != nil || photo.Size == 0 {
			continue
		}
		ext := filepath.Ext(photo.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		key := "tournaments/photos/" + uuid.NewString() + ext
		url, err := utils.StoreUpload(photo, key)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": fmt.Sprintf("failed to store photo %d", i+1)})
		}
		photos = append(photos, models.TournamentPhoto{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			URL:          url,
			SortOrder:    i,
		})
	}

	tournament := models.Tournament{
		ID:              tournamentID,
		Slug:            slug.Make(name) + "-" + tournamentID[:8],
		Name:            name,
		Description:     description,
		GameTitle:       gameTitle,
		CreatorID:       caller.UserID,
		Status:          models.TournamentStatusDraft,
		Participants:    models.ParticipantList{},
		MaxParticipants: maxParticipants,
		CoverPhotoURL:   coverPhotoURL,
		PrizePool:       prizePool,
		PublishAt:       publishAt,
		StartTime:       startTime,
		EndTime:         endTime,
		Photos:          photos,
	}

	if err := s.DB.Create(&tournament).Error; err != nil {
		log.Printf("[TOURNAMENT] create failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create tournament", "details": err.Error()})
	}

	log.Printf("[TOURNAMENT] created %s (%s) by %s", tournament.ID, tournament.Name, caller.UserID)
	return c.Status(201).JSON(tournament)
}

// GetAllTournaments returns every tournament regardless of status (staff view).
func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	if err := s.DB.Order("created_at DESC").Find(&tournaments).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

// GetPublishedTournaments returns only tournaments visible to players.
func (s *TournamentService) GetPublishedTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	err := s.DB.
		Where("status IN ?", []string{
			models.TournamentStatusRegistration,
			models.TournamentStatusUpcoming,
			models.TournamentStatusActive,
			models.TournamentStatusCompleted,
		}).
		Order("start_time ASC").
		Find(&tournaments).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var tournament models.Tournament
	if err := s.DB.Preload("Photos").First(&tournament, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}
	return c.JSON(tournament)
}

// GetTournamentParticipants resolves the participant id set against the
// mirrored profile table so clients get display names without another hop.
func (s *TournamentService) GetTournamentParticipants(c *fiber.Ctx) error {
	id := c.Params("id")
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}

	var users []models.TournamentUser
	if len(tournament.Participants) > 0 {
		if err := s.DB.Where("external_user_id IN ?", []string(tournament.Participants)).Find(&users).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participant profiles"})
		}
	}

	// Participants without a synced profile still count; return them as bare ids.
	known := make(map[string]models.TournamentUser, len(users))
	for _, u := range users {
		known[u.ExternalUserID] = u
	}
	type ParticipantSummary struct {
		ExternalUserID    string  `json:"external_user_id"`
		Username          string  `json:"username,omitempty"`
		ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	}
	res := make([]ParticipantSummary, 0, len(tournament.Participants))
	for _, pid := range tournament.Participants {
		summary := ParticipantSummary{ExternalUserID: pid}
		if u, ok := known[pid]; ok {
			summary.Username = u.Username
			summary.ProfilePictureURL = u.ProfilePictureURL
		}
		res = append(res, summary)
	}

	return c.JSON(fiber.Map{
		"tournament_id":    tournament.ID,
		"max_participants": tournament.MaxParticipants,
		"count":            len(res),
		"participants":     res,
	})
}

// validStatusTransitions guards manual status changes. The scheduler handles
// publish/start automatically; staff can still move things by hand.
var validStatusTransitions = map[string][]string{
	models.TournamentStatusDraft:        {models.TournamentStatusRegistration, models.TournamentStatusCancelled},
	models.TournamentStatusRegistration: {models.TournamentStatusUpcoming, models.TournamentStatusActive, models.TournamentStatusCancelled},
	models.TournamentStatusUpcoming:     {models.TournamentStatusActive, models.TournamentStatusCancelled},
	models.TournamentStatusActive:       {models.TournamentStatusCompleted, models.TournamentStatusCancelled},
}

func (s *TournamentService) UpdateTournamentStatus(c *fiber.Ctx) error {
	caller := CallerFromCtx(c)
	if caller.Role != RoleAdmin && caller.Role != RoleOrganizer {
		return common.RespondError(c, fmt.Errorf("only admins and organizers can change tournament status: %w", common.ErrForbidden))
	}

	id := c.Params("id")
	type Req struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	tournament, _, err := s.Tournaments.GetTournament(c.UserContext(), id)
	if err != nil {
		return common.RespondError(c, err)
	}

	allowed := false
	for _, next := range validStatusTransitions[tournament.Status] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return common.RespondError(c, fmt.Errorf("cannot move tournament from %s to %s: %w",
			tournament.Status, req.Status, common.ErrInvalidState))
	}

	// Column-scoped write: a join committing between the read above and this
	// write must survive, so the participants/version columns stay untouched.
	priorStatus := tournament.Status
	tournament, err = s.Tournaments.UpdateLifecycle(c.UserContext(), id, store.LifecycleUpdate{Status: &req.Status})
	if err != nil {
		return common.RespondError(c, err)
	}

	// Best effort, same policy as adjudication: the status change stands even
	// if the audit entry is lost.
	if err := s.Audit.Append(c.UserContext(), &models.AdminLogEntry{
		ID:         uuid.NewString(),
		Action:     models.AdminActionStatusChange,
		TargetType: "tournament",
		TargetID:   tournament.ID,
		AdminID:    caller.UserID,
		AdminName:  caller.DisplayName,
		Reason:     req.Reason,
		Details:    models.JSONMap{"prior_status": priorStatus, "new_status": req.Status},
	}); err != nil {
		log.Printf("[TOURNAMENT] audit append failed for status change on %s: %v", tournament.ID, err)
	}

	log.Printf("[TOURNAMENT] %s status %s -> %s by %s", tournament.ID, priorStatus, req.Status, caller.UserID)
	return c.JSON(tournament)
}

// PublishNow opens registration immediately for a draft tournament.
func (s *TournamentService) PublishNow(c *fiber.Ctx) error {
	return s.publish(c, nil)
}

// SchedulePublish stores a future publish time picked up by the scheduler.
func (s *TournamentService) SchedulePublish(c *fiber.Ctx) error {
	type Req struct {
		PublishAt string `json:"publish_at"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	at, err := time.Parse(time.RFC3339, req.PublishAt)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid publish_at (use RFC3339)"})
	}
	if at.Before(time.Now()) {
		return c.Status(400).JSON(fiber.Map{"error": "publish_at must be in the future"})
	}
	return s.publish(c, &at)
}

func (s *TournamentService) publish(c *fiber.Ctx, at *time.Time) error {
	caller := CallerFromCtx(c)
	if caller.Role != RoleAdmin && caller.Role != RoleOrganizer {
		return common.RespondError(c, fmt.Errorf("only admins and organizers can publish tournaments: %w", common.ErrForbidden))
	}

	id := c.Params("id")
	tournament, _, err := s.Tournaments.GetTournament(c.UserContext(), id)
	if err != nil {
		return common.RespondError(c, err)
	}
	if tournament.Status != models.TournamentStatusDraft {
		return common.RespondError(c, fmt.Errorf("only draft tournaments can be published (current: %s): %w",
			tournament.Status, common.ErrInvalidState))
	}

	var update store.LifecycleUpdate
	if at == nil {
		status := models.TournamentStatusRegistration
		update = store.LifecycleUpdate{Status: &status, ClearPublishAt: true}
	} else {
		update = store.LifecycleUpdate{PublishAt: at}
	}
	tournament, err = s.Tournaments.UpdateLifecycle(c.UserContext(), id, update)
	if err != nil {
		return common.RespondError(c, err)
	}

	if err := s.Audit.Append(c.UserContext(), &models.AdminLogEntry{
		ID:         uuid.NewString(),
		Action:     models.AdminActionPublishSchedule,
		TargetType: "tournament",
		TargetID:   tournament.ID,
		AdminID:    caller.UserID,
		AdminName:  caller.DisplayName,
		Details:    models.JSONMap{"publish_at": tournament.PublishAt, "immediate": at == nil},
	}); err != nil {
		log.Printf("[TOURNAMENT] audit append failed for publish on %s: %v", tournament.ID, err)
	}

	return c.JSON(tournament)
}

// CancelScheduledPublish clears a pending publish_at on a draft tournament.
func (s *TournamentService) CancelScheduledPublish(c *fiber.Ctx) error {
	caller := CallerFromCtx(c)
	if caller.Role != RoleAdmin && caller.Role != RoleOrganizer {
		return common.RespondError(c, fmt.Errorf("only admins and organizers can cancel a scheduled publish: %w", common.ErrForbidden))
	}

	id := c.Params("id")
	res := s.DB.Model(&models.Tournament{}).
		Where("id = ? AND status = ?", id, models.TournamentStatusDraft).
		Update("publish_at", nil)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to cancel scheduled publish"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "draft tournament not found"})
	}
	return c.JSON(fiber.Map{"message": "scheduled publish cancelled"})
}

// GetAdminLogs returns the audit trail, newest first (admin only).
func (s *TournamentService) GetAdminLogs(c *fiber.Ctx) error {
	caller := CallerFromCtx(c)
	if caller.Role != RoleAdmin {
		return common.RespondError(c, fmt.Errorf("only admins can read the audit log: %w", common.ErrForbidden))
	}

	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}

	q := s.DB.Model(&models.AdminLogEntry{}).Order("created_at DESC").Limit(limit)
	if target := c.Query("target_id"); target != "" {
		q = q.Where("target_id = ?", target)
	}
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	var entries []models.AdminLogEntry
	if err := q.Find(&entries).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch admin logs"})
	}
	return c.JSON(entries)
}
