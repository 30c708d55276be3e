// services/users.go
package services

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/models"
)

// SearchUsers searches the mirrored TournamentUser table. Profiles are synced
// by the profile sync worker, so results may lag the profile service slightly.
func (s *TournamentService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.TournamentUser{}).Where("is_banned = ?", false).Limit(limit)
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ?",
			searchTerm, searchTerm,
		)
	}

	var users []models.TournamentUser
	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	// Minimal response shape; ExternalUserID is the identifier clients use
	// everywhere else (participants, match references).
	type UserSummary struct {
		ExternalUserID string `json:"external_user_id"`
		Username       string `json:"username"`
	}
	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
		}
	}

	return c.JSON(res)
}
