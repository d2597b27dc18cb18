package handler

import (
	"log"
	"strconv"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// HistoryHandler serves archived transcripts. Only wired when DATABASE_URL
// is configured.
type HistoryHandler struct {
	repo *repository.TranscriptRepository
}

func NewHistoryHandler(repo *repository.TranscriptRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// GetHistory returns the archived transcript of a conversation, oldest first.
// GET /api/v1/conversations/:id/history?limit=50
func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	conversationID := c.Params("id")

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	msgs, err := h.repo.GetHistory(c.Context(), conversationID, limit)
	if err != nil {
		log.Printf("[history] query error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get history"})
	}

	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(fiber.Map{"messages": msgs})
}
