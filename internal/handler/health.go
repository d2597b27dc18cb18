package handler

import (
	"context"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthHandler struct {
	pool    *pgxpool.Pool // nil when no archive is configured
	hub     *service.WSHub
	convSvc *service.ConversationService
}

func NewHealthHandler(pool *pgxpool.Pool, hub *service.WSHub, convSvc *service.ConversationService) *HealthHandler {
	return &HealthHandler{pool: pool, hub: hub, convSvc: convSvc}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":               "ok",
		"active_conversations": h.convSvc.ActiveCount(),
		"connected_pages":      h.hub.OnlineCount(),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.pool == nil {
		return c.JSON(fiber.Map{"status": "ready"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		return c.Status(503).JSON(fiber.Map{"status": "not ready", "error": "database unreachable"})
	}

	return c.JSON(fiber.Map{"status": "ready"})
}
