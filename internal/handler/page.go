package handler

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed chat.html
var chatPage string

type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Index serves the chat page.
// GET /
func (h *PageHandler) Index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(chatPage)
}
