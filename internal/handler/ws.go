package handler

import (
	"encoding/json"
	"log"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WSHandler struct {
	hub        *service.WSHub
	convSvc    *service.ConversationService
	sessionSvc *service.SessionService
}

func NewWSHandler(hub *service.WSHub, convSvc *service.ConversationService, sessionSvc *service.SessionService) *WSHandler {
	return &WSHandler{hub: hub, convSvc: convSvc, sessionSvc: sessionSvc}
}

// Upgrade authenticates the page and upgrades to a websocket scoped to one
// conversation. The session token travels as a query param because browsers
// cannot set headers on websocket connects.
// GET /ws?conversation_id=...&token=...
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		token = c.Cookies(sessionCookie)
	}
	if token == "" {
		return c.Status(401).JSON(fiber.Map{"error": "token required"})
	}

	identity, err := h.sessionSvc.ValidateToken(token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
	}

	conversationID := c.Query("conversation_id")
	endUserID, ok := h.convSvc.EndUserID(conversationID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "unknown conversation"})
	}
	if endUserID != identity.EndUserID {
		return c.Status(403).JSON(fiber.Map{"error": "conversation belongs to another user"})
	}

	c.Locals("end_user_id", identity.EndUserID)
	c.Locals("conversation_id", conversationID)
	return websocket.New(h.handleConnection)(c)
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	endUserID, _ := c.Locals("end_user_id").(string)
	conversationID, _ := c.Locals("conversation_id").(string)

	client := &service.WSClient{
		Conn:           c,
		EndUserID:      endUserID,
		ConversationID: conversationID,
		Send:           make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	// Writer goroutine
	go func() {
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader loop
	c.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}

		// Reset deadline on any message
		c.SetReadDeadline(time.Now().Add(60 * time.Second))

		var event model.WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}

		switch event.Type {
		case "ping":
			pong, _ := json.Marshal(model.WSEvent{Type: "pong"})
			select {
			case client.Send <- pong:
			default:
			}
		default:
			log.Printf("[ws] unknown event type %s from %s", event.Type, endUserID)
		}
	}
}
