package handler

import (
	"errors"
	"log"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/ada"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/integration"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	sessionCookie = "ada_demo_session"

	// Avatar shown for the browser user in the transcript.
	defaultAvatar = "https://upload.wikimedia.org/wikipedia/commons/0/09/.hecko_-_Floaty_-_profile_picture.svg"
)

type ConversationHandler struct {
	adaClient  *ada.Client
	convSvc    *service.ConversationService
	sessionSvc *service.SessionService
	discord    *integration.DiscordNotifier
}

func NewConversationHandler(
	adaClient *ada.Client,
	convSvc *service.ConversationService,
	sessionSvc *service.SessionService,
	discord *integration.DiscordNotifier,
) *ConversationHandler {
	return &ConversationHandler{
		adaClient:  adaClient,
		convSvc:    convSvc,
		sessionSvc: sessionSvc,
		discord:    discord,
	}
}

// Start opens a conversation with Ada for the browser user.
// POST /api/v1/conversations
//
// A returning visitor (valid session cookie) resumes the same Ada end user;
// a fresh visitor gets a generated display name and whatever end user id
// Ada allocates.
func (h *ConversationHandler) Start(c *fiber.Ctx) error {
	identity, ok := h.identityFromCookie(c)
	if !ok {
		identity = service.Identity{DisplayName: service.GenerateDisplayName()}
	}

	conv, err := h.adaClient.StartConversation(c.Context(), identity.EndUserID)
	if err != nil {
		log.Printf("[conv] start failed: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "failed to start conversation"})
	}

	identity.EndUserID = conv.EndUserID
	if err := h.setSessionCookie(c, identity); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to issue session"})
	}

	h.convSvc.Open(conv.ID, conv.EndUserID)
	h.discord.NotifyConversationStarted(conv.ID, conv.EndUserID)

	return c.JSON(fiber.Map{
		"conversation_id": conv.ID,
		"end_user_id":     conv.EndUserID,
		"display_name":    identity.DisplayName,
		"avatar":          defaultAvatar,
	})
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage relays a user message to Ada. The message is appended to the
// local transcript first so the sender sees it immediately.
// POST /api/v1/conversations/:id/messages
func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	identity, ok := h.identityFromCookie(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "missing or invalid session"})
	}

	conversationID := c.Params("id")
	endUserID, exists := h.convSvc.EndUserID(conversationID)
	if !exists {
		return c.Status(404).JSON(fiber.Map{"error": "unknown conversation"})
	}
	if endUserID != identity.EndUserID {
		return c.Status(403).JSON(fiber.Map{"error": "conversation belongs to another user"})
	}
	if h.convSvc.Ended(conversationID) {
		return c.Status(409).JSON(fiber.Map{"error": "conversation has ended"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.Status(400).JSON(fiber.Map{"error": "text is required"})
	}
	if len(req.Text) > 4000 {
		return c.Status(400).JSON(fiber.Map{"error": "text too long (max 4000 chars)"})
	}

	author := model.Author{
		ID:          identity.EndUserID,
		Role:        model.RoleEndUser,
		DisplayName: identity.DisplayName,
		Avatar:      defaultAvatar,
	}
	msg := h.convSvc.AppendLocal(conversationID, author, req.Text)

	if err := h.adaClient.SendUserMessage(c.Context(), conversationID, author, req.Text); err != nil {
		log.Printf("[conv] relay to ada failed: %v", err)
		h.convSvc.NotifyError(conversationID, "Message could not be delivered")
		var apiErr *ada.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return c.Status(404).JSON(fiber.Map{"error": "conversation not found on platform"})
		}
		return c.Status(502).JSON(fiber.Map{"error": "failed to relay message"})
	}

	return c.Status(201).JSON(msg)
}

// End closes the conversation on Ada's side and locally.
// POST /api/v1/conversations/:id/end
func (h *ConversationHandler) End(c *fiber.Ctx) error {
	identity, ok := h.identityFromCookie(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "missing or invalid session"})
	}

	conversationID := c.Params("id")
	endUserID, exists := h.convSvc.EndUserID(conversationID)
	if !exists {
		return c.Status(404).JSON(fiber.Map{"error": "unknown conversation"})
	}
	if endUserID != identity.EndUserID {
		return c.Status(403).JSON(fiber.Map{"error": "conversation belongs to another user"})
	}

	if err := h.adaClient.EndConversation(c.Context(), conversationID); err != nil {
		log.Printf("[conv] end failed: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "failed to end conversation"})
	}

	h.convSvc.End(conversationID, model.EndedBy{ID: identity.EndUserID, Role: model.RoleEndUser})
	return c.SendStatus(204)
}

// Transcript returns the in-memory transcript for display.
// GET /api/v1/conversations/:id/messages
func (h *ConversationHandler) Transcript(c *fiber.Ctx) error {
	conversationID := c.Params("id")
	msgs, ok := h.convSvc.Transcript(conversationID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "unknown conversation"})
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// ResetSession clears the identity cookie so the next visit starts over as
// a brand new end user.
// POST /api/v1/session/reset
func (h *ConversationHandler) ResetSession(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.SendStatus(204)
}

func (h *ConversationHandler) identityFromCookie(c *fiber.Ctx) (service.Identity, bool) {
	token := c.Cookies(sessionCookie)
	if token == "" {
		return service.Identity{}, false
	}
	identity, err := h.sessionSvc.ValidateToken(token)
	if err != nil {
		return service.Identity{}, false
	}
	return identity, true
}

func (h *ConversationHandler) setSessionCookie(c *fiber.Ctx, identity service.Identity) error {
	token, err := h.sessionSvc.IssueToken(identity)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return nil
}
