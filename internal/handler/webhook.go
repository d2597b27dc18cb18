package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/integration"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/service"

	"github.com/gofiber/fiber/v2"
	svix "github.com/svix/svix-webhooks/go"
)

type WebhookHandler struct {
	verifier *svix.Webhook
	batcher  *service.MessageBatcher
	convSvc  *service.ConversationService
	zendesk  *integration.ZendeskService
	discord  *integration.DiscordNotifier
}

func NewWebhookHandler(
	verifier *svix.Webhook,
	batcher *service.MessageBatcher,
	convSvc *service.ConversationService,
	zendesk *integration.ZendeskService,
	discord *integration.DiscordNotifier,
) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		batcher:  batcher,
		convSvc:  convSvc,
		zendesk:  zendesk,
		discord:  discord,
	}
}

// HandleEvent receives a platform webhook delivery.
// POST /webhooks/message
//
// The signature is checked before the payload is inspected. A verified but
// unknown event type is acknowledged with 204 so the platform does not
// retry it forever.
func (h *WebhookHandler) HandleEvent(c *fiber.Ctx) error {
	payload := c.Body()

	if err := h.verifier.Verify(payload, webhookHeaders(c)); err != nil {
		log.Printf("[webhook] signature verification failed: %v", err)
		return c.Status(400).JSON(fiber.Map{"error": "bad request"})
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("[webhook] unparseable payload: %v", err)
		return c.SendStatus(204)
	}

	switch event.Type {
	case model.EventConversationMessage:
		h.handleMessage(event)
	case model.EventConversationEnded:
		h.handleEnded(event)
	default:
		log.Printf("[webhook] unsupported event type: %s", event.Type)
	}

	return c.SendStatus(204)
}

func (h *WebhookHandler) handleMessage(event model.WebhookEvent) {
	var data model.ConversationMessageData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("[webhook] bad message payload: %v", err)
		return
	}

	h.batcher.Push(model.Message{
		ID:             data.MessageID,
		ConversationID: data.ConversationID,
		Author:         data.Author,
		Content:        data.Content,
		CreatedAt:      data.CreatedAt,
	}, event.Timestamp)
}

func (h *WebhookHandler) handleEnded(event model.WebhookEvent) {
	var data model.ConversationEndedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("[webhook] bad ended payload: %v", err)
		return
	}

	log.Printf("[webhook] conversation %s ended by %s", data.ConversationID, data.EndedBy.Role)
	h.convSvc.End(data.ConversationID, data.EndedBy)
	h.discord.NotifyConversationEnded(data.ConversationID, data.EndedBy)

	// Ticket creation must never delay the webhook response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := h.zendesk.CreateTicketFromConversation(ctx, data.ConversationID, data.EndedBy, data.ChannelID, data.Metadata); err != nil {
			log.Printf("[webhook] zendesk ticket failed: %v", err)
		}
	}()
}

// webhookHeaders converts the fasthttp request headers into the http.Header
// the svix verifier expects.
func webhookHeaders(c *fiber.Ctx) http.Header {
	headers := make(http.Header)
	for key, values := range c.GetReqHeaders() {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}
