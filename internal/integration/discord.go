package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
)

// DiscordNotifier posts conversation lifecycle embeds to an ops channel via
// a Discord webhook. An empty webhook URL disables it.
type DiscordNotifier struct {
	webhookOps string
	client     *http.Client
}

func NewDiscordNotifier(webhookOps string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookOps: webhookOps,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

func (n *DiscordNotifier) send(payload discordWebhookPayload) {
	if n.webhookOps == "" {
		return
	}
	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[discord] marshal error: %v", err)
			return
		}
		resp, err := n.client.Post(n.webhookOps, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("[discord] send error: %v", err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			log.Printf("[discord] HTTP %d for ops webhook", resp.StatusCode)
		}
	}()
}

// NotifyConversationStarted posts a started embed to the ops channel.
func (n *DiscordNotifier) NotifyConversationStarted(conversationID, endUserID string) {
	n.send(discordWebhookPayload{
		Username: "Ada Relay",
		Embeds: []discordEmbed{{
			Title: "Conversation started",
			Color: 0x2ECC71, // Green
			Fields: []discordField{
				{Name: "Conversation", Value: conversationID, Inline: true},
				{Name: "End user", Value: endUserID, Inline: true},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	})
}

// NotifyConversationEnded posts an ended embed to the ops channel.
func (n *DiscordNotifier) NotifyConversationEnded(conversationID string, endedBy model.EndedBy) {
	who := endedBy.Role
	if endedBy.ID != "" {
		who = fmt.Sprintf("%s (%s)", endedBy.Role, endedBy.ID)
	}
	n.send(discordWebhookPayload{
		Username: "Ada Relay",
		Embeds: []discordEmbed{{
			Title: "Conversation ended",
			Color: 0xE74C3C, // Red
			Fields: []discordField{
				{Name: "Conversation", Value: conversationID, Inline: true},
				{Name: "Ended by", Value: who, Inline: true},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	})
}
