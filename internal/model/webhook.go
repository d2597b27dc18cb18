package model

import (
	"encoding/json"
	"time"
)

// Webhook event types sent by the Ada platform.
const (
	EventConversationMessage = "v1.conversation.message"
	EventConversationEnded   = "v1.conversation.ended"
)

// WebhookEvent is the envelope for every webhook delivery. Data is decoded
// per Type after signature verification.
type WebhookEvent struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// ConversationMessageData is the payload of a v1.conversation.message event.
type ConversationMessageData struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	EndUserID      string    `json:"end_user_id"`
	Channel        Channel   `json:"channel"`
	CreatedAt      time.Time `json:"created_at"`
	Author         Author    `json:"author"`
	Content        Content   `json:"content"`
}

// Channel describes the Ada channel a message arrived through.
type Channel struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Type        string         `json:"type,omitempty"`
	Modality    string         `json:"modality,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ConversationEndedData is the payload of a v1.conversation.ended event.
type ConversationEndedData struct {
	ConversationID string         `json:"conversation_id"`
	ChannelID      string         `json:"channel_id"`
	EndUserID      string         `json:"end_user_id"`
	EndedBy        EndedBy        `json:"ended_by"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// EndedBy identifies who closed a conversation.
type EndedBy struct {
	ID   string `json:"id,omitempty"`
	Role string `json:"role"`
}
