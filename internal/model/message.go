package model

import "time"

// Author roles used by the Ada platform.
const (
	RoleEndUser    = "end_user"
	RoleAIAgent    = "ai_agent"
	RoleHumanAgent = "human_agent"
)

// Content types.
const (
	ContentText     = "text"
	ContentLink     = "link"
	ContentPresence = "presence"
)

// Content is the message content union. Type selects which fields are set:
// text/presence use Body, link uses URL and LinkText.
type Content struct {
	Type     string `json:"type"`
	Body     string `json:"body,omitempty"`
	URL      string `json:"url,omitempty"`
	LinkText string `json:"link_text,omitempty"`
}

// Author identifies who wrote a message.
type Author struct {
	ID          string `json:"id,omitempty"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// DefaultName returns a human-readable name, falling back per role when the
// platform sent no display name.
func (a Author) DefaultName() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	switch a.Role {
	case RoleAIAgent:
		return "AI Agent"
	case RoleHumanAgent:
		return "Human Agent"
	default:
		return "End User"
	}
}

// Message is one transcript entry for a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Author         Author    `json:"author"`
	Content        Content   `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
