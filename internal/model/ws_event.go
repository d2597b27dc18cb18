package model

import "encoding/json"

// WSEvent is the frame pushed to (and received from) the chat page.
type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WS event types pushed to the page.
const (
	WSMessage           = "message"
	WSNotification      = "notification"
	WSConversationEnded = "conversation_ended"
	WSError             = "error"
)

type WSNotificationData struct {
	Text string `json:"text"`
}

type WSErrorData struct {
	Message string `json:"message"`
}
