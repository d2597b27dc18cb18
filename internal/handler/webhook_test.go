package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/integration"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
	"github.com/AdaSupport/ada-conversations-api-demo/internal/service"

	"github.com/gofiber/fiber/v2"
	svix "github.com/svix/svix-webhooks/go"
)

var testWebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("test-signing-key-0123456789"))

type nullSink struct {
	mu     sync.Mutex
	events []string
}

func (s *nullSink) SendToConversation(conversationID string, event *model.WSEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.Type)
}

func newWebhookTestApp(t *testing.T) (*fiber.App, *service.ConversationService) {
	t.Helper()

	verifier, err := svix.NewWebhook(testWebhookSecret)
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}

	convSvc := service.NewConversationService(&nullSink{}, nil)
	batcher := service.NewMessageBatcher(10*time.Millisecond, convSvc.Deliver)
	t.Cleanup(batcher.Close)

	zendesk := integration.NewZendeskService(integration.ZendeskConfig{})
	discord := integration.NewDiscordNotifier("")

	h := NewWebhookHandler(verifier, batcher, convSvc, zendesk, discord)
	app := fiber.New()
	app.Post("/webhooks/message", h.HandleEvent)
	return app, convSvc
}

// signedRequest builds a webhook delivery signed the way the platform signs
// them: HMAC-SHA256 over "{id}.{timestamp}.{payload}" with the decoded
// whsec_ key, base64 in a "v1," prefixed svix-signature header.
func signedRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(testWebhookSecret, "whsec_"))
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}

	id := "msg_2y3KQm"
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", id, ts, payload)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/message", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", "v1,"+sig)
	return req
}

func messageEventPayload(conversationID, authorID, body string) []byte {
	now := time.Now().UTC().Format(time.RFC3339)
	return []byte(fmt.Sprintf(`{
		"type": "v1.conversation.message",
		"timestamp": %q,
		"data": {
			"message_id": "m-1",
			"conversation_id": %q,
			"end_user_id": "user-1",
			"channel": {"id": "channel-1"},
			"created_at": %q,
			"author": {"id": %q, "role": "ai_agent", "display_name": "Ada"},
			"content": {"type": "text", "body": %q}
		}
	}`, now, conversationID, now, authorID, body))
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	req := signedRequest(t, messageEventPayload("conv-1", "agent-1", "hi"))
	req.Header.Set("svix-signature", "v1,aW52YWxpZHNpZ25hdHVyZQ==")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for invalid signature, got %d", resp.StatusCode)
	}
}

func TestWebhookRejectsMissingHeaders(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/message",
		bytes.NewReader(messageEventPayload("conv-1", "agent-1", "hi")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for unsigned request, got %d", resp.StatusCode)
	}
}

func TestWebhookDeliversMessage(t *testing.T) {
	app, convSvc := newWebhookTestApp(t)
	convSvc.Open("conv-1", "user-1")

	resp, err := app.Test(signedRequest(t, messageEventPayload("conv-1", "agent-1", "hello from ada")), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	// The batcher holds messages briefly before delivery
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs, _ := convSvc.Transcript("conv-1"); len(msgs) == 1 {
			if msgs[0].Content.Body != "hello from ada" {
				t.Errorf("unexpected body %q", msgs[0].Content.Body)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("message never reached the transcript")
}

func TestWebhookEndsConversation(t *testing.T) {
	app, convSvc := newWebhookTestApp(t)
	convSvc.Open("conv-1", "user-1")

	payload := []byte(fmt.Sprintf(`{
		"type": "v1.conversation.ended",
		"timestamp": %q,
		"data": {
			"conversation_id": "conv-1",
			"channel_id": "channel-1",
			"end_user_id": "user-1",
			"ended_by": {"id": "user-1", "role": "end_user"}
		}
	}`, time.Now().UTC().Format(time.RFC3339)))

	resp, err := app.Test(signedRequest(t, payload), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	if !convSvc.Ended("conv-1") {
		t.Error("expected conversation marked ended")
	}
}

func TestWebhookAcknowledgesUnknownType(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	payload := []byte(fmt.Sprintf(`{"type": "v1.conversation.something_new", "timestamp": %q, "data": {}}`,
		time.Now().UTC().Format(time.RFC3339)))

	resp, err := app.Test(signedRequest(t, payload), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Errorf("expected 204 for unknown event type, got %d", resp.StatusCode)
	}
}

func TestWebhookAcknowledgesUnparseablePayload(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	resp, err := app.Test(signedRequest(t, []byte("not json")), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Errorf("expected 204 for signed but unparseable payload, got %d", resp.StatusCode)
	}
}
