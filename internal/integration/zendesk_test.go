package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
)

func enabledConfig() ZendeskConfig {
	return ZendeskConfig{
		Enabled:   true,
		Subdomain: "test-sandbox",
		Email:     "test@example.com",
		APIToken:  "test-token-123",
		Tag:       "test-demo-tag",
		Priority:  "high",
		Type:      "incident",
	}
}

func TestNoTicketWhenDisabled(t *testing.T) {
	cfg := enabledConfig()
	cfg.Enabled = false
	svc := NewZendeskService(cfg)

	ticket, err := svc.CreateTicketFromConversation(context.Background(), "conv-1",
		model.EndedBy{ID: "user-1", Role: model.RoleEndUser}, "channel-1", nil)
	if err != nil {
		t.Fatalf("expected silent skip, got error: %v", err)
	}
	if ticket != nil {
		t.Errorf("expected no ticket, got %+v", ticket)
	}
}

func TestNoTicketWhenMisconfigured(t *testing.T) {
	svc := NewZendeskService(ZendeskConfig{Enabled: true})

	ticket, err := svc.CreateTicketFromConversation(context.Background(), "conv-1",
		model.EndedBy{ID: "user-1", Role: model.RoleEndUser}, "", nil)
	if err != nil {
		t.Fatalf("expected silent skip, got error: %v", err)
	}
	if ticket != nil {
		t.Errorf("expected no ticket, got %+v", ticket)
	}
}

func TestNoTicketForNonEndUserEnd(t *testing.T) {
	svc := NewZendeskService(enabledConfig())

	tests := []struct {
		name    string
		endedBy model.EndedBy
	}{
		{"system timeout", model.EndedBy{Role: "system"}},
		{"human agent handoff", model.EndedBy{ID: "agent-123", Role: model.RoleHumanAgent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := svc.CreateTicketFromConversation(context.Background(), "conv-1", tt.endedBy, "channel-1", nil)
			if err != nil {
				t.Fatalf("expected silent skip, got error: %v", err)
			}
			if ticket != nil {
				t.Errorf("expected no ticket, got %+v", ticket)
			}
		})
	}
}

func TestTicketPayload(t *testing.T) {
	svc := NewZendeskService(enabledConfig())

	payload := svc.buildTicketPayload("conv-abc123-def456",
		model.EndedBy{ID: "user-456", Role: model.RoleEndUser},
		"channel-xyz789",
		map[string]any{"topic": "billing_inquiry", "resolved": false})

	if !strings.Contains(payload.Subject, "conv-abc") {
		t.Errorf("subject should carry the short conversation id, got %q", payload.Subject)
	}
	if payload.Priority != "high" || payload.Type != "incident" || payload.Status != "new" {
		t.Errorf("unexpected ticket attributes: %+v", payload)
	}

	wantTags := map[string]bool{"test-demo-tag": false, "bot-conversation": false, "automated": false}
	for _, tag := range payload.Tags {
		wantTags[tag] = true
	}
	for tag, seen := range wantTags {
		if !seen {
			t.Errorf("missing tag %q", tag)
		}
	}

	fields := map[string]string{}
	for _, f := range payload.CustomFields {
		fields[f.ID] = f.Value
	}
	if fields["ada_conversation_id"] != "conv-abc123-def456" {
		t.Errorf("missing conversation custom field: %v", fields)
	}
	if fields["ada_channel_id"] != "channel-xyz789" {
		t.Errorf("missing channel custom field: %v", fields)
	}
	if fields["ada_user_id"] != "user-456" {
		t.Errorf("missing user custom field: %v", fields)
	}

	if !strings.Contains(payload.Description, "billing_inquiry") {
		t.Error("description should include metadata values")
	}
	if !strings.Contains(payload.Description, "user-456") {
		t.Error("description should include who ended the conversation")
	}
}

func TestTicketPayloadOmitsEmptyFields(t *testing.T) {
	svc := NewZendeskService(enabledConfig())

	payload := svc.buildTicketPayload("conv-1", model.EndedBy{Role: model.RoleEndUser}, "", nil)

	for _, f := range payload.CustomFields {
		if f.ID == "ada_channel_id" || f.ID == "ada_user_id" {
			t.Errorf("unexpected custom field %q for empty value", f.ID)
		}
	}
	if !strings.Contains(payload.Description, "N/A") {
		t.Error("description should mark missing values as N/A")
	}
}

func TestHealthCheckUnconfigured(t *testing.T) {
	svc := NewZendeskService(ZendeskConfig{Enabled: true})
	if svc.HealthCheck(context.Background()) {
		t.Error("expected health check to fail without configuration")
	}
}
