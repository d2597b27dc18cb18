package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
)

// ZendeskConfig configures ticket creation on conversation end.
type ZendeskConfig struct {
	Enabled   bool
	Subdomain string
	Email     string
	APIToken  string
	Tag       string
	Priority  string
	Type      string
}

// ZendeskService creates follow-up tickets when bot-only conversations end.
// Disabled or misconfigured instances are inert: every call becomes a no-op
// so the webhook path never depends on Zendesk being reachable.
type ZendeskService struct {
	cfg    ZendeskConfig
	client *http.Client
}

func NewZendeskService(cfg ZendeskConfig) *ZendeskService {
	s := &ZendeskService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	s.logConfigStatus()
	return s
}

func (s *ZendeskService) logConfigStatus() {
	if !s.cfg.Enabled {
		log.Println("[zendesk] integration disabled (ZENDESK_AUTO_TICKET_ENABLED=false)")
		return
	}

	var missing []string
	if s.cfg.Subdomain == "" {
		missing = append(missing, "ZENDESK_SUBDOMAIN")
	}
	if s.cfg.Email == "" {
		missing = append(missing, "ZENDESK_EMAIL")
	}
	if s.cfg.APIToken == "" {
		missing = append(missing, "ZENDESK_API_TOKEN")
	}

	if len(missing) > 0 {
		log.Printf("[zendesk] integration misconfigured, missing: %s", strings.Join(missing, ", "))
	} else {
		log.Printf("[zendesk] integration configured for %s.zendesk.com", s.cfg.Subdomain)
	}
}

func (s *ZendeskService) configured() bool {
	return s.cfg.Subdomain != "" && s.cfg.Email != "" && s.cfg.APIToken != ""
}

// Ticket is the subset of the Zendesk ticket we care about.
type Ticket struct {
	ID      int64  `json:"id"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
}

// CreateTicketFromConversation creates a Zendesk ticket for an ended
// conversation. Only conversations ended by an end user produce a ticket;
// system timeouts and human agent handoffs are skipped. Returns (nil, nil)
// when creation was skipped.
func (s *ZendeskService) CreateTicketFromConversation(ctx context.Context, conversationID string, endedBy model.EndedBy, channelID string, metadata map[string]any) (*Ticket, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	if !s.configured() {
		log.Println("[zendesk] cannot create ticket: not configured")
		return nil, nil
	}
	if endedBy.Role != model.RoleEndUser {
		log.Printf("[zendesk] skipping ticket: conversation ended by %s", endedBy.Role)
		return nil, nil
	}

	payload := s.buildTicketPayload(conversationID, endedBy, channelID, metadata)
	ticket, err := s.postTicket(ctx, payload)
	if err != nil {
		return nil, err
	}

	ticket.URL = fmt.Sprintf("https://%s.zendesk.com/agent/tickets/%d", s.cfg.Subdomain, ticket.ID)
	log.Printf("[zendesk] created ticket #%d: %s", ticket.ID, ticket.URL)
	return ticket, nil
}

type customField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type ticketPayload struct {
	Subject      string        `json:"subject"`
	Description  string        `json:"description"`
	Tags         []string      `json:"tags"`
	Priority     string        `json:"priority"`
	Type         string        `json:"type"`
	Status       string        `json:"status"`
	CustomFields []customField `json:"custom_fields,omitempty"`
}

func (s *ZendeskService) buildTicketPayload(conversationID string, endedBy model.EndedBy, channelID string, metadata map[string]any) ticketPayload {
	payload := ticketPayload{
		Subject:     fmt.Sprintf("Bot Conversation Follow-up - %s", shortID(conversationID)),
		Description: buildTicketDescription(conversationID, endedBy, channelID, metadata),
		Tags:        []string{s.cfg.Tag, "bot-conversation", "automated"},
		Priority:    s.cfg.Priority,
		Type:        s.cfg.Type,
		Status:      "new",
	}

	payload.CustomFields = append(payload.CustomFields,
		customField{ID: "ada_conversation_id", Value: conversationID})
	if channelID != "" {
		payload.CustomFields = append(payload.CustomFields,
			customField{ID: "ada_channel_id", Value: channelID})
	}
	if endedBy.ID != "" {
		payload.CustomFields = append(payload.CustomFields,
			customField{ID: "ada_user_id", Value: endedBy.ID})
	}

	return payload
}

func buildTicketDescription(conversationID string, endedBy model.EndedBy, channelID string, metadata map[string]any) string {
	var b strings.Builder
	b.WriteString("Automated ticket created from ended bot conversation\n\n")
	b.WriteString("Conversation Details:\n")
	fmt.Fprintf(&b, "- Conversation ID: %s\n", conversationID)
	fmt.Fprintf(&b, "- Channel ID: %s\n", orNA(channelID))
	fmt.Fprintf(&b, "- Ended by: %s (%s)\n", endedBy.Role, orNA(endedBy.ID))
	fmt.Fprintf(&b, "- Ended at: %s UTC\n", time.Now().UTC().Format("2006-01-02 15:04:05"))

	if len(metadata) > 0 {
		b.WriteString("\nConversation Metadata:\n")
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, metadata[k])
		}
	}

	b.WriteString("\nNext Steps:\n")
	b.WriteString("- Review the conversation for any unresolved issues\n")
	b.WriteString("- Determine if follow-up with the customer is needed\n")
	b.WriteString("- Update ticket status once reviewed\n")
	return b.String()
}

func (s *ZendeskService) postTicket(ctx context.Context, payload ticketPayload) (*Ticket, error) {
	body, err := json.Marshal(map[string]ticketPayload{"ticket": payload})
	if err != nil {
		return nil, fmt.Errorf("marshal ticket: %w", err)
	}

	url := fmt.Sprintf("https://%s.zendesk.com/api/v2/tickets.json", s.cfg.Subdomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	// Zendesk API token auth: "email/token" as username, the token as password.
	req.SetBasicAuth(s.cfg.Email+"/token", s.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zendesk: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("zendesk: HTTP %d: %.200s", resp.StatusCode, data)
	}

	var result struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("zendesk: decode response: %w", err)
	}
	return &result.Ticket, nil
}

// HealthCheck reports whether the Zendesk API is reachable with the current
// configuration. Any authenticated response counts as connectivity.
func (s *ZendeskService) HealthCheck(ctx context.Context) bool {
	if !s.configured() {
		return false
	}

	url := fmt.Sprintf("https://%s.zendesk.com/api/v2/users/me.json", s.cfg.Subdomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(s.cfg.Email+"/token", s.cfg.APIToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
