package ada

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
)

var ErrNotConfigured = errors.New("ada client not configured")

// APIError is returned when Ada responds with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ada api: HTTP %d: %s", e.Status, e.Body)
}

// Client talks to the Ada conversations API (v2).
type Client struct {
	baseURL   string
	apiKey    string
	channelID string
	client    *http.Client
}

// NewClient builds a client for the given Ada instance. insecureTLS skips
// certificate verification for local development against self-signed hosts.
func NewClient(baseURL, apiKey, channelID string, insecureTLS bool) *Client {
	transport := http.DefaultTransport
	if insecureTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		log.Println("[ada] TLS verification disabled (ADA_INSECURE_TLS)")
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		channelID: channelID,
		client:    &http.Client{Timeout: 15 * time.Second, Transport: transport},
	}
}

// Conversation is Ada's representation of a started conversation.
type Conversation struct {
	ID        string `json:"id"`
	EndUserID string `json:"end_user_id"`
}

// StartConversation opens a new conversation on the configured channel.
// Passing a known endUserID resumes the same Ada end user; empty lets Ada
// allocate a fresh one.
func (c *Client) StartConversation(ctx context.Context, endUserID string) (*Conversation, error) {
	body := map[string]string{"channel_id": c.channelID}
	if endUserID != "" {
		body["end_user_id"] = endUserID
	}

	var conv Conversation
	if err := c.post(ctx, "/api/v2/conversations", body, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, errors.New("ada api: conversation response missing id")
	}
	return &conv, nil
}

// SendUserMessage relays an end user message into the conversation.
func (c *Client) SendUserMessage(ctx context.Context, conversationID string, author model.Author, text string) error {
	body := map[string]any{
		"author": map[string]string{
			"role":         model.RoleEndUser,
			"id":           author.ID,
			"display_name": author.DisplayName,
			"avatar":       author.Avatar,
		},
		"content": map[string]string{"type": model.ContentText, "body": text},
	}
	return c.post(ctx, "/api/v2/conversations/"+conversationID+"/messages", body, nil)
}

// EndConversation closes the conversation on Ada's side.
func (c *Client) EndConversation(ctx context.Context, conversationID string) error {
	return c.post(ctx, "/api/v2/conversations/"+conversationID+"/end", nil, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	if c.baseURL == "" || c.apiKey == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ada api: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= 300 {
		log.Printf("[ada] POST %s -> HTTP %d: %.200s", path, resp.StatusCode, data)
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
