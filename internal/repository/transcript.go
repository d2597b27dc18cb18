package repository

import (
	"context"
	"fmt"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TranscriptRepository archives conversation transcripts in Postgres. It is
// a write-through behind the in-memory store; the serving path never reads
// it except for the explicit history endpoint.
type TranscriptRepository struct {
	pool *pgxpool.Pool
}

func NewTranscriptRepository(pool *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{pool: pool}
}

// SaveMessage stores a single transcript message, creating the conversation
// row on first write.
func (r *TranscriptRepository) SaveMessage(ctx context.Context, msg model.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (id, end_user_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, msg.ConversationID, authorEndUserID(msg))
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, author_role, author_id, display_name, avatar, content_type, body, url, link_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`, msg.ID, msg.ConversationID, msg.Author.Role, msg.Author.ID, msg.Author.DisplayName, msg.Author.Avatar,
		msg.Content.Type, msg.Content.Body, msg.Content.URL, msg.Content.LinkText, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// MarkEnded records who closed a conversation.
func (r *TranscriptRepository) MarkEnded(ctx context.Context, conversationID string, endedBy model.EndedBy) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET ended_at = NOW(), ended_by_role = $2, ended_by_id = $3
		WHERE id = $1
	`, conversationID, endedBy.Role, endedBy.ID)
	return err
}

// GetHistory retrieves the newest messages of a conversation in
// chronological order.
func (r *TranscriptRepository) GetHistory(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	// Select newest N rows DESC, then reverse for chronological order
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, author_role, author_id, display_name, avatar, content_type, body, url, link_text, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Author.Role, &m.Author.ID, &m.Author.DisplayName, &m.Author.Avatar,
			&m.Content.Type, &m.Content.Body, &m.Content.URL, &m.Content.LinkText, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

// DeleteOlderThan removes archived messages older than the given number of
// days, then prunes conversations left with no messages (the conversation
// row alone carries nothing worth retaining). Returns the number of deleted
// message rows.
func (r *TranscriptRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM messages WHERE created_at < NOW() - make_interval(days => $1)
	`, days)
	if err != nil {
		return 0, err
	}

	_, err = r.pool.Exec(ctx, `
		DELETE FROM conversations c
		WHERE NOT EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = c.id)
		AND c.started_at < NOW() - make_interval(days => $1)
	`, days)
	if err != nil {
		return 0, fmt.Errorf("prune empty conversations: %w", err)
	}

	return tag.RowsAffected(), nil
}

func authorEndUserID(msg model.Message) string {
	if msg.Author.Role == model.RoleEndUser {
		return msg.Author.ID
	}
	return ""
}
