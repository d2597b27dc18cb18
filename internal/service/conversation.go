package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"

	"github.com/google/uuid"
)

// EventSink receives events destined for the chat page. Satisfied by WSHub.
type EventSink interface {
	SendToConversation(conversationID string, event *model.WSEvent)
}

// TranscriptArchive persists transcripts when an archive is configured.
// Satisfied by repository.TranscriptRepository.
type TranscriptArchive interface {
	SaveMessage(ctx context.Context, msg model.Message) error
	MarkEnded(ctx context.Context, conversationID string, endedBy model.EndedBy) error
}

type conversationState struct {
	endUserID string
	ended     bool
	messages  []model.Message
}

// ConversationService holds the in-memory transcript for every active
// conversation and pushes transcript events to connected pages. The archive
// is write-through and optional; display always serves from memory.
type ConversationService struct {
	mu            sync.RWMutex
	conversations map[string]*conversationState
	sink          EventSink
	archive       TranscriptArchive
}

func NewConversationService(sink EventSink, archive TranscriptArchive) *ConversationService {
	return &ConversationService{
		conversations: make(map[string]*conversationState),
		sink:          sink,
		archive:       archive,
	}
}

// Open registers a conversation the moment the browser starts it, recording
// which end user is active so their own webhook echoes can be dropped.
func (s *ConversationService) Open(conversationID, endUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; ok {
		return
	}
	s.conversations[conversationID] = &conversationState{endUserID: endUserID}
	log.Printf("[conv] opened %s for end user %s", conversationID, endUserID)
}

// AppendLocal adds a message the browser user just sent. It is rendered
// immediately, before the relay to Ada happens.
func (s *ConversationService) AppendLocal(conversationID string, author model.Author, text string) model.Message {
	msg := model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Author:         author,
		Content:        model.Content{Type: model.ContentText, Body: text},
		CreatedAt:      time.Now().UTC(),
	}
	s.append(msg)
	return msg
}

// Deliver handles one inbound message from the webhook pipeline. Messages
// authored by the conversation's own end user are dropped (already rendered
// on send), presence content becomes a notification, everything else is
// appended to the transcript.
func (s *ConversationService) Deliver(msg model.Message) {
	s.mu.RLock()
	state, ok := s.conversations[msg.ConversationID]
	s.mu.RUnlock()
	if !ok {
		log.Printf("[conv] dropping message for unknown conversation %s", msg.ConversationID)
		return
	}
	if msg.Author.ID != "" && msg.Author.ID == state.endUserID {
		return
	}

	if msg.Content.Type == model.ContentPresence {
		s.notify(msg.ConversationID, msg.Content.Body)
		return
	}

	s.append(msg)
}

// End marks a conversation ended and tells the page to disable its inputs.
func (s *ConversationService) End(conversationID string, endedBy model.EndedBy) {
	s.mu.Lock()
	state, ok := s.conversations[conversationID]
	if ok {
		state.ended = true
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.sink.SendToConversation(conversationID, &model.WSEvent{Type: model.WSConversationEnded})

	if s.archive != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.archive.MarkEnded(ctx, conversationID, endedBy); err != nil {
				log.Printf("[conv] archive mark ended failed: %v", err)
			}
		}()
	}
}

// Ended reports whether the conversation has been closed.
func (s *ConversationService) Ended(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.conversations[conversationID]
	return ok && state.ended
}

// EndUserID returns the active end user for a conversation.
func (s *ConversationService) EndUserID(conversationID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.conversations[conversationID]
	if !ok {
		return "", false
	}
	return state.endUserID, true
}

// Transcript returns a copy of the in-memory transcript in display order.
func (s *ConversationService) Transcript(conversationID string) ([]model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.conversations[conversationID]
	if !ok {
		return nil, false
	}
	out := make([]model.Message, len(state.messages))
	copy(out, state.messages)
	return out, true
}

// ActiveCount returns the number of registered conversations.
func (s *ConversationService) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

func (s *ConversationService) append(msg model.Message) {
	s.mu.Lock()
	state, ok := s.conversations[msg.ConversationID]
	if ok {
		state.messages = append(state.messages, msg)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.sink.SendToConversation(msg.ConversationID, &model.WSEvent{Type: model.WSMessage, Data: data})

	if s.archive != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.archive.SaveMessage(ctx, msg); err != nil {
				log.Printf("[conv] archive write failed: %v", err)
			}
		}()
	}
}

// NotifyError pushes an error banner to the page watching the conversation.
func (s *ConversationService) NotifyError(conversationID, message string) {
	data, err := json.Marshal(model.WSErrorData{Message: message})
	if err != nil {
		return
	}
	s.sink.SendToConversation(conversationID, &model.WSEvent{Type: model.WSError, Data: data})
}

func (s *ConversationService) notify(conversationID, text string) {
	data, err := json.Marshal(model.WSNotificationData{Text: text})
	if err != nil {
		return
	}
	s.sink.SendToConversation(conversationID, &model.WSEvent{Type: model.WSNotification, Data: data})
}
