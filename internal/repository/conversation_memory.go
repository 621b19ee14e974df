package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campus-cart/internal/domain"
)

type conversationKey struct {
	productID    string
	participants domain.Participants
}

type memoryConversation struct {
	mu   sync.Mutex
	conv domain.Conversation
}

func (e *memoryConversation) snapshot() domain.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyConversation(e.conv)
}

// MemoryConversationRepository guarda conversaciones en memoria.
// El mutex del repositorio serializa find-or-create; cada conversación tiene su
// propio mutex para que los append de hilos distintos no compitan.
type MemoryConversationRepository struct {
	mu    sync.RWMutex
	byID  map[string]*memoryConversation
	byKey map[conversationKey]string
	now   func() time.Time
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		byID:  make(map[string]*memoryConversation),
		byKey: make(map[conversationKey]string),
		now:   time.Now,
	}
}

func (r *MemoryConversationRepository) FindOrCreate(_ context.Context, productID, participantA, participantB string) (domain.Conversation, error) {
	pair := domain.NewParticipants(participantA, participantB)
	if !pair.Valid() || productID == "" {
		return domain.Conversation{}, ErrInvalidParticipants
	}
	key := conversationKey{productID: productID, participants: pair}

	r.mu.Lock()
	if id, ok := r.byKey[key]; ok {
		entry := r.byID[id]
		r.mu.Unlock()
		return entry.snapshot(), nil
	}

	now := r.now().UTC()
	entry := &memoryConversation{conv: domain.Conversation{
		ID:           uuid.NewString(),
		ProductID:    productID,
		Participants: pair,
		Messages:     []domain.Message{},
		CreatedAt:    now,
		LastUpdated:  now,
	}}
	r.byID[entry.conv.ID] = entry
	r.byKey[key] = entry.conv.ID
	r.mu.Unlock()

	return entry.snapshot(), nil
}

func (r *MemoryConversationRepository) AppendMessage(_ context.Context, conversationID, callerID string, msg domain.Message) (domain.Conversation, error) {
	r.mu.RLock()
	entry, ok := r.byID[conversationID]
	r.mu.RUnlock()
	if !ok {
		return domain.Conversation{}, ErrConversationNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.conv.HasParticipant(callerID) {
		return domain.Conversation{}, ErrNotParticipant
	}

	requested := msg.Timestamp
	if requested.IsZero() {
		requested = r.now()
	}
	ts := appendTimestamp(requested, entry.conv.LastUpdated)
	entry.conv.Messages = append(entry.conv.Messages, domain.Message{
		SenderID:  callerID,
		Body:      msg.Body,
		Timestamp: ts,
	})
	entry.conv.LastUpdated = ts

	return copyConversation(entry.conv), nil
}

func (r *MemoryConversationRepository) ListForUser(_ context.Context, userID string) ([]domain.ConversationSummary, error) {
	r.mu.RLock()
	entries := make([]*memoryConversation, 0, len(r.byID))
	for _, entry := range r.byID {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	summaries := []domain.ConversationSummary{}
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.conv.HasParticipant(userID) && len(entry.conv.Messages) > 0 {
			summaries = append(summaries, entry.conv.Summary())
		}
		entry.mu.Unlock()
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].LastUpdated.Equal(summaries[j].LastUpdated) {
			return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

func (r *MemoryConversationRepository) GetForUser(_ context.Context, conversationID, userID string) (domain.Conversation, error) {
	r.mu.RLock()
	entry, ok := r.byID[conversationID]
	r.mu.RUnlock()
	if !ok {
		return domain.Conversation{}, ErrConversationNotFound
	}

	conv := entry.snapshot()
	if !conv.HasParticipant(userID) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// Count devuelve cuántas conversaciones existen.
func (r *MemoryConversationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func copyConversation(c domain.Conversation) domain.Conversation {
	out := c
	out.Messages = make([]domain.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
