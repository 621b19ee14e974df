package domain

import "time"

// Participants es un par no ordenado de usuarios distintos, guardado ordenado.
type Participants [2]string

// NewParticipants normaliza el par para que {a,b} y {b,a} sean la misma clave.
func NewParticipants(a, b string) Participants {
	if b < a {
		a, b = b, a
	}
	return Participants{a, b}
}

func (p Participants) Contains(userID string) bool {
	return userID != "" && (p[0] == userID || p[1] == userID)
}

// Other devuelve el participante que no es userID.
func (p Participants) Other(userID string) (string, bool) {
	switch userID {
	case p[0]:
		return p[1], true
	case p[1]:
		return p[0], true
	default:
		return "", false
	}
}

// Valid indica si el par tiene dos ids no vacíos y distintos.
func (p Participants) Valid() bool {
	return p[0] != "" && p[1] != "" && p[0] != p[1]
}

// Conversation es el hilo entre dos usuarios sobre un producto.
// Messages es append-only y LastUpdated nunca decrece.
type Conversation struct {
	ID           string       `json:"id"`
	ProductID    string       `json:"productId"`
	Participants Participants `json:"participants"`
	Messages     []Message    `json:"messages"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

func (c Conversation) HasParticipant(userID string) bool {
	return c.Participants.Contains(userID)
}

func (c Conversation) OtherParticipant(userID string) (string, bool) {
	return c.Participants.Other(userID)
}

// LastMessage devuelve el último mensaje agregado, si existe.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Summary recorta la conversación para listados.
func (c Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		ProductID:    c.ProductID,
		Participants: c.Participants,
		LastUpdated:  c.LastUpdated,
	}
}

type ConversationSummary struct {
	ID           string       `json:"id"`
	ProductID    string       `json:"productId"`
	Participants Participants `json:"participants"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}
