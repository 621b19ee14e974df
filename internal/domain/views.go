package domain

import "time"

// Vistas de lectura que combinan conversaciones con datos de los colaboradores.

type ParticipantView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type ProductView struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type MessageView struct {
	SenderID  string          `json:"senderId"`
	Sender    ParticipantView `json:"sender"`
	Body      string          `json:"body"`
	Timestamp time.Time       `json:"timestamp"`
}

type ConversationListItem struct {
	ID           string            `json:"id"`
	Product      ProductView       `json:"product"`
	Participants []ParticipantView `json:"participants"`
	LastUpdated  time.Time         `json:"lastUpdated"`
}

type ConversationDetail struct {
	ID           string            `json:"id"`
	Product      ProductView       `json:"product"`
	Participants []ParticipantView `json:"participants"`
	Messages     []MessageView     `json:"messages"`
	LastUpdated  time.Time         `json:"lastUpdated"`
}
