package domain

import "time"

// Message es inmutable y solo existe dentro de una Conversation.
type Message struct {
	SenderID  string    `json:"senderId"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}
