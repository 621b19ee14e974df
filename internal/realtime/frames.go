package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	FrameAuth       = "auth"
	FrameNewMessage = "newMessage"
)

var ErrNotAuthFrame = errors.New("frame is not a valid auth handshake")

// ClientFrame es lo único que el cliente envía: el handshake de auth.
type ClientFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// ServerFrame es el envelope de los pushes del servidor.
type ServerFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type PushSender struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type PushMessage struct {
	SenderID  string     `json:"senderId"`
	Sender    PushSender `json:"sender"`
	Body      string     `json:"body"`
	Timestamp time.Time  `json:"timestamp"`
}

type NewMessageData struct {
	ConversationID string      `json:"conversationId"`
	Message        PushMessage `json:"message"`
}

// ParseAuthFrame devuelve el userId de un handshake bien formado.
func ParseAuthFrame(raw []byte) (string, error) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", err
	}
	userID := strings.TrimSpace(frame.UserID)
	if frame.Type != FrameAuth || userID == "" {
		return "", ErrNotAuthFrame
	}
	return userID, nil
}

// EncodeNewMessage serializa el push de un mensaje nuevo.
func EncodeNewMessage(data NewMessageData) ([]byte, error) {
	return json.Marshal(ServerFrame{Type: FrameNewMessage, Data: data})
}
