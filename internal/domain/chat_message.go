package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one line of the per-order conversation. RoomID equals the
// order id; both the customer and the courier UI join with the same key.
type ChatMessage struct {
	ID       uuid.UUID `json:"id"`
	RoomID   string    `json:"roomId"`
	SenderID string    `json:"senderId"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
}

func NewChatMessage(roomID, senderID, text string) *ChatMessage {
	return &ChatMessage{
		ID:       uuid.New(),
		RoomID:   roomID,
		SenderID: senderID,
		Text:     text,
		Time:     time.Now().UTC(),
	}
}
