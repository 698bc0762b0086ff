package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        int64     `json:"id"`
	RoomCode  string    `json:"room_code"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessage(roomCode string, userID uuid.UUID, text string) *Message {
	return &Message{
		RoomCode:  roomCode,
		UserID:    userID,
		Message:   text,
		CreatedAt: time.Now().UTC(),
	}
}

// SortMessages orders by creation time, breaking ties by id.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
