package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a roster row. IsMaster is fixed at insert time.
type Participant struct {
	RoomCode string    `json:"room_code"`
	UserID   uuid.UUID `json:"user_id"`
	IsMaster bool      `json:"is_master"`
	JoinedAt time.Time `json:"joined_at"`
}

func NewParticipant(roomCode string, userID uuid.UUID, isMaster bool) *Participant {
	return &Participant{
		RoomCode: roomCode,
		UserID:   userID,
		IsMaster: isMaster,
		JoinedAt: time.Now().UTC(),
	}
}
