package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

// Backend is the slice of the room service the controller drives. Conditional
// writes report the number of rows their condition matched.
type Backend interface {
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	JoinRoom(ctx context.Context, code string, userID uuid.UUID, isMaster bool) error
	ListParticipants(ctx context.Context, code string) ([]domain.Participant, error)
	StartPlanning(ctx context.Context, code string, masterID uuid.UUID) (int64, error)
	UpdateSettings(ctx context.Context, code string, masterID uuid.UUID, settings domain.Settings) (int64, error)
	DeleteRoom(ctx context.Context, code string, masterID uuid.UUID) (int64, error)
	LeaveRoom(ctx context.Context, code string, userID uuid.UUID) error
}

type NameSource interface {
	Resolve(ctx context.Context, userID uuid.UUID) string
}

type Destination string

const (
	DestinationHome     Destination = "home"
	DestinationPlanning Destination = "planning"
)

// Navigator receives the controller's redirects.
type Navigator interface {
	Redirect(to Destination, notice string)
}

type Listener interface {
	LifecycleChanged(view View)
}
