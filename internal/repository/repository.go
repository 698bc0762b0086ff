package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

var (
	ErrRoomNotFound       = domain.ErrRoomNotFound
	ErrRoomCodeExists     = errors.New("room code already exists")
	ErrParticipantExists  = domain.ErrParticipantExists
	ErrProfileNotFound    = domain.ErrProfileNotFound
	ErrProfileEmailExists = errors.New("profile with email already exists")
)

// RoomRepository writes return the number of rows their condition matched.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	ListPublic(ctx context.Context) ([]*domain.Room, error)
	StartPlanning(ctx context.Context, code string, masterID uuid.UUID) (int64, error)
	UpdateSelection(ctx context.Context, code string, sel domain.Selection) (int64, error)
	UpdateSettings(ctx context.Context, code string, masterID uuid.UUID, settings domain.Settings) (int64, error)
	Delete(ctx context.Context, code string, masterID uuid.UUID) (int64, error)
}

type ParticipantRepository interface {
	Add(ctx context.Context, participant *domain.Participant) error
	List(ctx context.Context, code string) ([]domain.Participant, error)
	Remove(ctx context.Context, code string, userID uuid.UUID) (int64, error)
	RemoveAll(ctx context.Context, code string) error
}

type MessageRepository interface {
	// Create assigns the message id and creation time.
	Create(ctx context.Context, msg *domain.Message) error
	List(ctx context.Context, code string) ([]domain.Message, error)
	DeleteByRoom(ctx context.Context, code string) error
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}
