package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/feed"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

var (
	ErrNameRequired     = errors.New("room name is required")
	ErrMasterRequired   = errors.New("master is required")
	ErrMessageTooLong   = errors.New("message is too long")
	ErrMessageRequired  = errors.New("message is required")
	ErrIdentityRequired = errors.New("username or email is required")
)

type RoomInteractor interface {
	CreateRoom(ctx context.Context, name string, master uuid.UUID) (*domain.Room, error)
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	ListPublicRooms(ctx context.Context) ([]*domain.Room, error)
	JoinRoom(ctx context.Context, code string, userID uuid.UUID, isMaster bool) error
	ListParticipants(ctx context.Context, code string) ([]domain.Participant, error)
	LeaveRoom(ctx context.Context, code string, userID uuid.UUID) error
	StartPlanning(ctx context.Context, code string, masterID uuid.UUID) (int64, error)
	UpdateSelection(ctx context.Context, code string, sel domain.Selection) error
	UpdateSettings(ctx context.Context, code string, masterID uuid.UUID, settings domain.Settings) (int64, error)
	DeleteRoom(ctx context.Context, code string, masterID uuid.UUID) (int64, error)
}

type ChatInteractor interface {
	ListMessages(ctx context.Context, code string) ([]domain.Message, error)
	SendMessage(ctx context.Context, code string, userID uuid.UUID, text string) (*domain.Message, error)
}

type UserInteractor interface {
	CreateUser(ctx context.Context, username string, email string) (*domain.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// publisher emits row changes after a successful write. A failed publish is
// logged and does not fail the write; sessions converge on the next poll or
// notification.
type publisher struct {
	feed feed.Feed
	log  *slog.Logger
}

func (p publisher) publish(ctx context.Context, table domain.Table, typ domain.ChangeType, code string, newRow, oldRow any) {
	const op = "service.publish"
	if p.feed == nil {
		return
	}

	change, err := domain.NewChange(table, typ, code, newRow, oldRow)
	if err != nil {
		p.log.Error("failed to build change", slog.String("op", op), sl.Err(err))
		return
	}
	if err := p.feed.Publish(ctx, change); err != nil {
		p.log.Warn("failed to publish change",
			slog.String("op", op),
			slog.String("room_code", code),
			slog.String("table", string(table)),
			sl.Err(err),
		)
	}
}
