package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/feed"
	"github.com/immxrtalbeast/globe_rooms/internal/repository"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

const maxCodeAttempts = 8

type RoomService struct {
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	messages     repository.MessageRepository
	pub          publisher
	log          *slog.Logger
}

func NewRoomService(
	rooms repository.RoomRepository,
	participants repository.ParticipantRepository,
	messages repository.MessageRepository,
	changes feed.Feed,
	log *slog.Logger,
) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:        rooms,
		participants: participants,
		messages:     messages,
		pub:          publisher{feed: changes, log: log},
		log:          log,
	}
}

func (s *RoomService) CreateRoom(ctx context.Context, name string, master uuid.UUID) (*domain.Room, error) {
	const op = "service.room.create"
	log := s.log.With(slog.String("op", op))

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if master == uuid.Nil {
		return nil, ErrMasterRequired
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room := domain.NewRoom(name, master)
		err := s.rooms.Create(ctx, room)
		if errors.Is(err, repository.ErrRoomCodeExists) {
			continue
		}
		if err != nil {
			log.Error("failed to create room", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("room created", slog.String("room_code", room.Code), slog.String("master_id", master.String()))
		s.pub.publish(ctx, domain.TableRooms, domain.ChangeInsert, room.Code, room, nil)
		return room, nil
	}
	return nil, fmt.Errorf("%s: %w", op, repository.ErrRoomCodeExists)
}

func (s *RoomService) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	const op = "service.room.get"

	room, err := s.rooms.GetByCode(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return room, nil
}

func (s *RoomService) ListPublicRooms(ctx context.Context) ([]*domain.Room, error) {
	const op = "service.room.listPublic"

	rooms, err := s.rooms.ListPublic(ctx)
	if err != nil {
		s.log.Error("failed to list public rooms", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rooms, nil
}

// JoinRoom inserts the participant row. An existing row yields
// repository.ErrParticipantExists.
func (s *RoomService) JoinRoom(ctx context.Context, code string, userID uuid.UUID, isMaster bool) error {
	const op = "service.room.join"
	code = domain.NormalizeCode(code)

	participant := domain.NewParticipant(code, userID, isMaster)
	if err := s.participants.Add(ctx, participant); err != nil {
		if !errors.Is(err, repository.ErrParticipantExists) {
			s.log.Error("failed to add participant", slog.String("op", op), slog.String("room_code", code), sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("participant joined", slog.String("op", op), slog.String("room_code", code), slog.String("user_id", userID.String()))
	s.pub.publish(ctx, domain.TableParticipants, domain.ChangeInsert, code, participant, nil)
	return nil
}

func (s *RoomService) ListParticipants(ctx context.Context, code string) ([]domain.Participant, error) {
	const op = "service.room.listParticipants"

	participants, err := s.participants.List(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return participants, nil
}

func (s *RoomService) LeaveRoom(ctx context.Context, code string, userID uuid.UUID) error {
	const op = "service.room.leave"
	code = domain.NormalizeCode(code)

	rows, err := s.participants.Remove(ctx, code, userID)
	if err != nil {
		s.log.Error("failed to remove participant", slog.String("op", op), slog.String("room_code", code), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil
	}

	s.log.Info("participant left", slog.String("op", op), slog.String("room_code", code), slog.String("user_id", userID.String()))
	s.pub.publish(ctx, domain.TableParticipants, domain.ChangeDelete, code, nil, domain.Participant{RoomCode: code, UserID: userID})
	return nil
}

func (s *RoomService) StartPlanning(ctx context.Context, code string, masterID uuid.UUID) (int64, error) {
	const op = "service.room.startPlanning"
	code = domain.NormalizeCode(code)

	return s.updateRoom(ctx, op, code, func() (int64, error) {
		return s.rooms.StartPlanning(ctx, code, masterID)
	})
}

// UpdateSelection writes the shared selection. A missing room is reported as
// repository.ErrRoomNotFound.
func (s *RoomService) UpdateSelection(ctx context.Context, code string, sel domain.Selection) error {
	const op = "service.room.updateSelection"
	code = domain.NormalizeCode(code)

	rows, err := s.updateRoom(ctx, op, code, func() (int64, error) {
		return s.rooms.UpdateSelection(ctx, code, sel)
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrRoomNotFound)
	}
	return nil
}

func (s *RoomService) UpdateSettings(ctx context.Context, code string, masterID uuid.UUID, settings domain.Settings) (int64, error) {
	const op = "service.room.updateSettings"
	code = domain.NormalizeCode(code)

	if !settings.IsPublic {
		settings.Description = nil
	} else {
		desc := strings.TrimSpace(domain.StringValue(settings.Description))
		if desc == "" {
			return 0, fmt.Errorf("%s: %w", op, domain.ErrDescriptionRequired)
		}
		settings.Description = domain.String(desc)
	}
	return s.updateRoom(ctx, op, code, func() (int64, error) {
		return s.rooms.UpdateSettings(ctx, code, masterID, settings)
	})
}

func (s *RoomService) DeleteRoom(ctx context.Context, code string, masterID uuid.UUID) (int64, error) {
	const op = "service.room.delete"
	code = domain.NormalizeCode(code)
	log := s.log.With(slog.String("op", op), slog.String("room_code", code))

	before, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.rooms.Delete(ctx, code, masterID)
	if err != nil {
		log.Error("failed to delete room", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return 0, nil
	}

	if err := s.participants.RemoveAll(ctx, code); err != nil {
		log.Warn("failed to remove participants", sl.Err(err))
	}
	if err := s.messages.DeleteByRoom(ctx, code); err != nil {
		log.Warn("failed to remove messages", sl.Err(err))
	}

	log.Info("room deleted")
	s.pub.publish(ctx, domain.TableRooms, domain.ChangeDelete, code, nil, before)
	return rows, nil
}

// updateRoom runs a room write and publishes the before and after rows when
// it matched.
func (s *RoomService) updateRoom(ctx context.Context, op, code string, write func() (int64, error)) (int64, error) {
	log := s.log.With(slog.String("op", op), slog.String("room_code", code))

	before, err := s.rooms.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := write()
	if err != nil {
		log.Error("room write failed", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		log.Debug("room write matched no rows")
		return 0, nil
	}

	after, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		log.Warn("failed to read room after write", sl.Err(err))
		return rows, nil
	}
	s.pub.publish(ctx, domain.TableRooms, domain.ChangeUpdate, code, after, before)
	return rows, nil
}
