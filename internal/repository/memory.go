package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

type InMemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewInMemoryRoomRepository() *InMemoryRoomRepository {
	return &InMemoryRoomRepository{
		rooms: make(map[string]*domain.Room),
	}
}

func (r *InMemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.Code]; ok {
		return ErrRoomCodeExists
	}

	r.rooms[room.Code] = room.Clone()
	return nil
}

func (r *InMemoryRoomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (r *InMemoryRoomRepository) ListPublic(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Room, 0)
	for _, room := range r.rooms {
		if room.IsPublic {
			result = append(result, room.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryRoomRepository) StartPlanning(ctx context.Context, code string, masterID uuid.UUID) (int64, error) {
	return r.update(ctx, code, func(room *domain.Room) bool {
		if room.MasterID != masterID {
			return false
		}
		room.PlanningStarted = true
		return true
	})
}

func (r *InMemoryRoomRepository) UpdateSelection(ctx context.Context, code string, sel domain.Selection) (int64, error) {
	return r.update(ctx, code, func(room *domain.Room) bool {
		room.ApplySelection(sel)
		return true
	})
}

func (r *InMemoryRoomRepository) UpdateSettings(ctx context.Context, code string, masterID uuid.UUID, settings domain.Settings) (int64, error) {
	return r.update(ctx, code, func(room *domain.Room) bool {
		if room.MasterID != masterID {
			return false
		}
		room.ApplySettings(settings)
		return true
	})
}

func (r *InMemoryRoomRepository) Delete(ctx context.Context, code string, masterID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok || room.MasterID != masterID {
		return 0, nil
	}
	delete(r.rooms, code)
	return 1, nil
}

func (r *InMemoryRoomRepository) update(ctx context.Context, code string, apply func(*domain.Room) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return 0, nil
	}
	if !apply(room) {
		return 0, nil
	}
	return 1, nil
}

type participantKey struct {
	code   string
	userID uuid.UUID
}

type InMemoryParticipantRepository struct {
	mu           sync.RWMutex
	participants map[participantKey]domain.Participant
}

func NewInMemoryParticipantRepository() *InMemoryParticipantRepository {
	return &InMemoryParticipantRepository{
		participants: make(map[participantKey]domain.Participant),
	}
}

func (r *InMemoryParticipantRepository) Add(ctx context.Context, participant *domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey{code: participant.RoomCode, userID: participant.UserID}
	if _, ok := r.participants[key]; ok {
		return ErrParticipantExists
	}
	r.participants[key] = *participant
	return nil
}

func (r *InMemoryParticipantRepository) List(ctx context.Context, code string) ([]domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Participant, 0)
	for key, p := range r.participants {
		if key.code == code {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].UserID.String() < result[j].UserID.String()
		}
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result, nil
}

func (r *InMemoryParticipantRepository) Remove(ctx context.Context, code string, userID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey{code: code, userID: userID}
	if _, ok := r.participants[key]; !ok {
		return 0, nil
	}
	delete(r.participants, key)
	return 1, nil
}

func (r *InMemoryParticipantRepository) RemoveAll(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.participants {
		if key.code == code {
			delete(r.participants, key)
		}
	}
	return nil
}

type InMemoryMessageRepository struct {
	mu       sync.RWMutex
	nextID   int64
	messages map[string][]domain.Message
}

func NewInMemoryMessageRepository() *InMemoryMessageRepository {
	return &InMemoryMessageRepository{
		messages: make(map[string][]domain.Message),
	}
}

func (r *InMemoryMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	msg.ID = r.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	r.messages[msg.RoomCode] = append(r.messages[msg.RoomCode], *msg)
	return nil
}

func (r *InMemoryMessageRepository) List(ctx context.Context, code string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := append([]domain.Message{}, r.messages[code]...)
	domain.SortMessages(result)
	return result, nil
}

func (r *InMemoryMessageRepository) DeleteByRoom(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.messages, code)
	return nil
}

type InMemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*domain.Profile
	emails   map[string]uuid.UUID
}

func NewInMemoryProfileRepository() *InMemoryProfileRepository {
	return &InMemoryProfileRepository{
		profiles: make(map[uuid.UUID]*domain.Profile),
		emails:   make(map[string]uuid.UUID),
	}
}

func (r *InMemoryProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(profile.Email)
	if email != "" {
		if _, ok := r.emails[email]; ok {
			return ErrProfileEmailExists
		}
		r.emails[email] = profile.ID
	}

	cp := *profile
	r.profiles[profile.ID] = &cp
	return nil
}

func (r *InMemoryProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}

	cp := *profile
	return &cp, nil
}
