package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/feed"
	"github.com/immxrtalbeast/globe_rooms/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	rooms    *RoomService
	chat     *ChatService
	users    *UserService
	broker   *feed.Broker
	messages *repository.InMemoryMessageRepository
}

func newEnv() *env {
	broker := feed.NewBroker(nil)
	messages := repository.NewInMemoryMessageRepository()
	return &env{
		rooms: NewRoomService(
			repository.NewInMemoryRoomRepository(),
			repository.NewInMemoryParticipantRepository(),
			messages,
			broker,
			nil,
		),
		chat:     NewChatService(messages, broker, nil),
		users:    NewUserService(repository.NewInMemoryProfileRepository(), nil),
		broker:   broker,
		messages: messages,
	}
}

func (e *env) subscribe(t *testing.T, code string) feed.Subscription {
	t.Helper()
	sub, err := e.broker.Subscribe(context.Background(), code)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func next(t *testing.T, sub feed.Subscription) domain.Change {
	t.Helper()
	select {
	case ch := <-sub.Changes():
		return ch
	case <-time.After(time.Second):
		t.Fatal("no change published")
		return domain.Change{}
	}
}

func none(t *testing.T, sub feed.Subscription) {
	t.Helper()
	select {
	case ch := <-sub.Changes():
		t.Fatalf("unexpected change %s %s", ch.Table, ch.Type)
	default:
	}
}

func TestCreateRoomValidates(t *testing.T) {
	e := newEnv()
	_, err := e.rooms.CreateRoom(context.Background(), "  ", uuid.New())
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = e.rooms.CreateRoom(context.Background(), "Harbour", uuid.Nil)
	assert.ErrorIs(t, err, ErrMasterRequired)

	room, err := e.rooms.CreateRoom(context.Background(), " Harbour ", uuid.New())
	require.NoError(t, err)
	assert.Len(t, room.Code, 6)
	assert.Equal(t, strings.ToUpper(room.Code), room.Code)
	assert.Equal(t, "Harbour", room.Name)
}

func TestStartPlanningPublishesBeforeAndAfter(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	master := uuid.New()
	room, err := e.rooms.CreateRoom(ctx, "Harbour", master)
	require.NoError(t, err)
	sub := e.subscribe(t, room.Code)

	rows, err := e.rooms.StartPlanning(ctx, room.Code, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, rows)
	none(t, sub)

	rows, err = e.rooms.StartPlanning(ctx, strings.ToLower(room.Code), master)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	change := next(t, sub)
	assert.Equal(t, domain.ChangeUpdate, change.Type)
	newRoom, oldRoom, err := change.Rooms()
	require.NoError(t, err)
	assert.True(t, newRoom.PlanningStarted)
	assert.False(t, oldRoom.PlanningStarted)
}

func TestUpdateSelectionMissingRoom(t *testing.T) {
	e := newEnv()
	err := e.rooms.UpdateSelection(context.Background(), "NOPE00", domain.Selection{})
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestSettingsPrivateDropsDescription(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	master := uuid.New()
	room, err := e.rooms.CreateRoom(ctx, "Harbour", master)
	require.NoError(t, err)

	_, err = e.rooms.UpdateSettings(ctx, room.Code, master, domain.Settings{IsPublic: true, Description: domain.String("Food bank")})
	require.NoError(t, err)
	public, err := e.rooms.ListPublicRooms(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)

	_, err = e.rooms.UpdateSettings(ctx, room.Code, master, domain.Settings{IsPublic: false, Description: domain.String("stale")})
	require.NoError(t, err)
	got, err := e.rooms.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.False(t, got.IsPublic)
	assert.Nil(t, got.Description)
}

func TestSettingsPublicRequiresDescription(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	master := uuid.New()
	room, err := e.rooms.CreateRoom(ctx, "Harbour", master)
	require.NoError(t, err)

	_, err = e.rooms.UpdateSettings(ctx, room.Code, master, domain.Settings{IsPublic: true})
	assert.ErrorIs(t, err, domain.ErrDescriptionRequired)
	_, err = e.rooms.UpdateSettings(ctx, room.Code, master, domain.Settings{IsPublic: true, Description: domain.String("  ")})
	assert.ErrorIs(t, err, domain.ErrDescriptionRequired)

	public, err := e.rooms.ListPublicRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	_, err = e.rooms.UpdateSettings(ctx, room.Code, master, domain.Settings{IsPublic: true, Description: domain.String(" Food bank ")})
	require.NoError(t, err)
	got, err := e.rooms.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, "Food bank", domain.StringValue(got.Description))
}

func TestJoinAndLeavePublishParticipantChanges(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	room, err := e.rooms.CreateRoom(ctx, "Harbour", uuid.New())
	require.NoError(t, err)
	sub := e.subscribe(t, room.Code)
	guest := uuid.New()

	require.NoError(t, e.rooms.JoinRoom(ctx, room.Code, guest, false))
	assert.Equal(t, domain.TableParticipants, next(t, sub).Table)

	err = e.rooms.JoinRoom(ctx, room.Code, guest, false)
	assert.ErrorIs(t, err, domain.ErrParticipantExists)
	none(t, sub)

	require.NoError(t, e.rooms.LeaveRoom(ctx, room.Code, guest))
	change := next(t, sub)
	assert.Equal(t, domain.ChangeDelete, change.Type)

	// leaving twice is silent
	require.NoError(t, e.rooms.LeaveRoom(ctx, room.Code, guest))
	none(t, sub)
}

func TestDeleteRoomCascadesAndPublishes(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	master := uuid.New()
	room, err := e.rooms.CreateRoom(ctx, "Harbour", master)
	require.NoError(t, err)
	require.NoError(t, e.rooms.JoinRoom(ctx, room.Code, master, true))
	_, err = e.chat.SendMessage(ctx, room.Code, master, "hello")
	require.NoError(t, err)
	sub := e.subscribe(t, room.Code)

	rows, err := e.rooms.DeleteRoom(ctx, room.Code, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, rows)

	rows, err = e.rooms.DeleteRoom(ctx, room.Code, master)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	change := next(t, sub)
	assert.Equal(t, domain.ChangeDelete, change.Type)
	_, oldRoom, err := change.Rooms()
	require.NoError(t, err)
	assert.Equal(t, room.Code, oldRoom.Code)

	participants, err := e.rooms.ListParticipants(ctx, room.Code)
	require.NoError(t, err)
	assert.Empty(t, participants)
	msgs, err := e.chat.ListMessages(ctx, room.Code)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = e.rooms.GetRoom(ctx, room.Code)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestSendMessagePublishesInsert(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	sub := e.subscribe(t, "ABC123")
	user := uuid.New()

	msg, err := e.chat.SendMessage(ctx, "abc123", user, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Message)
	assert.NotZero(t, msg.ID)

	got, err := next(t, sub).Message()
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
}

func TestSendMessageValidates(t *testing.T) {
	e := newEnv()
	_, err := e.chat.SendMessage(context.Background(), "ABC123", uuid.New(), "   ")
	assert.ErrorIs(t, err, ErrMessageRequired)
	_, err = e.chat.SendMessage(context.Background(), "ABC123", uuid.New(), strings.Repeat("é", maxChatMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestUsers(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.users.CreateUser(ctx, " ", "")
	assert.Error(t, err)

	profile, err := e.users.CreateUser(ctx, "", "jo@example.org")
	require.NoError(t, err)

	got, err := e.users.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "jo@example.org", got.Email)

	_, err = e.users.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
