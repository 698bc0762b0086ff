package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/chat"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/feed"
	"github.com/immxrtalbeast/globe_rooms/internal/lifecycle"
	"github.com/immxrtalbeast/globe_rooms/internal/repository"
	"github.com/immxrtalbeast/globe_rooms/internal/selection"
	"github.com/immxrtalbeast/globe_rooms/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type recordingSink struct {
	mu     sync.Mutex
	frames []domain.Frame
}

func (r *recordingSink) Send(_ context.Context, f domain.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *recordingSink) find(typ string, match func(domain.Frame) bool) (domain.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.frames {
		if f.Type == typ && (match == nil || match(f)) {
			return f, true
		}
	}
	return domain.Frame{}, false
}

func (r *recordingSink) count(typ string, match func(domain.Frame) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.frames {
		if f.Type == typ && (match == nil || match(f)) {
			n++
		}
	}
	return n
}

type staticCatalog []domain.Opportunity

func (c staticCatalog) Opportunities(context.Context) ([]domain.Opportunity, error) {
	out := make([]domain.Opportunity, len(c))
	copy(out, c)
	return out, nil
}

var testCatalog = staticCatalog{
	{ID: "1", Lat: 48.85, Lng: 2.35, Name: "Food bank", Link: "https://example.org/1", Country: "France"},
	{ID: "2", Lat: 43.30, Lng: 5.37, Name: "Beach cleanup", Link: "https://example.org/2", Country: "France"},
	{ID: "3", Lat: 52.52, Lng: 13.40, Name: "Library", Link: "https://example.org/3", Country: "Germany"},
}

type harness struct {
	rooms  *service.RoomService
	broker *feed.Broker
	deps   Deps
}

func newHarness() *harness {
	broker := feed.NewBroker(nil)
	messages := repository.NewInMemoryMessageRepository()
	rooms := service.NewRoomService(
		repository.NewInMemoryRoomRepository(),
		repository.NewInMemoryParticipantRepository(),
		messages,
		broker,
		nil,
	)
	users := service.NewUserService(repository.NewInMemoryProfileRepository(), nil)
	return &harness{
		rooms:  rooms,
		broker: broker,
		deps: Deps{
			Rooms:    rooms,
			Chat:     service.NewChatService(messages, broker, nil),
			Profiles: users,
			Feed:     broker,
			Catalog:  testCatalog,
		},
	}
}

type running struct {
	sink    *recordingSink
	actions chan domain.Action
	done    chan error
	cancel  context.CancelFunc
}

func (h *harness) start(t *testing.T, code string, user uuid.UUID) *running {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		sink:    &recordingSink{},
		actions: make(chan domain.Action),
		done:    make(chan error, 1),
		cancel:  cancel,
	}
	s := New(code, user, h.deps, r.sink)
	go func() { r.done <- s.Run(ctx, r.actions) }()
	t.Cleanup(cancel)

	require.Eventually(t, func() bool {
		_, ok := r.sink.find(domain.FrameJoined, nil)
		return ok
	}, waitFor, 10*time.Millisecond)
	return r
}

func (r *running) send(t *testing.T, typ string, payload map[string]any) {
	t.Helper()
	select {
	case r.actions <- domain.Action{Type: typ, Payload: payload}:
	case <-time.After(waitFor):
		t.Fatalf("session did not accept %s", typ)
	}
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.done:
		return err
	case <-time.After(waitFor):
		t.Fatal("session did not stop")
		return nil
	}
}

func redirectTo(to lifecycle.Destination, notice string) func(domain.Frame) bool {
	return func(f domain.Frame) bool {
		p, ok := f.Payload.(redirectPayload)
		return ok && p.To == to && p.Notice == notice
	}
}

func TestSharedRoomLifecycle(t *testing.T) {
	h := newHarness()
	master, guest := uuid.New(), uuid.New()
	room, err := h.rooms.CreateRoom(context.Background(), "Weekend trip", master)
	require.NoError(t, err)

	m := h.start(t, room.Code, master)
	g := h.start(t, room.Code, guest)

	require.Eventually(t, func() bool {
		_, ok := m.sink.find(domain.FrameRoster, func(f domain.Frame) bool {
			return len(f.Payload.([]lifecycle.Member)) == 2
		})
		return ok
	}, waitFor, 10*time.Millisecond)

	m.send(t, domain.ActionBeginPlanning, nil)
	for _, r := range []*running{m, g} {
		require.Eventually(t, func() bool {
			_, ok := r.sink.find(domain.FrameRedirect, redirectTo(lifecycle.DestinationPlanning, ""))
			return ok
		}, waitFor, 10*time.Millisecond)
	}

	g.send(t, domain.ActionSelectCountry, map[string]any{"country": "France"})
	require.Eventually(t, func() bool {
		_, ok := m.sink.find(domain.FrameGlobe, func(f domain.Frame) bool {
			p := f.Payload.(globePayload)
			return p.State == selection.Country("France") && len(p.Markers) == 2
		})
		return ok
	}, waitFor, 10*time.Millisecond)

	g.send(t, domain.ActionChatDraft, map[string]any{"text": "  Paris first?  "})
	g.send(t, domain.ActionChatSend, nil)
	withLine := func(f domain.Frame) bool {
		p := f.Payload.(chatPayload)
		return len(p.Messages) == 1 && p.Messages[0].Message == "Paris first?"
	}
	require.Eventually(t, func() bool {
		_, ok := m.sink.find(domain.FrameChat, withLine)
		return ok
	}, waitFor, 10*time.Millisecond)
	assert.Zero(t, m.sink.count(domain.FrameChat, func(f domain.Frame) bool {
		return len(f.Payload.(chatPayload).Messages) > 1
	}))

	m.send(t, domain.ActionDeleteRoom, map[string]any{"confirm": true})
	require.NoError(t, g.wait(t))
	require.NoError(t, m.wait(t))

	_, ok := g.sink.find(domain.FrameRedirect, redirectTo(lifecycle.DestinationHome, "This room was deleted by its master"))
	assert.True(t, ok)
	_, ok = m.sink.find(domain.FrameRedirect, redirectTo(lifecycle.DestinationHome, "Room deleted"))
	assert.True(t, ok)
}

func TestEnterMissingRoom(t *testing.T) {
	h := newHarness()
	sink := &recordingSink{}
	s := New("nope00", uuid.New(), h.deps, sink)

	err := s.Run(context.Background(), make(chan domain.Action))
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, domain.PhaseTerminated, s.Phase())

	_, ok := sink.find(domain.FrameRedirect, redirectTo(lifecycle.DestinationHome, "Room not found"))
	assert.True(t, ok)
	f, ok := sink.find(domain.FrameError, nil)
	require.True(t, ok)
	assert.True(t, f.Payload.(errorPayload).NotFound)
}

func TestPlanningActionsRejectedWhileWaiting(t *testing.T) {
	h := newHarness()
	master := uuid.New()
	room, err := h.rooms.CreateRoom(context.Background(), "Waiting", master)
	require.NoError(t, err)

	r := h.start(t, room.Code, master)
	r.send(t, domain.ActionSelectCountry, map[string]any{"country": "France"})
	r.send(t, "dance", nil)

	require.Eventually(t, func() bool {
		return r.sink.count(domain.FrameError, nil) == 2
	}, waitFor, 10*time.Millisecond)
	first, _ := r.sink.find(domain.FrameError, nil)
	assert.Equal(t, ErrNotPlanning.Error(), first.Payload.(errorPayload).Message)
}

func TestGuestCannotBeginPlanning(t *testing.T) {
	h := newHarness()
	room, err := h.rooms.CreateRoom(context.Background(), "Guarded", uuid.New())
	require.NoError(t, err)

	r := h.start(t, room.Code, uuid.New())
	r.send(t, domain.ActionBeginPlanning, nil)

	require.Eventually(t, func() bool {
		_, ok := r.sink.find(domain.FrameError, func(f domain.Frame) bool {
			return f.Payload.(errorPayload).Control == "begin_planning"
		})
		return ok
	}, waitFor, 10*time.Millisecond)

	got, err := h.rooms.GetRoom(context.Background(), room.Code)
	require.NoError(t, err)
	assert.False(t, got.PlanningStarted)
}

func TestClosingActionsEndsSession(t *testing.T) {
	h := newHarness()
	master := uuid.New()
	room, err := h.rooms.CreateRoom(context.Background(), "Short", master)
	require.NoError(t, err)

	r := h.start(t, room.Code, master)
	close(r.actions)
	assert.NoError(t, r.wait(t))

	_, err = h.rooms.GetRoom(context.Background(), room.Code)
	assert.NoError(t, err)
}

func TestActionFields(t *testing.T) {
	n, err := intField(map[string]any{"page": float64(3)}, "page")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = intField(map[string]any{"page": " 2 "}, "page")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = intField(map[string]any{}, "page")
	assert.ErrorIs(t, err, ErrBadPayload)

	b, err := boolField(map[string]any{"public": "true"}, "public")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = stringField(map[string]any{"id": 5}, "id")
	assert.ErrorIs(t, err, ErrBadPayload)
}

type countingChat struct {
	chat.Backend
	lists atomic.Int64
}

func (c *countingChat) ListMessages(ctx context.Context, code string) ([]domain.Message, error) {
	c.lists.Add(1)
	return c.Backend.ListMessages(ctx, code)
}

func TestRunReleasesFeedAndPoller(t *testing.T) {
	tests := []struct {
		name    string
		stop    func(t *testing.T, h *harness, r *running, code string, master uuid.UUID)
		wantErr error
	}{
		{
			name: "client disconnects",
			stop: func(_ *testing.T, _ *harness, r *running, _ string, _ uuid.UUID) {
				close(r.actions)
			},
		},
		{
			name: "context canceled",
			stop: func(_ *testing.T, _ *harness, r *running, _ string, _ uuid.UUID) {
				r.cancel()
			},
			wantErr: context.Canceled,
		},
		{
			name: "room deleted",
			stop: func(t *testing.T, h *harness, _ *running, code string, master uuid.UUID) {
				rows, err := h.rooms.DeleteRoom(context.Background(), code, master)
				require.NoError(t, err)
				require.EqualValues(t, 1, rows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness()
			counter := &countingChat{Backend: h.deps.Chat}
			h.deps.Chat = counter

			ctx := context.Background()
			master := uuid.New()
			room, err := h.rooms.CreateRoom(ctx, "Teardown", master)
			require.NoError(t, err)
			_, err = h.rooms.StartPlanning(ctx, room.Code, master)
			require.NoError(t, err)

			r := h.start(t, room.Code, uuid.New())
			require.Eventually(t, func() bool {
				_, ok := r.sink.find(domain.FrameChat, nil)
				return ok
			}, waitFor, 10*time.Millisecond)
			require.Equal(t, 1, h.broker.Subscribers(room.Code))

			tt.stop(t, h, r, room.Code, master)
			err = r.wait(t)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Zero(t, h.broker.Subscribers(room.Code))
			calls := counter.lists.Load()
			time.Sleep(chat.PollInterval + 500*time.Millisecond)
			assert.Equal(t, calls, counter.lists.Load())
		})
	}
}
