// Package session runs one participant's connection to a room: a single event
// loop fed by the room's change feed and the client's actions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/chat"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/feed"
	"github.com/immxrtalbeast/globe_rooms/internal/lifecycle"
	"github.com/immxrtalbeast/globe_rooms/internal/selection"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
	"golang.org/x/sync/errgroup"
)

var ErrFeedClosed = errors.New("change feed closed")

// Sink delivers frames to the client.
type Sink interface {
	Send(ctx context.Context, frame domain.Frame) error
}

type Catalog interface {
	Opportunities(ctx context.Context) ([]domain.Opportunity, error)
}

type RoomBackend interface {
	lifecycle.Backend
	selection.Writer
}

type Deps struct {
	Rooms    RoomBackend
	Chat     chat.Backend
	Profiles chat.ProfileLookup
	Feed     feed.Feed
	// Catalog may be nil, in which case the opportunity panel stays empty.
	Catalog Catalog
	Log     *slog.Logger
}

type dirty uint8

const (
	dirtyRoom dirty = 1 << iota
	dirtyRoster
	dirtyGlobe
	dirtyList
	dirtyChat
)

type Session struct {
	code   string
	userID uuid.UUID
	deps   Deps
	sink   Sink
	log    *slog.Logger

	names *chat.NameResolver
	life  *lifecycle.Controller
	sel   *selection.Reconciler
	chat  *chat.Synchronizer

	notify chan struct{}

	mu       sync.Mutex
	pending  dirty
	pan      *domain.Opportunity
	outbox   []domain.Frame
	planning bool
}

func New(code string, userID uuid.UUID, deps Deps, sink Sink) *Session {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	code = domain.NormalizeCode(code)
	log = log.With(slog.String("room_code", code), slog.String("user_id", userID.String()))

	s := &Session{
		code:   code,
		userID: userID,
		deps:   deps,
		sink:   sink,
		log:    log,
		notify: make(chan struct{}, 1),
	}
	h := hooks{s: s}
	s.names = chat.NewNameResolver(deps.Profiles, log)
	s.life = lifecycle.NewController(deps.Rooms, s.names, h, h, log)
	s.sel = selection.NewReconciler(code, deps.Rooms, h, log)
	s.chat = chat.NewSynchronizer(code, deps.Chat, s.names, h, log)
	return s
}

// Run enters the room and serves it until the room terminates for this
// participant, the actions channel closes, or ctx is done. The feed
// subscription and the chat poller do not outlive Run.
func (s *Session) Run(ctx context.Context, actions <-chan domain.Action) error {
	const op = "session.run"
	log := s.log.With(slog.String("op", op))

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	defer func() {
		cancel()
		_ = g.Wait()
		s.sel.Close()
		s.chat.Wait()
		log.Info("session closed")
	}()

	sub, err := s.deps.Feed.Subscribe(ctx, s.code)
	if err != nil {
		log.Error("failed to subscribe", sl.Err(err))
		return fmt.Errorf("%s: subscribe: %w", op, err)
	}
	defer sub.Close()

	if err := s.life.Enter(ctx, s.code, s.userID); err != nil {
		s.queueError("enter", err)
		_ = s.flush(ctx)
		return err
	}
	log.Info("session started")

	if err := s.sink.Send(ctx, domain.Frame{Type: domain.FrameJoined, Room: s.code, Payload: joinedPayload{
		RoomCode: s.code,
		UserID:   s.userID,
		IsMaster: s.life.IsMaster(),
	}}); err != nil {
		return err
	}
	s.mark(dirtyRoom | dirtyRoster)
	if s.life.Phase() == domain.PhasePlanning {
		s.startPlanning(ctx, gctx, g)
	}

	for {
		if err := s.flush(ctx); err != nil {
			return err
		}
		if s.life.Phase() == domain.PhaseTerminated {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-sub.Changes():
			if !ok {
				return ErrFeedClosed
			}
			s.handleChange(ctx, gctx, g, change)
		case action, ok := <-actions:
			if !ok {
				log.Info("client disconnected")
				return nil
			}
			s.handleAction(ctx, gctx, g, action)
		case <-s.notify:
		}
	}
}

func (s *Session) Phase() domain.Phase {
	return s.life.Phase()
}

func (s *Session) handleChange(ctx, gctx context.Context, g *errgroup.Group, change domain.Change) {
	const op = "session.handleChange"

	switch change.Table {
	case domain.TableRooms:
		if _, err := s.life.OnRoomChange(change); err != nil {
			s.log.Warn("room change rejected", slog.String("op", op), sl.Err(err))
			return
		}
		if s.life.Phase() != domain.PhasePlanning {
			return
		}
		if !s.isPlanning() {
			s.startPlanning(ctx, gctx, g)
			return
		}
		if newRoom, _, err := change.Rooms(); err == nil && newRoom != nil {
			s.sel.ApplyRemote(newRoom)
		}

	case domain.TableParticipants:
		if err := s.life.OnParticipantChange(ctx); err != nil {
			s.log.Warn("roster refresh failed", slog.String("op", op), sl.Err(err))
		}

	case domain.TableMessages:
		if change.Type != domain.ChangeInsert || !s.isPlanning() {
			return
		}
		msg, err := change.Message()
		if err != nil {
			s.log.Warn("undecodable message change", slog.String("op", op), sl.Err(err))
			return
		}
		s.chat.OnRemoteInsert(ctx, *msg)
	}
}

func (s *Session) handleAction(ctx, gctx context.Context, g *errgroup.Group, a domain.Action) {
	const op = "session.handleAction"
	s.log.Debug("client action", slog.String("op", op), slog.String("action", a.Type))

	if err := s.dispatch(ctx, gctx, g, a); err != nil {
		s.queueError(a.Type, err)
	}
}

func (s *Session) dispatch(ctx, gctx context.Context, g *errgroup.Group, a domain.Action) error {
	switch a.Type {
	case domain.ActionBeginPlanning:
		if err := s.life.BeginPlanning(ctx); err != nil {
			return err
		}
		if s.life.Phase() == domain.PhasePlanning {
			s.startPlanning(ctx, gctx, g)
		}
		return nil
	case domain.ActionSetPublic:
		on, err := boolField(a.Payload, "public")
		if err != nil {
			return err
		}
		return s.life.SetPublic(ctx, on)
	case domain.ActionSetDescription:
		text, err := stringField(a.Payload, "description")
		if err != nil {
			return err
		}
		return s.life.SetDescription(ctx, text)
	case domain.ActionDeleteRoom:
		// a missing flag counts as unconfirmed
		confirmed, _ := boolField(a.Payload, "confirm")
		return s.life.DeleteRoom(ctx, confirmed)
	case domain.ActionLeave:
		return s.life.Leave(ctx)
	}

	if !s.isPlanning() {
		switch a.Type {
		case domain.ActionSelectOpportunity, domain.ActionBack, domain.ActionSelectCountry,
			domain.ActionPage, domain.ActionChatDraft, domain.ActionChatSend:
			return ErrNotPlanning
		}
	}

	switch a.Type {
	case domain.ActionSelectOpportunity:
		id, err := stringField(a.Payload, "id")
		if err != nil {
			return err
		}
		s.sel.ClickOpportunity(ctx, id)
		return nil
	case domain.ActionBack:
		return s.sel.Back(ctx)
	case domain.ActionSelectCountry:
		c, err := stringField(a.Payload, "country")
		if err != nil {
			return err
		}
		return s.sel.PickCountry(ctx, c)
	case domain.ActionPage:
		n, err := intField(a.Payload, "page")
		if err != nil {
			return err
		}
		s.sel.SetPage(n)
		s.mark(dirtyList)
		return nil
	case domain.ActionChatDraft:
		text, err := stringField(a.Payload, "text")
		if err != nil {
			return err
		}
		s.chat.SetDraft(text)
		return nil
	case domain.ActionChatSend:
		_, err := s.chat.Send(ctx, s.userID)
		s.mark(dirtyChat)
		if errors.Is(err, chat.ErrEmptyMessage) {
			return nil
		}
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}

// startPlanning loads the planning view once: catalog, stored selection,
// chat history and the chat poller.
func (s *Session) startPlanning(ctx, gctx context.Context, g *errgroup.Group) {
	const op = "session.startPlanning"

	s.mu.Lock()
	if s.planning {
		s.mu.Unlock()
		return
	}
	s.planning = true
	s.mu.Unlock()

	if s.deps.Catalog != nil {
		ops, err := s.deps.Catalog.Opportunities(ctx)
		if err != nil {
			s.log.Error("catalog unavailable", slog.String("op", op), sl.Err(err))
			s.queueError("catalog", err)
		} else {
			s.sel.SetCatalog(ops)
		}
	}
	s.sel.Init(s.life.Room())

	if err := s.chat.LoadHistory(ctx); err != nil {
		s.queueError("chat", err)
	}
	g.Go(func() error {
		s.chat.Poll(gctx)
		return nil
	})

	s.mark(dirtyGlobe | dirtyList | dirtyChat)
}

func (s *Session) isPlanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planning
}

func (s *Session) mark(d dirty) {
	s.mu.Lock()
	s.pending |= d
	s.mu.Unlock()
	s.poke()
}

func (s *Session) queue(f domain.Frame) {
	s.mu.Lock()
	s.outbox = append(s.outbox, f)
	s.mu.Unlock()
	s.poke()
}

func (s *Session) queueError(control string, err error) {
	s.queue(errorFrame(s.code, control, err))
}

func (s *Session) poke() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// flush renders what changed since the last flush. Queued frames go first so
// a redirect precedes the view it leads to.
func (s *Session) flush(ctx context.Context) error {
	s.mu.Lock()
	d := s.pending
	pan := s.pan
	outbox := s.outbox
	s.pending = 0
	s.pan = nil
	s.outbox = nil
	s.mu.Unlock()

	frames := outbox
	if d&(dirtyRoom|dirtyRoster) != 0 {
		v := s.life.View()
		if d&dirtyRoom != 0 {
			frames = append(frames, roomFrame(s.code, v))
		}
		if d&dirtyRoster != 0 {
			frames = append(frames, rosterFrame(s.code, v))
		}
	}
	if d&(dirtyGlobe|dirtyList) != 0 {
		v := s.sel.View()
		if d&dirtyGlobe != 0 {
			frames = append(frames, globeFrame(s.code, v, pan))
		}
		if d&dirtyList != 0 {
			frames = append(frames, listFrame(s.code, v))
		}
	}
	if d&dirtyChat != 0 {
		frames = append(frames, chatFrame(s.code, s.chat.Messages(), s.names, s.chat.Draft(), time.Now()))
	}

	for _, f := range frames {
		if err := s.sink.Send(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// hooks adapts the session to the components' listener interfaces. Hooks may
// fire on other goroutines; they only record what to render.
type hooks struct {
	s *Session
}

func (h hooks) SelectionChanged(selection.State) {
	h.s.mark(dirtyGlobe | dirtyList)
}

func (h hooks) FocusChanged(focus *domain.Opportunity) {
	if focus == nil {
		return
	}
	f := *focus
	h.s.mu.Lock()
	h.s.pan = &f
	h.s.mu.Unlock()
	h.s.mark(dirtyGlobe)
}

func (h hooks) SelectionFailed(err error) {
	h.s.queueError(domain.ActionSelectOpportunity, err)
}

func (h hooks) MessagesChanged([]domain.Message) {
	h.s.mark(dirtyChat)
}

func (h hooks) NameResolved(uuid.UUID, string) {
	h.s.mark(dirtyChat)
}

func (h hooks) LifecycleChanged(lifecycle.View) {
	h.s.mark(dirtyRoom | dirtyRoster)
}

func (h hooks) Redirect(to lifecycle.Destination, notice string) {
	h.s.queue(redirectFrame(h.s.code, to, notice))
}
