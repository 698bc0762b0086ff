// Package lifecycle drives a participant through a room's phases:
// waiting, planning and terminated.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

var (
	ErrNotConfirmed = errors.New("room deletion requires confirmation")
	ErrNotMaster    = errors.New("only the room master can do this")
	ErrNotEntered   = errors.New("room has not been entered")
)

const (
	noticeRoomNotFound = "Room not found"
	noticeRoomDeleted  = "This room was deleted by its master"
	noticeYouDeleted   = "Room deleted"
)

type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	IsMaster bool      `json:"is_master"`
}

// View is the controller's renderable state.
type View struct {
	Phase         domain.Phase `json:"phase"`
	Room          *domain.Room `json:"room,omitempty"`
	Roster        []Member     `json:"roster"`
	IsMaster      bool         `json:"is_master"`
	PublicToggle  bool         `json:"public_toggle"`
	PublicPending bool         `json:"public_pending"`
}

type Controller struct {
	backend  Backend
	names    NameSource
	nav      Navigator
	listener Listener
	log      *slog.Logger

	mu            sync.Mutex
	code          string
	userID        uuid.UUID
	room          *domain.Room
	phase         domain.Phase
	roster        []Member
	pendingPublic bool
	draft         string
	redirected    bool
}

func NewController(backend Backend, names NameSource, nav Navigator, listener Listener, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		backend:  backend,
		names:    names,
		nav:      nav,
		listener: listener,
		log:      log,
		phase:    domain.PhaseWaiting,
	}
}

// Enter looks the room up, joins it and loads the roster.
func (c *Controller) Enter(ctx context.Context, code string, userID uuid.UUID) error {
	const op = "lifecycle.controller.enter"
	code = domain.NormalizeCode(code)
	log := c.log.With(slog.String("op", op), slog.String("room_code", code), slog.String("user_id", userID.String()))

	room, err := c.backend.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			log.Info("room not found")
			c.terminate(noticeRoomNotFound)
			return &domain.BackendReadError{Op: op, NotFound: true, Err: err}
		}
		log.Error("failed to load room", sl.Err(err))
		return &domain.BackendReadError{Op: op, Err: err}
	}

	isMaster := room.MasterID == userID
	if err := c.backend.JoinRoom(ctx, code, userID, isMaster); err != nil && !errors.Is(err, domain.ErrParticipantExists) {
		log.Error("failed to join room", sl.Err(err))
		return &domain.BackendWriteError{Op: op, Control: "join", Err: err}
	}

	c.mu.Lock()
	c.code = code
	c.userID = userID
	c.room = room.Clone()
	c.phase = room.Phase()
	planning := c.phase == domain.PhasePlanning && !c.redirected
	if planning {
		c.redirected = true
	}
	c.mu.Unlock()

	log.Info("entered room", slog.Bool("master", isMaster), slog.String("phase", string(room.Phase())))

	if err := c.OnParticipantChange(ctx); err != nil {
		log.Warn("roster unavailable", sl.Err(err))
	}
	if planning {
		c.redirect(DestinationPlanning, "")
	}
	c.notify()
	return nil
}

// BeginPlanning moves the room to planning. The write is conditional on the
// caller being the master, so a non-master gets a write error.
func (c *Controller) BeginPlanning(ctx context.Context) error {
	const op = "lifecycle.controller.beginPlanning"

	code, userID, ok := c.identity()
	if !ok {
		return ErrNotEntered
	}
	log := c.log.With(slog.String("op", op), slog.String("room_code", code))

	rows, err := c.backend.StartPlanning(ctx, code, userID)
	if err != nil {
		log.Error("failed to start planning", sl.Err(err))
		return &domain.BackendWriteError{Op: op, Control: "begin_planning", Err: err}
	}
	if rows == 0 {
		log.Warn("start planning matched no rows", slog.String("user_id", userID.String()))
		return &domain.BackendWriteError{Op: op, Control: "begin_planning", Err: domain.ErrNoRowsAffected}
	}

	c.mu.Lock()
	if c.room != nil {
		c.room.PlanningStarted = true
	}
	moved := c.toPlanningLocked()
	c.mu.Unlock()

	if moved {
		c.redirect(DestinationPlanning, "")
		c.notify()
	}
	return nil
}

// OnRoomChange applies a rooms row notification and reports whether the
// phase changed.
func (c *Controller) OnRoomChange(change domain.Change) (bool, error) {
	const op = "lifecycle.controller.onRoomChange"

	if change.Table != domain.TableRooms {
		return false, nil
	}

	if change.Type == domain.ChangeDelete {
		return c.terminate(noticeRoomDeleted), nil
	}

	newRoom, _, err := change.Rooms()
	if err != nil {
		c.log.Warn("undecodable room change", slog.String("op", op), sl.Err(err))
		return false, err
	}
	if newRoom == nil {
		return false, nil
	}

	c.mu.Lock()
	if c.phase == domain.PhaseTerminated {
		c.mu.Unlock()
		return false, nil
	}
	c.room = newRoom.Clone()
	if newRoom.IsPublic {
		c.pendingPublic = false
	}
	moved := false
	if newRoom.PlanningStarted {
		moved = c.toPlanningLocked()
	}
	c.mu.Unlock()

	if moved {
		c.redirect(DestinationPlanning, "")
	}
	c.notify()
	return moved, nil
}

// OnParticipantChange re-fetches the roster and resolves member names.
func (c *Controller) OnParticipantChange(ctx context.Context) error {
	const op = "lifecycle.controller.onParticipantChange"

	code, _, ok := c.identity()
	if !ok {
		return ErrNotEntered
	}

	participants, err := c.backend.ListParticipants(ctx, code)
	if err != nil {
		c.log.Error("failed to list participants", slog.String("op", op), sl.Err(err))
		return &domain.BackendReadError{Op: op, Err: err}
	}

	roster := make([]Member, 0, len(participants))
	for _, p := range participants {
		roster = append(roster, Member{
			UserID:   p.UserID,
			Name:     c.names.Resolve(ctx, p.UserID),
			IsMaster: p.IsMaster,
		})
	}

	c.mu.Lock()
	c.roster = roster
	c.mu.Unlock()

	c.notify()
	return nil
}

// SetPublic toggles room visibility. Enabling without a description only
// marks the toggle pending until one is provided.
func (c *Controller) SetPublic(ctx context.Context, on bool) error {
	const op = "lifecycle.controller.setPublic"

	code, userID, ok := c.identity()
	if !ok {
		return ErrNotEntered
	}

	c.mu.Lock()
	prevPending := c.pendingPublic
	prevDraft := c.draft
	var settings domain.Settings
	if on {
		desc := c.descriptionLocked()
		if desc == "" {
			c.pendingPublic = true
			c.mu.Unlock()
			c.notify()
			return nil
		}
		settings = domain.Settings{IsPublic: true, Description: domain.String(desc)}
	} else {
		settings = domain.Settings{IsPublic: false}
		c.draft = ""
	}
	c.pendingPublic = false
	c.mu.Unlock()

	if err := c.writeSettings(ctx, op, code, userID, settings, "set_public"); err != nil {
		c.mu.Lock()
		c.pendingPublic = prevPending
		c.draft = prevDraft
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.notify()
	return nil
}

// SetDescription records the public description. It is written when the
// room is public or a public toggle is pending. A public room cannot have its
// description cleared.
func (c *Controller) SetDescription(ctx context.Context, text string) error {
	const op = "lifecycle.controller.setDescription"

	code, userID, ok := c.identity()
	if !ok {
		return ErrNotEntered
	}
	text = strings.TrimSpace(text)

	c.mu.Lock()
	public := c.room != nil && c.room.IsPublic
	if public && text == "" {
		c.mu.Unlock()
		return &domain.BackendWriteError{Op: op, Control: "set_description", Err: domain.ErrDescriptionRequired}
	}
	c.draft = text
	pending := c.pendingPublic
	c.mu.Unlock()

	if !public && !(pending && text != "") {
		c.notify()
		return nil
	}

	settings := domain.Settings{IsPublic: true, Description: domain.String(text)}
	if err := c.writeSettings(ctx, op, code, userID, settings, "set_description"); err != nil {
		return err
	}

	c.mu.Lock()
	c.pendingPublic = false
	c.mu.Unlock()
	c.notify()
	return nil
}

// DeleteRoom removes the room. Only the master may delete, and only after
// confirming.
func (c *Controller) DeleteRoom(ctx context.Context, confirmed bool) error {
	const op = "lifecycle.controller.deleteRoom"

	if _, _, ok := c.identity(); !ok {
		return ErrNotEntered
	}
	if !c.IsMaster() {
		return ErrNotMaster
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := c.deleteRoom(ctx, op, "delete_room"); err != nil {
		return err
	}
	c.terminate(noticeYouDeleted)
	return nil
}

// Leave removes the caller from the room. A leaving master deletes the room.
func (c *Controller) Leave(ctx context.Context) error {
	const op = "lifecycle.controller.leave"

	code, userID, ok := c.identity()
	if !ok {
		return ErrNotEntered
	}

	if c.IsMaster() {
		if err := c.deleteRoom(ctx, op, "leave"); err != nil {
			return err
		}
		c.terminate("")
		return nil
	}

	if err := c.backend.LeaveRoom(ctx, code, userID); err != nil {
		c.log.Error("failed to leave room", slog.String("op", op), slog.String("room_code", code), sl.Err(err))
		return &domain.BackendWriteError{Op: op, Control: "leave", Err: err}
	}
	c.terminate("")
	return nil
}

func (c *Controller) Phase() domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Room() *domain.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room.Clone()
}

func (c *Controller) IsMaster() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room != nil && c.room.MasterID == c.userID
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Phase:         c.phase,
		Room:          c.room.Clone(),
		Roster:        append([]Member(nil), c.roster...),
		PublicPending: c.pendingPublic,
	}
	if c.room != nil {
		v.IsMaster = c.room.MasterID == c.userID
		v.PublicToggle = c.room.IsPublic || c.pendingPublic
	}
	return v
}

func (c *Controller) identity() (string, uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.userID, c.code != ""
}

func (c *Controller) descriptionLocked() string {
	if c.room != nil {
		if desc := strings.TrimSpace(domain.StringValue(c.room.Description)); desc != "" {
			return desc
		}
	}
	return c.draft
}

func (c *Controller) writeSettings(ctx context.Context, op, code string, userID uuid.UUID, settings domain.Settings, control string) error {
	rows, err := c.backend.UpdateSettings(ctx, code, userID, settings)
	if err == nil && rows == 0 {
		err = domain.ErrNoRowsAffected
	}
	if err != nil {
		c.log.Error("failed to update settings", slog.String("op", op), slog.String("room_code", code), sl.Err(err))
		return &domain.BackendWriteError{Op: op, Control: control, Err: err}
	}

	c.mu.Lock()
	if c.room != nil {
		c.room.ApplySettings(settings)
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) deleteRoom(ctx context.Context, op, control string) error {
	code, userID, _ := c.identity()
	rows, err := c.backend.DeleteRoom(ctx, code, userID)
	if err == nil && rows == 0 {
		err = domain.ErrNoRowsAffected
	}
	if err != nil {
		c.log.Error("failed to delete room", slog.String("op", op), slog.String("room_code", code), sl.Err(err))
		return &domain.BackendWriteError{Op: op, Control: control, Err: err}
	}
	c.log.Info("room deleted", slog.String("op", op), slog.String("room_code", code))
	return nil
}

// toPlanningLocked reports whether this call performed the transition.
func (c *Controller) toPlanningLocked() bool {
	if c.phase != domain.PhaseWaiting {
		return false
	}
	c.phase = domain.PhasePlanning
	if c.redirected {
		return false
	}
	c.redirected = true
	return true
}

// terminate moves to TERMINATED once and redirects home.
func (c *Controller) terminate(notice string) bool {
	c.mu.Lock()
	if c.phase == domain.PhaseTerminated {
		c.mu.Unlock()
		return false
	}
	c.phase = domain.PhaseTerminated
	c.mu.Unlock()

	c.redirect(DestinationHome, notice)
	c.notify()
	return true
}

func (c *Controller) redirect(to Destination, notice string) {
	if c.nav != nil {
		c.nav.Redirect(to, notice)
	}
}

func (c *Controller) notify() {
	if c.listener == nil {
		return
	}
	c.listener.LifecycleChanged(c.View())
}
