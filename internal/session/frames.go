package session

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/chat"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/lifecycle"
	"github.com/immxrtalbeast/globe_rooms/internal/selection"
)

type joinedPayload struct {
	RoomCode string    `json:"room_code"`
	UserID   uuid.UUID `json:"user_id"`
	IsMaster bool      `json:"is_master"`
}

type roomPayload struct {
	Phase         domain.Phase `json:"phase"`
	Room          *domain.Room `json:"room,omitempty"`
	IsMaster      bool         `json:"is_master"`
	PublicToggle  bool         `json:"public_toggle"`
	PublicPending bool         `json:"public_pending"`
}

type globePayload struct {
	State   selection.State      `json:"state"`
	ShowAll bool                 `json:"show_all"`
	Markers []domain.Opportunity `json:"markers"`
	Focused *domain.Opportunity  `json:"focused,omitempty"`
	// PanTo is set once after a local or remote focus change.
	PanTo *domain.Opportunity `json:"pan_to,omitempty"`
}

type listPayload struct {
	State   selection.State      `json:"state"`
	ShowAll bool                 `json:"show_all"`
	Items   []domain.Opportunity `json:"items"`
	Info    selection.PageInfo   `json:"info"`
}

type chatLine struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Ago       string    `json:"ago"`
}

type chatPayload struct {
	Messages []chatLine `json:"messages"`
	Draft    string     `json:"draft"`
}

type redirectPayload struct {
	To     lifecycle.Destination `json:"to"`
	Notice string                `json:"notice,omitempty"`
}

type errorPayload struct {
	Control  string `json:"control"`
	Message  string `json:"message"`
	NotFound bool   `json:"not_found,omitempty"`
}

func roomFrame(code string, v lifecycle.View) domain.Frame {
	return domain.Frame{Type: domain.FrameRoom, Room: code, Payload: roomPayload{
		Phase:         v.Phase,
		Room:          v.Room,
		IsMaster:      v.IsMaster,
		PublicToggle:  v.PublicToggle,
		PublicPending: v.PublicPending,
	}}
}

func rosterFrame(code string, v lifecycle.View) domain.Frame {
	return domain.Frame{Type: domain.FrameRoster, Room: code, Payload: v.Roster}
}

func globeFrame(code string, v selection.View, pan *domain.Opportunity) domain.Frame {
	return domain.Frame{Type: domain.FrameGlobe, Room: code, Payload: globePayload{
		State:   v.State,
		ShowAll: v.State.ShowAll(),
		Markers: v.Markers,
		Focused: v.Focused,
		PanTo:   pan,
	}}
}

func listFrame(code string, v selection.View) domain.Frame {
	return domain.Frame{Type: domain.FrameList, Room: code, Payload: listPayload{
		State:   v.State,
		ShowAll: v.State.ShowAll(),
		Items:   v.Page.Items,
		Info:    v.Page.Info,
	}}
}

func chatFrame(code string, msgs []domain.Message, names *chat.NameResolver, draft string, now time.Time) domain.Frame {
	lines := make([]chatLine, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, chatLine{
			ID:        m.ID,
			UserID:    m.UserID,
			Author:    names.Name(m.UserID),
			Message:   m.Message,
			CreatedAt: m.CreatedAt,
			Ago:       humanize.RelTime(m.CreatedAt, now, "ago", "from now"),
		})
	}
	return domain.Frame{Type: domain.FrameChat, Room: code, Payload: chatPayload{Messages: lines, Draft: draft}}
}

func redirectFrame(code string, to lifecycle.Destination, notice string) domain.Frame {
	return domain.Frame{Type: domain.FrameRedirect, Room: code, Payload: redirectPayload{To: to, Notice: notice}}
}

func errorFrame(code, control string, err error) domain.Frame {
	p := errorPayload{Control: control, Message: err.Error()}
	var writeErr *domain.BackendWriteError
	if errors.As(err, &writeErr) && writeErr.Control != "" {
		p.Control = writeErr.Control
	}
	var loadErr *domain.CatalogLoadError
	if errors.As(err, &loadErr) {
		p.Control = "catalog"
	}
	p.NotFound = domain.IsNotFound(err)
	return domain.Frame{Type: domain.FrameError, Room: code, Payload: p}
}
