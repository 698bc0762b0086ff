package domain

import (
	"fmt"

	json "github.com/goccy/go-json"
)

type Table string

const (
	TableRooms        Table = "rooms"
	TableParticipants Table = "participants"
	TableMessages     Table = "messages"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is a row-level notification delivered on a room's change feed.
// New is absent for deletes and Old is absent for inserts.
type Change struct {
	Table    Table           `json:"table"`
	Type     ChangeType      `json:"type"`
	RoomCode string          `json:"room_code"`
	New      json.RawMessage `json:"new,omitempty"`
	Old      json.RawMessage `json:"old,omitempty"`
}

func NewChange(table Table, typ ChangeType, roomCode string, newRow, oldRow any) (Change, error) {
	change := Change{Table: table, Type: typ, RoomCode: roomCode}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return Change{}, fmt.Errorf("marshal new row: %w", err)
		}
		change.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return Change{}, fmt.Errorf("marshal old row: %w", err)
		}
		change.Old = b
	}
	return change, nil
}

func (c Change) Rooms() (*Room, *Room, error) {
	if c.Table != TableRooms {
		return nil, nil, fmt.Errorf("change on %s is not a room change", c.Table)
	}
	var newRoom, oldRoom *Room
	if len(c.New) > 0 {
		newRoom = &Room{}
		if err := json.Unmarshal(c.New, newRoom); err != nil {
			return nil, nil, fmt.Errorf("decode new room: %w", err)
		}
	}
	if len(c.Old) > 0 {
		oldRoom = &Room{}
		if err := json.Unmarshal(c.Old, oldRoom); err != nil {
			return nil, nil, fmt.Errorf("decode old room: %w", err)
		}
	}
	return newRoom, oldRoom, nil
}

func (c Change) Message() (*Message, error) {
	if c.Table != TableMessages {
		return nil, fmt.Errorf("change on %s is not a message change", c.Table)
	}
	if len(c.New) == 0 {
		return nil, fmt.Errorf("message change without new row")
	}
	var msg Message
	if err := json.Unmarshal(c.New, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

func (c Change) Encode() ([]byte, error) {
	return json.Marshal(c)
}

func DecodeChange(b []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(b, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}
