package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const codeLength = 6

type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhasePlanning   Phase = "planning"
	PhaseTerminated Phase = "terminated"
)

// Room is the single authoritative row shared by every participant of a session.
// Country selection and opportunity selection are mutually exclusive.
type Room struct {
	Code            string    `json:"room_code"`
	MasterID        uuid.UUID `json:"master_id"`
	IsPublic        bool      `json:"is_public"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	PlanningStarted bool      `json:"planning_started"`
	SelectedCountry *string   `json:"selected_country"`
	SelectedLat     *float64  `json:"selected_opportunity_lat"`
	SelectedLng     *float64  `json:"selected_opportunity_lng"`
	CreatedAt       time.Time `json:"created_at"`
}

// Selection is the field group written by the selection reconciler.
type Selection struct {
	Country *string  `json:"selected_country"`
	Lat     *float64 `json:"selected_opportunity_lat"`
	Lng     *float64 `json:"selected_opportunity_lng"`
}

// Settings is the field group written by the room master.
type Settings struct {
	IsPublic    bool    `json:"is_public"`
	Description *string `json:"description"`
}

// NewRoom constructs a room in the waiting phase with a generated short code.
func NewRoom(name string, master uuid.UUID) *Room {
	return &Room{
		Code:      GenerateCode(),
		MasterID:  master,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Room) Phase() Phase {
	if r == nil {
		return PhaseTerminated
	}
	if r.PlanningStarted {
		return PhasePlanning
	}
	return PhaseWaiting
}

func (r *Room) Selection() Selection {
	return Selection{
		Country: cloneString(r.SelectedCountry),
		Lat:     cloneFloat(r.SelectedLat),
		Lng:     cloneFloat(r.SelectedLng),
	}
}

func (r *Room) Settings() Settings {
	return Settings{IsPublic: r.IsPublic, Description: cloneString(r.Description)}
}

func (r *Room) ApplySelection(sel Selection) {
	r.SelectedCountry = cloneString(sel.Country)
	r.SelectedLat = cloneFloat(sel.Lat)
	r.SelectedLng = cloneFloat(sel.Lng)
}

func (r *Room) ApplySettings(s Settings) {
	r.IsPublic = s.IsPublic
	r.Description = cloneString(s.Description)
}

// Clone returns a deep copy so snapshots published on the feed never alias stored rows.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Description = cloneString(r.Description)
	c.ApplySelection(r.Selection())
	return &c
}

// GenerateCode returns an upper-case short room code.
func GenerateCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return code[:codeLength]
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func String(s string) *string { return &s }

func Float64(f float64) *float64 { return &f }

// HasCoordinates reports whether both opportunity coordinates are set.
func (s Selection) HasCoordinates() bool {
	return s.Lat != nil && s.Lng != nil
}

func (s Selection) IsEmpty() bool {
	return s.Country == nil && s.Lat == nil && s.Lng == nil
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func EqualString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func EqualFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
