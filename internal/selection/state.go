package selection

import (
	"github.com/immxrtalbeast/globe_rooms/internal/country"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

type Mode int

const (
	ModeAll Mode = iota
	ModeCountry
	ModeSingle
)

func (m Mode) String() string {
	switch m {
	case ModeCountry:
		return "country"
	case ModeSingle:
		return "single"
	default:
		return "all"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// State is what is currently highlighted. Country is set only in ModeCountry
// and OpportunityID only in ModeSingle.
type State struct {
	Mode          Mode   `json:"mode"`
	Country       string `json:"country,omitempty"`
	OpportunityID string `json:"opportunity_id,omitempty"`
}

func All() State { return State{Mode: ModeAll} }

func Country(c string) State { return State{Mode: ModeCountry, Country: c} }

func Single(id string) State { return State{Mode: ModeSingle, OpportunityID: id} }

// ShowAll reports whether the full catalog is visible.
func (s State) ShowAll() bool { return s.Mode == ModeAll }

// Displayed derives the visible set from a state and a catalog. Every consumer
// of the visible set goes through this function.
func Displayed(s State, catalog []domain.Opportunity) []domain.Opportunity {
	switch s.Mode {
	case ModeCountry:
		out := make([]domain.Opportunity, 0)
		for _, o := range catalog {
			if country.Matches(o.Country, s.Country) {
				out = append(out, o)
			}
		}
		return out
	case ModeSingle:
		for _, o := range catalog {
			if o.ID == s.OpportunityID {
				return []domain.Opportunity{o}
			}
		}
		return []domain.Opportunity{}
	default:
		out := make([]domain.Opportunity, len(catalog))
		copy(out, catalog)
		return out
	}
}
