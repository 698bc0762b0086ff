package domain

import "math"

// CoordinateTolerance is the per-axis distance, in degrees, under which a
// coordinate pair identifies an opportunity.
const CoordinateTolerance = 0.01

type Opportunity struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Name    string  `json:"name"`
	Link    string  `json:"link,omitempty"`
	Country string  `json:"country,omitempty"`
}

func (o Opportunity) Near(lat, lng float64) bool {
	return math.Abs(o.Lat-lat) < CoordinateTolerance && math.Abs(o.Lng-lng) < CoordinateTolerance
}

// Nearest returns the opportunity closest to (lat, lng) within CoordinateTolerance.
func Nearest(ops []Opportunity, lat, lng float64) (Opportunity, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, o := range ops {
		if !o.Near(lat, lng) {
			continue
		}
		d := math.Abs(o.Lat-lat) + math.Abs(o.Lng-lng)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Opportunity{}, false
	}
	return ops[best], true
}
