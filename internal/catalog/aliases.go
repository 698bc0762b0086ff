package catalog

import (
	"math"
	"strconv"
	"strings"
)

// Key spellings accepted for each field, evaluated first-match.
var (
	coordinateKeys = []string{"latlon", "latLon", "lat_lon", "coordinates"}
	nameKeys       = []string{"name", "title", "opportunity_name", "organization"}
	linkKeys       = []string{"link", "url", "href", "website"}
	countryKeys    = []string{"country", "country_name", "countryName", "location_country"}
	idKeys         = []string{"id"}
)

// firstPresent returns the value of the first key that is present and not null.
func firstPresent(entry map[string]any, keys []string) (any, string, bool) {
	for _, k := range keys {
		if v, ok := entry[k]; ok && v != nil {
			return v, k, true
		}
	}
	return nil, "", false
}

// firstString returns the first non-blank string value among keys.
func firstString(entry map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := entry[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func idValue(entry map[string]any) string {
	v, _, ok := firstPresent(entry, idKeys)
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

// coordinatePair validates a [lat, lng] pair of finite JSON numbers.
func coordinatePair(v any) (float64, float64, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	lat, ok := finite(pair[0])
	if !ok {
		return 0, 0, false
	}
	lng, ok := finite(pair[1])
	if !ok {
		return 0, 0, false
	}
	return lat, lng, true
}

func finite(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
