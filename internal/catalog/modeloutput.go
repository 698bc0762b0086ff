package catalog

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

// Location is one coordinate pair extracted from a language model reply.
type Location struct {
	Lat     float64
	Lng     float64
	Country string
}

const countrySearchSpan = 200

var (
	fenceStart     = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceEnd       = regexp.MustCompile("\\s*```$")
	latLonPattern  = regexp.MustCompile(`(?i)"latlon"\s*:\s*\[?\s*([+-]?\d+(?:\.\d+)?)\s*,\s*([+-]?\d+(?:\.\d+)?)\s*\]?`)
	pairPattern    = regexp.MustCompile(`\[\s*([+-]?\d+(?:\.\d+)?)\s*,\s*([+-]?\d+(?:\.\d+)?)\s*\]`)
	countryPattern = regexp.MustCompile(`(?i)"country"\s*:\s*["']?([^"'},\]]+)["']?`)
)

// ParseModelLocations extracts coordinate pairs from a model reply that is
// supposed to be a JSON array of {"latlon": [lat, lon], "country": "..."}.
// Code fences, a quoted payload, and small syntax slips are tolerated.
func ParseModelLocations(raw string) []Location {
	text := strings.TrimSpace(raw)
	text = fenceStart.ReplaceAllString(text, "")
	text = fenceEnd.ReplaceAllString(text, "")

	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal([]byte(text), &unquoted); err == nil {
			text = unquoted
		}
	}

	if parsed := parseStrict(text); len(parsed) > 0 {
		return parsed
	}
	if parsed := scan(text, latLonPattern); len(parsed) > 0 {
		return parsed
	}
	return scan(text, pairPattern)
}

func parseStrict(text string) []Location {
	var items []map[string]any
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil
	}
	out := make([]Location, 0, len(items))
	for _, item := range items {
		pair, ok := item["latlon"].([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		lat, ok := looseFloat(pair[0])
		if !ok {
			continue
		}
		lng, ok := looseFloat(pair[1])
		if !ok {
			continue
		}
		c, _ := item["country"].(string)
		out = append(out, Location{Lat: lat, Lng: lng, Country: normalizeCountry(c)})
	}
	return out
}

func scan(text string, pattern *regexp.Regexp) []Location {
	var out []Location
	for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
		lat, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(text[m[4]:m[5]], 64)
		if err != nil {
			continue
		}
		out = append(out, Location{Lat: lat, Lng: lng, Country: nearbyCountry(text, m[0], m[1])})
	}
	return out
}

// nearbyCountry looks forward, then backward, then anywhere in text.
func nearbyCountry(text string, start, end int) string {
	forward := text[end:min(len(text), end+countrySearchSpan)]
	if m := countryPattern.FindStringSubmatch(forward); m != nil {
		return normalizeCountry(m[1])
	}
	backward := text[max(0, start-countrySearchSpan):start]
	if m := countryPattern.FindStringSubmatch(backward); m != nil {
		return normalizeCountry(m[1])
	}
	if m := countryPattern.FindStringSubmatch(text); m != nil {
		return normalizeCountry(m[1])
	}
	return ""
}

func looseFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	}
	return 0, false
}

func normalizeCountry(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "null" || s == "none" {
		return ""
	}
	return s
}

// AttachLinks pairs locations with links by index and derives a display name
// from each link.
func AttachLinks(locations []Location, links []string) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(locations))
	for i, loc := range locations {
		opp := domain.Opportunity{
			ID:      "loc-" + strconv.Itoa(i),
			Lat:     loc.Lat,
			Lng:     loc.Lng,
			Country: loc.Country,
			Name:    "Opportunity " + strconv.Itoa(i+1),
		}
		if i < len(links) {
			opp.Link = links[i]
			if name := nameFromLink(links[i]); name != "" {
				opp.Name = name
			}
		}
		out = append(out, opp)
	}
	return out
}

func nameFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	slug := path.Base(strings.TrimRight(u.Path, "/"))
	if slug == "." || slug == "/" || slug == "" {
		return ""
	}
	// listing slugs are usually "<id>-<words>"
	if i := strings.Index(slug, "-"); i > 0 && isHex(slug[:i]) {
		slug = slug[i+1:]
	}
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return len(s) >= 8
}
