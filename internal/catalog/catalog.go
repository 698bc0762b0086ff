// Package catalog loads and normalizes the opportunity dataset.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/immxrtalbeast/globe_rooms/internal/country"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

// FallbackBucket holds entries without a known country in the grouped format.
const FallbackBucket = "_unassigned"

type Loader struct {
	log *slog.Logger
}

func NewLoader(log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{log: log}
}

type rawEntry struct {
	bucket string
	value  any
}

// Load fetches src and normalizes it. Malformed entries are dropped; an error
// is returned only when the fetch fails, the shape is not recognized, or
// nothing survives normalization.
func (l *Loader) Load(ctx context.Context, src Source) ([]domain.Opportunity, error) {
	const op = "catalog.loader.load"
	log := l.log.With(slog.String("op", op), slog.String("source", src.Name()))

	data, err := src.Fetch(ctx)
	if err != nil {
		log.Error("failed to fetch catalog", sl.Err(err))
		return nil, &domain.CatalogLoadError{Source: src.Name(), Reason: "fetch failed", Err: err}
	}

	return l.Parse(src.Name(), data)
}

func (l *Loader) Parse(name string, data []byte) ([]domain.Opportunity, error) {
	const op = "catalog.loader.parse"
	log := l.log.With(slog.String("op", op), slog.String("source", name))

	entries, err := splitEntries(data)
	if err != nil {
		log.Error("unrecognized catalog shape", sl.Err(err))
		return nil, &domain.CatalogLoadError{Source: name, Reason: "unrecognized payload shape", Err: err}
	}

	result := make([]domain.Opportunity, 0, len(entries))
	for i, e := range entries {
		opp, reason, ok := normalize(i, e)
		if !ok {
			log.Warn("dropping catalog entry", slog.Int("index", i), slog.String("reason", reason))
			continue
		}
		result = append(result, opp)
	}

	if len(result) == 0 {
		return nil, &domain.CatalogLoadError{Source: name, Reason: "no usable records"}
	}

	log.Info("catalog loaded", slog.Int("entries", len(entries)), slog.Int("usable", len(result)))
	return result, nil
}

// ForCountry returns the opportunities matching name, case-insensitively.
func ForCountry(ops []domain.Opportunity, name string) []domain.Opportunity {
	out := make([]domain.Opportunity, 0)
	for _, o := range ops {
		if country.Matches(o.Country, name) {
			out = append(out, o)
		}
	}
	return out
}

func splitEntries(data []byte) ([]rawEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	switch trimmed[0] {
	case '[':
		var flat []any
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, err
		}
		entries := make([]rawEntry, 0, len(flat))
		for _, v := range flat {
			entries = append(entries, rawEntry{value: v})
		}
		return entries, nil
	case '{':
		var grouped map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &grouped); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(grouped))
		for k := range grouped {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			// the fallback bucket always loads last
			if (keys[i] == FallbackBucket) != (keys[j] == FallbackBucket) {
				return keys[j] == FallbackBucket
			}
			return keys[i] < keys[j]
		})

		var entries []rawEntry
		for _, k := range keys {
			var bucket []any
			if err := json.Unmarshal(grouped[k], &bucket); err != nil {
				return nil, fmt.Errorf("bucket %q is not an array: %w", k, err)
			}
			for _, v := range bucket {
				entries = append(entries, rawEntry{bucket: k, value: v})
			}
		}
		return entries, nil
	}

	return nil, fmt.Errorf("payload is neither an array nor an object")
}

func normalize(index int, e rawEntry) (domain.Opportunity, string, bool) {
	entry, ok := e.value.(map[string]any)
	if !ok {
		return domain.Opportunity{}, "entry is not an object", false
	}

	raw, key, ok := firstPresent(entry, coordinateKeys)
	if !ok {
		return domain.Opportunity{}, "missing coordinates", false
	}
	lat, lng, ok := coordinatePair(raw)
	if !ok {
		return domain.Opportunity{}, "invalid coordinates under " + key, false
	}

	opp := domain.Opportunity{
		ID:      idValue(entry),
		Lat:     lat,
		Lng:     lng,
		Name:    firstString(entry, nameKeys),
		Link:    firstString(entry, linkKeys),
		Country: firstString(entry, countryKeys),
	}
	if opp.ID == "" {
		opp.ID = "opp-" + strconv.Itoa(index)
	}
	if opp.Name == "" {
		opp.Name = "Opportunity " + strconv.Itoa(index+1)
	}
	if opp.Country == "" && e.bucket != FallbackBucket {
		opp.Country = e.bucket
	}
	return opp, "", true
}
