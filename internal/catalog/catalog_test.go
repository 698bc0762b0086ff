package catalog

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoader() *Loader {
	return NewLoader(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestParseFlatList(t *testing.T) {
	data := []byte(`[
		{"id": "a1", "latlon": [48.85, 2.35], "name": "Paris food bank", "link": "https://x/a1", "country": "France"},
		{"latLon": [52.52, 13.40], "title": "Berlin shelter", "url": "https://x/b", "country_name": "Germany"},
		{"coordinates": [35.68, 139.69]}
	]`)

	ops, err := newLoader().Parse("test", data)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, domain.Opportunity{ID: "a1", Lat: 48.85, Lng: 2.35, Name: "Paris food bank", Link: "https://x/a1", Country: "France"}, ops[0])
	assert.Equal(t, "opp-1", ops[1].ID)
	assert.Equal(t, "Berlin shelter", ops[1].Name)
	assert.Equal(t, "https://x/b", ops[1].Link)
	assert.Equal(t, "Germany", ops[1].Country)
	assert.Equal(t, "Opportunity 3", ops[2].Name)
	assert.Equal(t, "opp-2", ops[2].ID)
}

func TestFirstPresentAliasWins(t *testing.T) {
	data := []byte(`[{
		"latlon": [1, 2], "coordinates": [3, 4],
		"name": "", "title": "Title wins", "opportunity_name": "ignored",
		"link": "first", "url": "second",
		"country": "Kenya", "country_name": "Uganda",
		"id": 17
	}]`)

	ops, err := newLoader().Parse("test", data)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, 1.0, ops[0].Lat)
	assert.Equal(t, 2.0, ops[0].Lng)
	assert.Equal(t, "Title wins", ops[0].Name)
	assert.Equal(t, "first", ops[0].Link)
	assert.Equal(t, "Kenya", ops[0].Country)
	assert.Equal(t, "17", ops[0].ID)
}

func TestMalformedEntriesAreDropped(t *testing.T) {
	data := []byte(`[
		{"latlon": "48.85,2.35"},
		{"latlon": [48.85]},
		{"latlon": [48.85, 2.35, 1]},
		{"latlon": ["48.85", 2.35]},
		{"latlon": [null, 2.35]},
		{"name": "no coordinates"},
		"not an object",
		{"latlon": [10, 20], "name": "valid"}
	]`)

	ops, err := newLoader().Parse("test", data)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "valid", ops[0].Name)
	assert.Equal(t, "opp-7", ops[0].ID)
}

func TestParseGroupedFormat(t *testing.T) {
	data := []byte(`{
		"_unassigned": [{"latlon": [0, 0], "name": "Nowhere"}],
		"Japan": [{"latlon": [35.68, 139.69], "name": "Tokyo"}],
		"France": [{"latlon": [48.85, 2.35], "name": "Paris"}, {"latlon": [45.76, 4.83], "name": "Lyon", "country": "france"}]
	}`)

	ops, err := newLoader().Parse("grouped", data)
	require.NoError(t, err)
	require.Len(t, ops, 4)

	assert.Equal(t, "Paris", ops[0].Name)
	assert.Equal(t, "France", ops[0].Country)
	assert.Equal(t, "france", ops[1].Country)
	assert.Equal(t, "Japan", ops[2].Country)
	assert.Equal(t, "Nowhere", ops[3].Name)
	assert.Equal(t, "", ops[3].Country)
	assert.Equal(t, "opp-3", ops[3].ID)

	assert.Len(t, ForCountry(ops, "FRANCE"), 2)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"scalar":        `42`,
		"bucket shape":  `{"France": {"latlon": [1, 2]}}`,
		"nothing valid": `[{"latlon": [1]}]`,
		"broken json":   `[{"latlon": [1, 2]`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newLoader().Parse("bad", []byte(payload))
			var loadErr *domain.CatalogLoadError
			require.True(t, errors.As(err, &loadErr), "got %v", err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"latlon": [1, 2]}]`), 0o600))

	ops, err := newLoader().Load(context.Background(), SourceFor(path))
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestLoadFetchFailure(t *testing.T) {
	_, err := newLoader().Load(context.Background(), FileSource(filepath.Join(t.TempDir(), "missing.json")))
	var loadErr *domain.CatalogLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "fetch failed", loadErr.Reason)
}
