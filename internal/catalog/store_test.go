package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	calls int
	fail  bool
}

func (s *flakySource) Name() string { return "flaky" }

func (s *flakySource) Fetch(context.Context) ([]byte, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("unreachable")
	}
	return []byte(`[{"latlon":[1,2],"name":"A","country":"Peru"}]`), nil
}

func TestStoreCachesSuccessfulLoad(t *testing.T) {
	src := &flakySource{}
	store := NewStore(newLoader(), src)

	ops, err := store.Opportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	ops[0].Name = "mutated"

	again, err := store.Opportunities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", again[0].Name)
	assert.Equal(t, 1, src.calls)
}

func TestStoreRetriesAfterFailure(t *testing.T) {
	src := &flakySource{fail: true}
	store := NewStore(newLoader(), src)

	_, err := store.Opportunities(context.Background())
	var loadErr *domain.CatalogLoadError
	require.ErrorAs(t, err, &loadErr)

	src.fail = false
	ops, err := store.Opportunities(context.Background())
	require.NoError(t, err)
	assert.Len(t, ops, 1)
	assert.Equal(t, 2, src.calls)

	_, err = store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}
