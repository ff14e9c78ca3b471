package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	products []models.Product
	err      error
	// failures makes the next n loads fail
	failures int
	calls    int
}

func (f *fakeSource) GetProducts(ctx context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection refused")
	}
	return f.products, f.err
}

func (f *fakeSource) set(products []models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = products
}

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Summer Tee", Categories: pq.StringArray{"Tees", "Summer"}, IsFeatured: true},
		{ID: "2", Name: "Winter Coat", Categories: pq.StringArray{"Coats"}, IsOnSale: true},
		{ID: "3", Name: "Graphic TEE", Categories: pq.StringArray{"tees"}},
	}
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(&fakeSource{products: sampleProducts()})
	require.NoError(t, s.Reload(context.Background()))
	return s
}

func TestStore_NotLoaded(t *testing.T) {
	s := NewStore(&fakeSource{})

	_, err := s.Get("1")
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = s.List(Filter{})
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, ok := s.Loaded()
	assert.False(t, ok)
}

func TestStore_Get(t *testing.T) {
	s := loadedStore(t)

	p, err := s.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "Winter Coat", p.Name)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStore_SearchIsCaseInsensitive(t *testing.T) {
	s := loadedStore(t)

	results, err := s.Search("  tee ")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "3", results[1].ID)
}

func TestStore_ListFilters(t *testing.T) {
	s := loadedStore(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"1", "2", "3"}},
		{"category ignores case", Filter{Category: "TEES"}, []string{"1", "3"}},
		{"featured", Filter{Featured: true}, []string{"1"}},
		{"on sale", Filter{OnSale: true}, []string{"2"}},
		{"combined", Filter{Query: "tee", Category: "summer"}, []string{"1"}},
		{"no match", Filter{Query: "hat"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.List(tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(results))
			for _, p := range results {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_ReloadFailureKeepsSnapshot(t *testing.T) {
	source := &fakeSource{products: sampleProducts()}
	s := NewStore(source)
	require.NoError(t, s.Reload(context.Background()))

	source.err = errors.New("db down")
	assert.Error(t, s.Reload(context.Background()))

	results, err := s.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestStore_Categories(t *testing.T) {
	s := loadedStore(t)
	assert.Equal(t, []string{"Tees", "Summer", "Coats"}, s.Categories())
}

func TestStore_RefreshRetriesUntilLoaded(t *testing.T) {
	source := &fakeSource{products: sampleProducts(), failures: 3}
	s := NewStore(source)
	require.Error(t, s.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Refresh(ctx, time.Millisecond, time.Hour) }()

	require.Eventually(t, func() bool {
		_, ok := s.Loaded()
		return ok
	}, time.Second, time.Millisecond)

	p, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Summer Tee", p.Name)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStore_RefreshPicksUpChanges(t *testing.T) {
	source := &fakeSource{products: sampleProducts()}
	s := NewStore(source)
	require.NoError(t, s.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Refresh(ctx, time.Millisecond, 5*time.Millisecond) }()

	source.set([]models.Product{{ID: "9", Name: "Rain Jacket"}})

	require.Eventually(t, func() bool {
		_, err := s.Get("9")
		return err == nil
	}, time.Second, time.Millisecond)
}
