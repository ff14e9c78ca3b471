package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySnapshots keeps JSON-encoded snapshots, like the Redis store does
type memorySnapshots struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	loads   int
	// loadFailures makes the next n loads fail
	loadFailures int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: make(map[string][]byte)}
}

func (m *memorySnapshots) LoadCart(_ context.Context, sessionID string) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadFailures > 0 {
		m.loadFailures--
		return nil, errors.New("redis timeout")
	}

	raw, ok := m.data[sessionID]
	if !ok {
		return nil, nil
	}
	var items []models.CartLine
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (m *memorySnapshots) SaveCart(_ context.Context, sessionID string, items []models.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	m.data[sessionID] = raw
	return nil
}

func (m *memorySnapshots) DeleteCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *memorySnapshots) failNextLoads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadFailures = n
}

func (m *memorySnapshots) has(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[sessionID]
	return ok
}

func productB() models.Product {
	return models.Product{
		ID:          "prod-b",
		Name:        "Product B",
		BasePrice:   decimal.NewFromInt(20),
		Stock:       3,
		StockStatus: models.StockStatusInStock,
	}
}

func TestService_ScenarioSameProductAndSize(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemorySnapshots(), DefaultMaxQuantity)

	state := svc.AddToCart(ctx, "sess-1", productA(), "M", "")
	require.Len(t, state.Items, 1)
	assert.Equal(t, 1, state.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(55).Equal(state.Items[0].Price))

	state = svc.AddToCart(ctx, "sess-1", productA(), "M", "")
	require.Len(t, state.Items, 1)
	assert.Equal(t, 2, state.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(110).Equal(state.Total()))
}

func TestService_RehydratesAfterRestart(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()

	before := NewService(snapshots, DefaultMaxQuantity)
	before.AddToCart(ctx, "sess-1", productA(), "M", "red")
	before.AddToCart(ctx, "sess-1", productA(), "S", "")
	state := before.AddToCart(ctx, "sess-1", productA(), "M", "red")
	state = before.UpdateQuantity(ctx, "sess-1", state.Items[1].LineID, 4)

	restarted := NewService(snapshots, DefaultMaxQuantity)
	got := restarted.Get(ctx, "sess-1")

	require.Len(t, got.Items, len(state.Items))
	for i := range state.Items {
		assert.Equal(t, state.Items[i].LineID, got.Items[i].LineID)
		assert.Equal(t, state.Items[i].Quantity, got.Items[i].Quantity)
		assert.Equal(t, state.Items[i].SelectedSizeID, got.Items[i].SelectedSizeID)
		assert.Equal(t, state.Items[i].SelectedColorID, got.Items[i].SelectedColorID)
		assert.Equal(t, state.Items[i].Product.ID, got.Items[i].Product.ID)
		assert.True(t, state.Items[i].Price.Equal(got.Items[i].Price))
	}
	assert.True(t, state.Total().Equal(got.Total()))
}

func TestService_ClearLeavesNothingToRehydrate(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()

	svc := NewService(snapshots, DefaultMaxQuantity)
	svc.AddToCart(ctx, "sess-1", productA(), "M", "")
	require.True(t, snapshots.has("sess-1"))

	require.NoError(t, svc.ClearCart(ctx, "sess-1"))
	assert.False(t, snapshots.has("sess-1"))
	assert.Empty(t, svc.Get(ctx, "sess-1").Items)

	restarted := NewService(snapshots, DefaultMaxQuantity)
	assert.Empty(t, restarted.Get(ctx, "sess-1").Items)
}

func TestService_HydratesOncePerSession(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()
	svc := NewService(snapshots, DefaultMaxQuantity)

	svc.Get(ctx, "sess-1")
	svc.AddToCart(ctx, "sess-1", productA(), "", "")
	svc.Get(ctx, "sess-1")

	assert.Equal(t, 1, snapshots.loads)
}

func TestService_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemorySnapshots(), DefaultMaxQuantity)

	svc.AddToCart(ctx, "sess-1", productA(), "M", "")

	assert.Len(t, svc.Get(ctx, "sess-1").Items, 1)
	assert.Empty(t, svc.Get(ctx, "sess-2").Items)
}

func TestService_SnapshotFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()
	snapshots.saveErr = errors.New("redis down")
	svc := NewService(snapshots, DefaultMaxQuantity)

	state := svc.AddToCart(ctx, "sess-1", productA(), "M", "")

	require.Len(t, state.Items, 1)
	assert.Equal(t, 1, svc.Get(ctx, "sess-1").ItemCount())
}

func TestService_ConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemorySnapshots(), 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.AddToCart(ctx, "sess-1", productA(), "S", "")
		}()
	}
	wg.Wait()

	state := svc.Get(ctx, "sess-1")
	require.Len(t, state.Items, 1)
	assert.Equal(t, 50, state.Items[0].Quantity)
}

func TestService_FailedRehydrateDoesNotOverwriteSnapshot(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()

	first := NewService(snapshots, DefaultMaxQuantity)
	first.AddToCart(ctx, "sess-1", productA(), "M", "")
	first.AddToCart(ctx, "sess-1", productA(), "M", "")

	snapshots.failNextLoads(1)
	second := NewService(snapshots, DefaultMaxQuantity)
	state := second.AddToCart(ctx, "sess-1", productB(), "", "")
	require.Len(t, state.Items, 1)
	assert.Equal(t, "prod-b", state.Items[0].Product.ID)

	third := NewService(snapshots, DefaultMaxQuantity)
	got := third.Get(ctx, "sess-1")
	require.Len(t, got.Items, 1)
	assert.Equal(t, "prod-a", got.Items[0].Product.ID)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestService_PendingActionsReplayOnceLoadSucceeds(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()

	NewService(snapshots, DefaultMaxQuantity).AddToCart(ctx, "sess-1", productA(), "M", "")

	snapshots.failNextLoads(1)
	svc := NewService(snapshots, DefaultMaxQuantity)
	svc.AddToCart(ctx, "sess-1", productB(), "", "")

	state := svc.Get(ctx, "sess-1")
	require.Len(t, state.Items, 2)
	assert.Equal(t, "prod-a", state.Items[0].Product.ID)
	assert.Equal(t, "prod-b", state.Items[1].Product.ID)

	restarted := NewService(snapshots, DefaultMaxQuantity)
	assert.Len(t, restarted.Get(ctx, "sess-1").Items, 2)
}

func TestService_ClearKeepsSessionInMemory(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()
	svc := NewService(snapshots, DefaultMaxQuantity)

	svc.AddToCart(ctx, "sess-1", productA(), "M", "")
	require.NoError(t, svc.ClearCart(ctx, "sess-1"))
	assert.Equal(t, 1, svc.size())

	svc.AddToCart(ctx, "sess-1", productA(), "S", "")
	assert.Equal(t, 1, snapshots.loads)
	assert.Len(t, svc.Get(ctx, "sess-1").Items, 1)
}

func TestService_SweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()
	svc := NewService(snapshots, DefaultMaxQuantity)

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	svc.AddToCart(ctx, "idle", productA(), "M", "")
	clock = clock.Add(time.Hour)
	svc.AddToCart(ctx, "active", productA(), "S", "")

	assert.Equal(t, 1, svc.Sweep(30*time.Minute))
	assert.Equal(t, 1, svc.size())

	got := svc.Get(ctx, "idle")
	require.Len(t, got.Items, 1)
	assert.Equal(t, "M", got.Items[0].SelectedSizeID)
}

func TestService_SweepKeepsSessionsWithUnsavedActions(t *testing.T) {
	ctx := context.Background()
	snapshots := newMemorySnapshots()
	svc := NewService(snapshots, DefaultMaxQuantity)

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	snapshots.failNextLoads(1)
	svc.AddToCart(ctx, "sess-1", productA(), "M", "")
	clock = clock.Add(time.Hour)

	assert.Equal(t, 0, svc.Sweep(time.Minute))
	assert.Len(t, svc.Get(ctx, "sess-1").Items, 1)
}

func TestService_SweepRacingMutations(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemorySnapshots(), 100)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			svc.AddToCart(ctx, "sess-1", productA(), "S", "")
		}()
		go func() {
			defer wg.Done()
			svc.Sweep(0)
		}()
	}
	wg.Wait()

	state := svc.Get(ctx, "sess-1")
	require.Len(t, state.Items, 1)
	assert.Equal(t, 40, state.Items[0].Quantity)
}

func (s *Service) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
