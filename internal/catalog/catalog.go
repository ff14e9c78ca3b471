package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrNotLoaded is returned by readers before the first successful Reload
	ErrNotLoaded       = errors.New("catalog not loaded")
	ErrProductNotFound = errors.New("product not found")
)

// Source loads the full product list
type Source interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// Filter narrows a catalog listing. Zero values match everything.
type Filter struct {
	Query    string
	Category string
	Featured bool
	OnSale   bool
}

func (f Filter) matches(p *models.Product) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
		return false
	}
	if f.Category != "" && !hasCategory(p, f.Category) {
		return false
	}
	if f.Featured && !p.IsFeatured {
		return false
	}
	if f.OnSale && !p.IsOnSale {
		return false
	}
	return true
}

func hasCategory(p *models.Product, category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Store is a read-only snapshot of the product catalog. Readers never see a
// partially loaded snapshot; Reload swaps the whole list at once.
type Store struct {
	source Source
	logger *zap.Logger

	mu       sync.RWMutex
	products []models.Product
	byID     map[string]int
	loadedAt time.Time
}

// NewStore creates a new catalog store
func NewStore(source Source) *Store {
	return &Store{
		source: source,
		logger: util.GetLogger(),
	}
}

// Reload replaces the snapshot with the current product list
func (s *Store) Reload(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Catalog.Reload")
	defer span.End()

	products, err := s.source.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	s.mu.Lock()
	s.products = products
	s.byID = byID
	s.loadedAt = time.Now()
	s.mu.Unlock()

	util.CatalogProducts.Set(float64(len(products)))
	s.logger.Info("Catalog reloaded", zap.Int("products", len(products)))
	return nil
}

// Refresh keeps the snapshot current until ctx is done. While no snapshot
// has loaded it retries Reload starting at retry and doubling up to interval;
// once loaded it reloads every interval. It returns ctx.Err().
func (s *Store) Refresh(ctx context.Context, retry, interval time.Duration) error {
	if retry <= 0 {
		retry = time.Second
	}
	if interval < retry {
		interval = retry
	}

	delay := retry
	for {
		wait := interval
		if _, loaded := s.Loaded(); !loaded {
			wait = delay
			if delay *= 2; delay > interval {
				delay = interval
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.Reload(ctx); err != nil {
			s.logger.Warn("Catalog refresh failed",
				zap.Duration("next_retry", delay),
				zap.Error(err))
			continue
		}
		delay = retry
	}
}

// Loaded reports whether a snapshot is available and when it was taken
func (s *Store) Loaded() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, s.byID != nil
}

// Get returns a copy of a product
func (s *Store) Get(id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.byID == nil {
		return models.Product{}, ErrNotLoaded
	}
	i, ok := s.byID[id]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return s.products[i], nil
}

// List returns the products matching f in snapshot order
func (s *Store) List(f Filter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.byID == nil {
		return nil, ErrNotLoaded
	}

	out := make([]models.Product, 0, len(s.products))
	for i := range s.products {
		if f.matches(&s.products[i]) {
			out = append(out, s.products[i])
		}
	}
	return out, nil
}

// Search matches product names case-insensitively
func (s *Store) Search(query string) ([]models.Product, error) {
	return s.List(Filter{Query: strings.TrimSpace(query)})
}

// Categories returns the distinct categories in first-seen order
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, p := range s.products {
		for _, c := range p.Categories {
			key := strings.ToLower(c)
			if !seen[key] {
				seen[key] = true
				out = append(out, c)
			}
		}
	}
	return out
}
