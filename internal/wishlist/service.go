package wishlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// LocalStore is the durable local copy of each user's wishlist
type LocalStore interface {
	LoadWishlist(ctx context.Context, userID string) ([]models.Product, error)
	SaveWishlist(ctx context.Context, userID string, items []models.Product) error
	DeleteWishlist(ctx context.Context, userID string) error
}

// Service owns the wishlist state of every signed-in user. Local mutations
// are applied synchronously; the remote copy is updated best-effort by the
// Syncer and a failed sync never rolls the local state back.
type Service struct {
	local  LocalStore
	remote Remote
	syncer *Syncer
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	users map[string]*entry
}

type entry struct {
	mu         sync.Mutex
	state      State
	loaded     bool
	evicted    bool
	lastAccess time.Time
	pending    []Action
}

// NewService creates a new wishlist service
func NewService(local LocalStore, remote Remote, syncer *Syncer) *Service {
	return &Service{
		local:  local,
		remote: remote,
		syncer: syncer,
		logger: util.GetLogger(),
		now:    time.Now,
		users:  make(map[string]*entry),
	}
}

// Items returns the wishlist of a user
func (s *Service) Items(ctx context.Context, userID string) State {
	e := s.acquire(userID)
	defer e.mu.Unlock()

	s.load(ctx, userID, e)
	return e.state
}

// Add puts product on the wishlist and queues the remote append
func (s *Service) Add(ctx context.Context, userID string, product models.Product) State {
	e := s.acquire(userID)
	defer e.mu.Unlock()

	s.load(ctx, userID, e)
	if e.state.Contains(product.ID) {
		return e.state
	}
	s.commit(ctx, userID, e, Add{Product: product})
	s.syncer.Enqueue(Task{Op: OpAdd, UserID: userID, Product: product, ProductID: product.ID})
	return e.state
}

// Remove takes a product off the wishlist and queues the remote removal
func (s *Service) Remove(ctx context.Context, userID, productID string) State {
	e := s.acquire(userID)
	defer e.mu.Unlock()

	s.load(ctx, userID, e)
	if !e.state.Contains(productID) {
		return e.state
	}
	s.commit(ctx, userID, e, Remove{ProductID: productID})
	s.syncer.Enqueue(Task{Op: OpRemove, UserID: userID, ProductID: productID})
	return e.state
}

// Toggle adds product when absent and removes it when present.
// The returned flag is true when the product ended up on the wishlist.
func (s *Service) Toggle(ctx context.Context, userID string, product models.Product) (State, bool) {
	e := s.acquire(userID)
	defer e.mu.Unlock()

	s.load(ctx, userID, e)
	if e.state.Contains(product.ID) {
		s.commit(ctx, userID, e, Remove{ProductID: product.ID})
		s.syncer.Enqueue(Task{Op: OpRemove, UserID: userID, ProductID: product.ID})
		return e.state, false
	}

	s.commit(ctx, userID, e, Add{Product: product})
	s.syncer.Enqueue(Task{Op: OpAdd, UserID: userID, Product: product, ProductID: product.ID})
	return e.state, true
}

// Hydrate replaces the local wishlist with the remote one. Called on sign-in;
// the remote copy wins and nothing is merged. The user's entry stays locked
// during the fetch so no local mutation lands between fetch and replace.
func (s *Service) Hydrate(ctx context.Context, userID string) error {
	ctx, span := util.StartSpan(ctx, "WishlistService.Hydrate")
	defer span.End()

	e := s.acquire(userID)
	defer e.mu.Unlock()

	items, err := s.remote.FetchWishlist(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch remote wishlist: %w", err)
	}

	e.loaded = true
	e.pending = nil
	s.commit(ctx, userID, e, SetItems{Items: items})

	s.logger.Info("Wishlist hydrated from remote",
		zap.String("user_id", userID),
		zap.Int("count", len(e.state.Items)))
	return nil
}

// Forget drops the local wishlist of a user, used on sign-out
func (s *Service) Forget(ctx context.Context, userID string) error {
	e := s.acquire(userID)
	defer e.mu.Unlock()

	err := s.local.DeleteWishlist(ctx, userID)

	s.mu.Lock()
	e.evicted = true
	delete(s.users, userID)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to delete local wishlist: %w", err)
	}
	return nil
}

// Sweep drops in-memory wishlists untouched for longer than idle. The local
// snapshot is kept and read back on next access.
func (s *Service) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.users {
		if !e.mu.TryLock() {
			continue
		}
		if len(e.pending) == 0 && e.lastAccess.Before(cutoff) {
			e.evicted = true
			delete(s.users, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}

// StartSweeper runs Sweep every interval until ctx is done. A non-positive
// interval disables it.
func (s *Service) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(idle); n > 0 {
					s.logger.Debug("Evicted idle wishlists", zap.Int("count", n))
				}
			}
		}
	}()
}

// commit applies action and saves the local snapshot once it has been read.
// Caller holds e.mu.
func (s *Service) commit(ctx context.Context, userID string, e *entry, action Action) {
	e.state = Reduce(e.state, action)
	if !e.loaded {
		e.pending = append(e.pending, action)
		return
	}
	s.save(ctx, userID, e)
}

func (s *Service) save(ctx context.Context, userID string, e *entry) {
	if err := s.local.SaveWishlist(ctx, userID, e.state.Items); err != nil {
		s.logger.Error("Failed to save local wishlist",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// load reads the local snapshot until a read succeeds, replaying actions
// applied in the meantime. Caller holds e.mu.
func (s *Service) load(ctx context.Context, userID string, e *entry) {
	if e.loaded {
		return
	}

	items, err := s.local.LoadWishlist(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load local wishlist",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	e.state = Reduce(State{}, SetItems{Items: items})
	e.loaded = true
	if len(e.pending) == 0 {
		return
	}
	for _, action := range e.pending {
		e.state = Reduce(e.state, action)
	}
	e.pending = nil
	s.save(ctx, userID, e)
}

// acquire returns the user's entry locked, retrying when the entry was
// evicted between lookup and lock.
func (s *Service) acquire(userID string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.users[userID]
		if !ok {
			e = &entry{state: State{Items: []models.Product{}}}
			s.users[userID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.evicted {
			e.lastAccess = s.now()
			return e
		}
		e.mu.Unlock()
	}
}
