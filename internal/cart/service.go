package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// SnapshotStore is the durable storage holding one cart snapshot per session
type SnapshotStore interface {
	LoadCart(ctx context.Context, sessionID string) ([]models.CartLine, error)
	SaveCart(ctx context.Context, sessionID string, items []models.CartLine) error
	DeleteCart(ctx context.Context, sessionID string) error
}

// Service owns the cart state of every session. It is the only writer of the
// persisted snapshots and rehydrates each session on first access.
type Service struct {
	snapshots   SnapshotStore
	maxQuantity int
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu         sync.Mutex
	state      State
	loaded     bool
	evicted    bool
	lastAccess time.Time
	// actions applied while the snapshot could not be read; replayed on top
	// of it once a load succeeds
	pending []Action
}

// NewService creates a new cart service
func NewService(snapshots SnapshotStore, maxQuantity int) *Service {
	if maxQuantity < 1 {
		maxQuantity = DefaultMaxQuantity
	}
	return &Service{
		snapshots:   snapshots,
		maxQuantity: maxQuantity,
		logger:      util.GetLogger(),
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// MaxQuantity returns the per-line quantity cap
func (s *Service) MaxQuantity() int {
	return s.maxQuantity
}

// Get returns the current cart of a session
func (s *Service) Get(ctx context.Context, sessionID string) State {
	sess := s.acquire(sessionID)
	defer sess.mu.Unlock()

	s.hydrate(ctx, sessionID, sess)
	return sess.state
}

// AddToCart adds one unit of product with the given variant selection
func (s *Service) AddToCart(ctx context.Context, sessionID string, product models.Product, sizeID, colorID string) State {
	return s.dispatch(ctx, sessionID, "add", AddItem{Product: product, SizeID: sizeID, ColorID: colorID})
}

// UpdateQuantity sets a line quantity, clamped to [1, MaxQuantity]
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) State {
	return s.dispatch(ctx, sessionID, "update_quantity", UpdateQuantity{LineID: lineID, Quantity: quantity})
}

// RemoveFromCart drops a line; removing a missing line is a no-op
func (s *Service) RemoveFromCart(ctx context.Context, sessionID, lineID string) State {
	return s.dispatch(ctx, sessionID, "remove", RemoveItem{LineID: lineID})
}

// ClearCart empties the cart and deletes the persisted snapshot before
// returning, so a restart cannot rehydrate the cleared cart.
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	sess := s.acquire(sessionID)
	defer sess.mu.Unlock()

	sess.state = Reduce(sess.state, Clear{}, s.maxQuantity)
	sess.loaded = true
	sess.pending = nil
	util.CartMutationsTotal.WithLabelValues("clear").Inc()

	if err := s.snapshots.DeleteCart(ctx, sessionID); err != nil {
		util.CartSnapshotErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("failed to purge cart snapshot: %w", err)
	}
	return nil
}

// Sweep drops in-memory sessions untouched for longer than idle. Their
// snapshots stay in the store and are rehydrated on next access. Sessions
// holding unsaved actions or currently in use are kept.
func (s *Service) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		if len(sess.pending) == 0 && sess.lastAccess.Before(cutoff) {
			sess.evicted = true
			delete(s.sessions, id)
			evicted++
		}
		sess.mu.Unlock()
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
					s.logger.Debug("Evicted idle cart sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

func (s *Service) dispatch(ctx context.Context, sessionID, op string, action Action) State {
	sess := s.acquire(sessionID)
	defer sess.mu.Unlock()

	s.hydrate(ctx, sessionID, sess)
	sess.state = Reduce(sess.state, action, s.maxQuantity)
	util.CartMutationsTotal.WithLabelValues(op).Inc()

	if !sess.loaded {
		// never overwrite a snapshot that could not be read
		sess.pending = append(sess.pending, action)
		return sess.state
	}

	s.save(ctx, sessionID, op, sess)
	return sess.state
}

// hydrate loads the persisted snapshot until a load succeeds. Caller holds sess.mu.
func (s *Service) hydrate(ctx context.Context, sessionID string, sess *session) {
	if sess.loaded {
		return
	}

	items, err := s.snapshots.LoadCart(ctx, sessionID)
	if err != nil {
		util.CartSnapshotErrorsTotal.WithLabelValues("load").Inc()
		s.logger.Warn("Failed to rehydrate cart, serving in-memory state",
			zap.String("session_id", sessionID),
			zap.Int("pending", len(sess.pending)),
			zap.Error(err))
		return
	}
	if items == nil {
		items = []models.CartLine{}
	}

	sess.state = State{Items: items}
	sess.loaded = true
	if len(sess.pending) == 0 {
		return
	}

	for _, action := range sess.pending {
		sess.state = Reduce(sess.state, action, s.maxQuantity)
	}
	sess.pending = nil
	s.save(ctx, sessionID, "replay", sess)
}

// save writes the snapshot. Caller holds sess.mu.
func (s *Service) save(ctx context.Context, sessionID, op string, sess *session) {
	if err := s.snapshots.SaveCart(ctx, sessionID, sess.state.Items); err != nil {
		util.CartSnapshotErrorsTotal.WithLabelValues("save").Inc()
		s.logger.Error("Failed to persist cart snapshot",
			zap.String("session_id", sessionID),
			zap.String("op", op),
			zap.Error(err))
	}
}

// acquire returns the session locked. A session removed by Sweep between the
// map lookup and the lock is retried against a fresh entry.
func (s *Service) acquire(sessionID string) *session {
	for {
		s.mu.Lock()
		sess, ok := s.sessions[sessionID]
		if !ok {
			sess = &session{state: State{Items: []models.CartLine{}}}
			s.sessions[sessionID] = sess
		}
		s.mu.Unlock()

		sess.mu.Lock()
		if !sess.evicted {
			sess.lastAccess = s.now()
			return sess
		}
		sess.mu.Unlock()
	}
}
