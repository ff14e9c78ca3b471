package wishlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

var (
	ErrQueueFull    = errors.New("wishlist sync queue is full")
	ErrSyncerClosed = errors.New("wishlist syncer is closed")
)

// Remote is the user document holding the authoritative wishlist
type Remote interface {
	FetchWishlist(ctx context.Context, userID string) ([]models.Product, error)
	AppendToWishlist(ctx context.Context, userID string, product models.Product) error
	RemoveFromWishlist(ctx context.Context, userID, productID string) error
}

// Op is the kind of remote mutation
type Op string

// Sync operations
const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Task is one remote mutation waiting to be applied
type Task struct {
	Op        Op
	UserID    string
	Product   models.Product
	ProductID string
}

// Failure is a task that exhausted its attempts
type Failure struct {
	Task     Task
	Attempts int
	Err      error
}

// Syncer applies remote wishlist mutations on a single background worker,
// in submission order, retrying each task with exponential backoff.
type Syncer struct {
	remote   Remote
	attempts int
	backoff  time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	tasks    chan Task
	failures chan Failure

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewSyncer creates a new sync queue
func NewSyncer(remote Remote, queueSize, attempts int, backoff time.Duration) *Syncer {
	if queueSize < 1 {
		queueSize = 1
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Syncer{
		remote:   remote,
		attempts: attempts,
		backoff:  backoff,
		timeout:  5 * time.Second,
		logger:   util.GetLogger(),
		tasks:    make(chan Task, queueSize),
		failures: make(chan Failure, queueSize),
	}
}

// Start launches the worker. Tasks still queued when Close is called are drained.
func (s *Syncer) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for task := range s.tasks {
			s.process(ctx, task)
		}
	}()
}

// Failures reports tasks that could not be applied. Every failure is already
// logged and counted; reports are dropped when nobody drains the channel.
func (s *Syncer) Failures() <-chan Failure {
	return s.failures
}

// Enqueue queues a task without blocking
func (s *Syncer) Enqueue(task Task) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.fail(task, 0, ErrSyncerClosed)
		return
	}

	select {
	case s.tasks <- task:
	default:
		s.fail(task, 0, ErrQueueFull)
	}
}

// Close stops accepting tasks and waits for the queue to drain
func (s *Syncer) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.tasks)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Syncer) process(ctx context.Context, task Task) {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.apply(ctx, task); err == nil {
			util.WishlistSyncTotal.WithLabelValues(string(task.Op), "ok").Inc()
			return
		}

		if attempt == s.attempts {
			break
		}

		util.WishlistSyncRetriesTotal.Inc()
		s.logger.Warn("Wishlist sync failed, retrying",
			zap.String("user_id", task.UserID),
			zap.String("op", string(task.Op)),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			s.fail(task, attempt, ctx.Err())
			return
		case <-time.After(s.backoff * time.Duration(1<<(attempt-1))):
		}
	}

	s.fail(task, s.attempts, err)
}

func (s *Syncer) apply(ctx context.Context, task Task) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch task.Op {
	case OpAdd:
		return s.remote.AppendToWishlist(ctx, task.UserID, task.Product)
	case OpRemove:
		return s.remote.RemoveFromWishlist(ctx, task.UserID, task.ProductID)
	}
	return nil
}

func (s *Syncer) fail(task Task, attempts int, err error) {
	util.WishlistSyncTotal.WithLabelValues(string(task.Op), "failed").Inc()
	s.logger.Error("Wishlist sync gave up",
		zap.String("user_id", task.UserID),
		zap.String("op", string(task.Op)),
		zap.String("product_id", task.ProductID),
		zap.Int("attempts", attempts),
		zap.Error(err))

	select {
	case s.failures <- Failure{Task: task, Attempts: attempts, Err: err}:
	default:
	}
}
