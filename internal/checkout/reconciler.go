package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Phase is the step a checkout attempt has reached
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseCommitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseCommitting:
		return "committing"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// TxRunner runs a function inside one database transaction
type TxRunner interface {
	RunOrderTx(ctx context.Context, fn func(store.OrderTx) error) error
}

// Guard provides the per-user checkout lock and idempotency records
type Guard interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// EventPublisher announces placed orders
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// Submission is one checkout request
type Submission struct {
	UserID         string
	Lines          []models.CartLine
	Shipping       Shipping
	IdempotencyKey string
}

// Attempt is the outcome of a checkout. FailedIn is set when Phase is PhaseFailed.
type Attempt struct {
	Phase    Phase
	FailedIn Phase
	OrderID  string
	Order    *models.Order
	Replayed bool
	Err      error
}

// Reconciler re-validates stock against the database, writes the order and
// decrements stock in a single transaction.
type Reconciler struct {
	tx             TxRunner
	guard          Guard
	events         EventPublisher
	lockTTL        time.Duration
	idempotencyTTL time.Duration
	newID          func() string
	logger         *zap.Logger
}

// NewReconciler creates a new checkout reconciler. guard and events may be nil.
func NewReconciler(tx TxRunner, guard Guard, events EventPublisher, lockTTL, idempotencyTTL time.Duration) *Reconciler {
	return &Reconciler{
		tx:             tx,
		guard:          guard,
		events:         events,
		lockTTL:        lockTTL,
		idempotencyTTL: idempotencyTTL,
		newID:          func() string { return uuid.New().String() },
		logger:         util.GetLogger(),
	}
}

// SubmitOrder places an order for the given cart lines and returns its id
func (r *Reconciler) SubmitOrder(ctx context.Context, userID string, lines []models.CartLine, shipping Shipping) (string, error) {
	attempt := r.Submit(ctx, Submission{UserID: userID, Lines: lines, Shipping: shipping})
	return attempt.OrderID, attempt.Err
}

// Submit runs one checkout attempt through validation and commit
func (r *Reconciler) Submit(ctx context.Context, sub Submission) *Attempt {
	ctx, span := util.StartSpan(ctx, "Reconciler.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", sub.UserID), attribute.Int("lines", len(sub.Lines)))

	start := time.Now()
	util.CheckoutAttemptsTotal.Inc()

	attempt := &Attempt{Phase: PhaseIdle}
	fail := func(reason string, err error) *Attempt {
		attempt.FailedIn = attempt.Phase
		attempt.Phase = PhaseFailed
		attempt.Err = err
		util.CheckoutFailedTotal.WithLabelValues(reason).Inc()
		span.RecordError(err)
		r.logger.Warn("Checkout failed",
			zap.String("user_id", sub.UserID),
			zap.String("reason", reason),
			zap.String("phase", attempt.FailedIn.String()),
			zap.Error(err))
		return attempt
	}

	if sub.UserID == "" {
		return fail("unauthenticated", auth.ErrAuthRequired)
	}

	attempt.Phase = PhaseValidating
	if err := sub.Shipping.Validate(); err != nil {
		return fail("validation", err)
	}
	if len(sub.Lines) == 0 {
		return fail("validation", &ValidationError{Fields: map[string]string{"items": "cart is empty"}})
	}

	if replayed, err := r.replay(ctx, sub, attempt); err != nil {
		return fail("transient", err)
	} else if replayed {
		return attempt
	}

	if r.guard != nil {
		lock := "checkout:" + sub.UserID
		token, err := r.guard.AcquireLock(ctx, lock, r.lockTTL)
		if err != nil {
			return fail("transient", &TransientError{Op: "acquire checkout lock", Err: err})
		}
		if token == "" {
			return fail("in_progress", ErrCheckoutInProgress)
		}
		defer func() {
			if err := r.guard.ReleaseLock(context.Background(), lock, token); err != nil {
				r.logger.Warn("Failed to release checkout lock",
					zap.String("user_id", sub.UserID),
					zap.Error(err))
			}
		}()

		// a request with the same key may have completed between the first
		// check and the lock
		if replayed, err := r.replay(ctx, sub, attempt); err != nil {
			return fail("transient", err)
		} else if replayed {
			return attempt
		}
	}

	builder := NewOrderBuilder(r.newID(), sub.UserID).Shipping(sub.Shipping)
	for _, line := range sub.Lines {
		builder.AddLine(line)
	}

	var order *models.Order
	err := r.tx.RunOrderTx(ctx, func(tx store.OrderTx) error {
		attempt.Phase = PhaseValidating
		tracked, err := r.validateStock(ctx, tx, sub.Lines)
		if err != nil {
			return err
		}

		attempt.Phase = PhaseCommitting
		order, err = builder.Build()
		if err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		return r.decrementStock(ctx, tx, sub.Lines, tracked)
	})
	if err != nil {
		return fail(r.classify(err))
	}

	attempt.Phase = PhaseSuccess
	attempt.OrderID = order.ID
	attempt.Order = order

	util.OrdersPlacedTotal.Inc()
	util.CheckoutLatency.Observe(time.Since(start).Seconds())
	r.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.StringFixed(2)))

	if r.guard != nil && sub.IdempotencyKey != "" {
		if err := r.guard.SetIdempotencyKey(ctx, r.idempotencyKey(sub), order.ID, r.idempotencyTTL); err != nil {
			r.logger.Error("Failed to store idempotency key", zap.Error(err))
		}
	}

	r.publish(ctx, order)
	return attempt
}

type stockKey struct {
	productID string
	sizeID    string
}

// validateStock locks every product that has a sized line and checks the
// requested quantity of each size against its stock. Lines for the same
// product and size are summed. It returns the sizes the products still track.
func (r *Reconciler) validateStock(ctx context.Context, tx store.OrderTx, lines []models.CartLine) (map[stockKey]bool, error) {
	requested := make(map[stockKey]int)
	for _, line := range lines {
		if line.SelectedSizeID == "" {
			continue
		}
		requested[stockKey{line.Product.ID, line.SelectedSizeID}] += line.Quantity
	}

	keys := sortedKeys(requested)
	products := make(map[string]*models.Product)
	tracked := make(map[stockKey]bool, len(keys))

	for _, key := range keys {
		product, ok := products[key.productID]
		if !ok {
			var err error
			product, err = tx.GetProductForUpdate(ctx, key.productID)
			if err != nil {
				return nil, err
			}
			products[key.productID] = product
		}

		size, ok := product.Variants.Size(key.sizeID)
		if !ok {
			r.logger.Warn("Cart line references a size the product no longer has",
				zap.String("product_id", key.productID),
				zap.String("size_id", key.sizeID))
			continue
		}
		tracked[key] = true

		if size.Stock < requested[key] {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				SizeName:    size.Name,
				Available:   size.Stock,
				Requested:   requested[key],
			}
		}
	}
	return tracked, nil
}

func (r *Reconciler) decrementStock(ctx context.Context, tx store.OrderTx, lines []models.CartLine, tracked map[stockKey]bool) error {
	quantities := make(map[stockKey]int)
	for _, line := range lines {
		key := stockKey{line.Product.ID, line.SelectedSizeID}
		if !tracked[key] {
			key.sizeID = ""
		}
		quantities[key] += line.Quantity
	}

	for _, key := range sortedKeys(quantities) {
		if err := tx.DecrementStock(ctx, key.productID, key.sizeID, quantities[key]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) classify(err error) (string, error) {
	var stockErr *InsufficientStockError
	var validationErr *ValidationError

	switch {
	case errors.As(err, &stockErr):
		return "insufficient_stock", stockErr
	case errors.As(err, &validationErr):
		return "validation", validationErr
	case errors.Is(err, store.ErrProductNotFound):
		return "product_not_found", err
	case errors.Is(err, context.Canceled):
		return "cancelled", err
	}
	return "transient", &TransientError{Op: "commit order", Err: err}
}

func (r *Reconciler) publish(ctx context.Context, order *models.Order) {
	if r.events == nil {
		return
	}

	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		data := models.OrderItemData{ProductID: item.ProductID, Quantity: item.Quantity}
		if item.Size != nil {
			data.SizeID = *item.Size
		}
		items = append(items, data)
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Items:   items,
	}

	if err := r.events.PublishOrderPlaced(ctx, event); err != nil {
		r.logger.Error("Failed to publish OrderPlaced event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

// replay marks attempt as a replayed success when the submission's
// idempotency key already maps to an order.
func (r *Reconciler) replay(ctx context.Context, sub Submission, attempt *Attempt) (bool, error) {
	if r.guard == nil || sub.IdempotencyKey == "" {
		return false, nil
	}

	orderID, found, err := r.guard.GetIdempotencyKey(ctx, r.idempotencyKey(sub))
	if err != nil {
		return false, &TransientError{Op: "check idempotency key", Err: err}
	}
	if !found {
		return false, nil
	}

	r.logger.Info("Duplicate checkout request detected",
		zap.String("idempotency_key", sub.IdempotencyKey),
		zap.String("order_id", orderID))
	attempt.Phase = PhaseSuccess
	attempt.OrderID = orderID
	attempt.Replayed = true
	return true, nil
}

func (r *Reconciler) idempotencyKey(sub Submission) string {
	return "checkout:" + sub.UserID + ":" + sub.IdempotencyKey
}

func sortedKeys(m map[stockKey]int) []stockKey {
	keys := make([]stockKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].productID != keys[j].productID {
			return keys[i].productID < keys[j].productID
		}
		return keys[i].sizeID < keys[j].sizeID
	})
	return keys
}
