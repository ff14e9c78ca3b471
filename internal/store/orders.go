package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// OrderTx is the unit of work a checkout runs inside one database transaction
type OrderTx interface {
	// GetProductForUpdate reads a product and locks its row until commit
	GetProductForUpdate(ctx context.Context, id string) (*models.Product, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	// DecrementStock lowers the product stock and, when sizeID is set, the stock of that size
	DecrementStock(ctx context.Context, productID, sizeID string, quantity int) error
}

// RunOrderTx runs fn in a transaction and commits when it returns nil.
// Serialization failures and deadlocks are retried up to the configured attempts.
func (s *Store) RunOrderTx(ctx context.Context, fn func(OrderTx) error) error {
	var err error
	for attempt := 1; attempt <= s.txAttempts; attempt++ {
		err = s.runOrderTx(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		util.CheckoutTxRetriesTotal.Inc()
	}
	return err
}

func (s *Store) runOrderTx(ctx context.Context, fn func(OrderTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// IsRetryable reports whether err is a transaction conflict worth retrying
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	return false
}

type orderTx struct {
	tx *sqlx.Tx
}

func (t *orderTx) GetProductForUpdate(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (t *orderTx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, user_id, details, total, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := t.tx.QueryRowxContext(ctx, query,
		order.ID, order.UserID, order.Details, order.Total, order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		err := t.tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_id, name, price, quantity, size_id, color_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.OrderID, item.ProductID, item.Name, item.Price, item.Quantity, item.Size, item.Color)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

func (t *orderTx) DecrementStock(ctx context.Context, productID, sizeID string, quantity int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if sizeID == "" {
		return nil
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE products SET variants = jsonb_set(variants, '{sizes}', (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN size->>'id' = $3::text
					THEN jsonb_set(size, '{stock}', to_jsonb((size->>'stock')::int - $1::int))
					ELSE size END
				ORDER BY pos), '[]'::jsonb)
			FROM jsonb_array_elements(variants->'sizes') WITH ORDINALITY AS s(size, pos)))
		WHERE id = $2`,
		quantity, productID, sizeID)
	if err != nil {
		return fmt.Errorf("failed to decrement size stock: %w", err)
	}
	return nil
}

// GetOrderByID retrieves an order and its items
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.GetOrderItemsByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// ListOrders retrieves all orders, newest first, without items
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return orders, err
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
