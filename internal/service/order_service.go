package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-service/internal/auth"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidStatus = errors.New("invalid order status")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// OrderStore is the order persistence the service needs
type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// OrderService handles order queries and status changes
type OrderService struct {
	store  OrderStore
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore) *OrderService {
	return &OrderService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// GetOrder retrieves an order visible to the caller: its owner or an admin
func (s *OrderService) GetOrder(ctx context.Context, orderID string, caller *auth.Identity) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	if caller == nil {
		return nil, auth.ErrAuthRequired
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return order, nil
}

// ListUserOrders retrieves the orders of one user
func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListUserOrders")
	defer span.End()

	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListOrders retrieves a page of all orders
func (s *OrderService) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	limit, offset = page(limit, offset)
	orders, err := s.store.ListOrders(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to a new status
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("status", status))
	return nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
