package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is the persistence the inventory service needs
type InventoryStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	RefreshStockStatus(ctx context.Context, productIDs []string) (int64, error)
}

// InventoryService keeps stock labels in line with stock after orders are placed
type InventoryService struct {
	store   InventoryStore
	catalog CatalogReloader
	logger  *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store InventoryStore, catalog CatalogReloader) *InventoryService {
	return &InventoryService{
		store:   store,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// HandleOrderPlaced recomputes the stock status of the ordered products and
// reloads the catalog. Each event is applied at most once.
func (s *InventoryService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.HandleOrderPlaced")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed, skipping", zap.String("event_id", event.EventID))
		return nil
	}

	ids := make([]string, 0, len(event.Items))
	seen := make(map[string]bool, len(event.Items))
	for _, item := range event.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	changed, err := s.store.RefreshStockStatus(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to refresh stock status: %w", err)
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	s.logger.Info("Stock status refreshed",
		zap.String("order_id", event.OrderID),
		zap.Int("products", len(ids)),
		zap.Int64("changed", changed))

	if s.catalog != nil {
		if err := s.catalog.Reload(ctx); err != nil {
			s.logger.Warn("Failed to reload catalog", zap.Error(err))
		}
	}
	return nil
}
