package worker

import (
	"context"

	"storefront-service/internal/broker"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// OrderWorker handles background processing for order events
type OrderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(consumer *broker.Consumer, inventory *service.InventoryService) *OrderWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(inventory.HandleOrderPlaced)

	return &OrderWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes order events until ctx is cancelled
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.consumer.Close()
}
