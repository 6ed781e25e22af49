package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// InventoryLedger is the only component that mutates item stock. Checkout
// reserves through it and cancellation releases through it, always inside
// the caller's transaction.
type InventoryLedger struct {
	items  domain.ItemRepository
	logger *slog.Logger
}

// NewInventoryLedger creates an inventory ledger
func NewInventoryLedger(items domain.ItemRepository, logger *slog.Logger) *InventoryLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryLedger{items: items, logger: logger}
}

// Reserve decrements stock by quantity. It fails with ErrInsufficientStock
// when fewer than quantity units remain, leaving stock untouched.
func (l *InventoryLedger) Reserve(ctx context.Context, itemID, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", domain.ErrValidation)
	}
	if err := l.items.ReserveStock(ctx, itemID, quantity); err != nil {
		return err
	}
	l.logger.Debug("stock reserved",
		slog.Int64("item_id", itemID),
		slog.Int64("quantity", quantity),
	)
	return nil
}

// Release returns quantity units to stock.
func (l *InventoryLedger) Release(ctx context.Context, itemID, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", domain.ErrValidation)
	}
	if err := l.items.ReleaseStock(ctx, itemID, quantity); err != nil {
		return err
	}
	l.logger.Debug("stock released",
		slog.Int64("item_id", itemID),
		slog.Int64("quantity", quantity),
	)
	return nil
}
