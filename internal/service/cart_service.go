package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/yourorg/storefront/internal/domain"
)

// CartView is a customer's open cart with the running total.
type CartView struct {
	Lines []*domain.CartLine
	Total decimal.Decimal
}

// CartService manages a customer's open cart lines. Lines attached to an
// order are history and never surface here.
type CartService struct {
	carts  domain.CartRepository
	items  domain.ItemRepository
	logger *slog.Logger
}

// NewCartService creates a cart service
func NewCartService(carts domain.CartRepository, items domain.ItemRepository, logger *slog.Logger) *CartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartService{carts: carts, items: items, logger: logger}
}

// View returns the user's open lines and their total.
func (s *CartService) View(ctx context.Context, userID int64) (*CartView, error) {
	lines, err := s.carts.ListOpen(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
	}
	return &CartView{Lines: lines, Total: total}, nil
}

// Add puts quantity units of an item in the user's cart, merging with an
// existing open line for the same item.
func (s *CartService) Add(ctx context.Context, userID, itemID, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", domain.ErrValidation)
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if !item.Active {
		return fmt.Errorf("item %d is not available: %w", itemID, domain.ErrNotFound)
	}

	existing, err := s.carts.OpenLineByItem(ctx, userID, itemID)
	if err == nil {
		requested := existing.Quantity + quantity
		if requested > item.Stock {
			return fmt.Errorf("only %d units of %q in stock: %w", item.Stock, item.Name, domain.ErrInsufficientStock)
		}
		return s.carts.UpdateQuantity(ctx, existing.ID, requested)
	}

	if quantity > item.Stock {
		return fmt.Errorf("only %d units of %q in stock: %w", item.Stock, item.Name, domain.ErrInsufficientStock)
	}

	line := &domain.CartLine{UserID: userID, ItemID: itemID, Quantity: quantity}
	if err := s.carts.Add(ctx, line); err != nil {
		return err
	}
	s.logger.Debug("cart line added",
		slog.Int64("user_id", userID),
		slog.Int64("item_id", itemID),
		slog.Int64("quantity", quantity),
	)
	return nil
}

// UpdateQuantity changes the quantity of one of the user's open lines.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, lineID, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", domain.ErrValidation)
	}

	line, err := s.carts.OpenLine(ctx, userID, lineID)
	if err != nil {
		return err
	}

	item, err := s.items.GetByID(ctx, line.ItemID)
	if err != nil {
		return err
	}
	if quantity > item.Stock {
		return fmt.Errorf("only %d units of %q in stock: %w", item.Stock, item.Name, domain.ErrInsufficientStock)
	}

	return s.carts.UpdateQuantity(ctx, line.ID, quantity)
}

// Remove drops one of the user's open lines.
func (s *CartService) Remove(ctx context.Context, userID, lineID int64) error {
	line, err := s.carts.OpenLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	return s.carts.Remove(ctx, line.ID)
}
