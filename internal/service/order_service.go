package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/observability/metrics"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/security/audit"
)

// OrderService converts carts into orders and drives the order status
// machine. Checkout and cancellation each run as a single transaction so
// stock and order state always move together.
type OrderService struct {
	tx       domain.TxManager
	orders   domain.OrderRepository
	carts    domain.CartRepository
	shipping domain.ShippingMethodRepository
	ledger   *InventoryLedger
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewOrderService creates an order service
func NewOrderService(
	tx domain.TxManager,
	orders domain.OrderRepository,
	carts domain.CartRepository,
	shipping domain.ShippingMethodRepository,
	ledger *InventoryLedger,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		tx:       tx,
		orders:   orders,
		carts:    carts,
		shipping: shipping,
		ledger:   ledger,
		audit:    auditLog,
		logger:   logger,
	}
}

// Checkout converts the actor's open cart into a pending order. Every line
// is reserved against stock inside one transaction; the first shortfall
// aborts the whole conversion and no stock moves.
func (s *OrderService) Checkout(ctx context.Context, actor *security.Principal, shippingMethodID int64) (*domain.Order, error) {
	start := time.Now()

	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lines, err := s.carts.ListOpen(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("cart is empty: %w", domain.ErrValidation)
		}

		method, err := s.shipping.GetByID(ctx, shippingMethodID)
		if err != nil {
			return err
		}

		total := method.Price
		for _, line := range lines {
			if err := s.ledger.Reserve(ctx, line.ItemID, line.Quantity); err != nil {
				return err
			}
			total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
		}

		order = &domain.Order{
			UserID:           actor.UserID,
			Status:           domain.StatusPending,
			ShippingMethodID: shippingMethodID,
			Total:            total,
			PlacedAt:         time.Now(),
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		for _, line := range lines {
			orderLine := &domain.OrderLine{
				OrderID:   order.ID,
				ItemID:    line.ItemID,
				ItemName:  line.ItemName,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			}
			if err := s.orders.AddLine(ctx, orderLine); err != nil {
				return err
			}
			order.Lines = append(order.Lines, orderLine)
			if err := s.carts.AttachToOrder(ctx, line.ID, order.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			metrics.ObserveStockConflict()
		}
		metrics.ObserveCheckout("failure", time.Since(start))
		s.audit.LogCheckout(ctx, actor.UserID, 0, "rejected", err.Error())
		return nil, err
	}

	metrics.ObserveCheckout("success", time.Since(start))
	metrics.ObserveOrderCreated()
	s.audit.LogCheckout(ctx, actor.UserID, order.ID, "placed", "")
	s.logger.Info("order placed",
		slog.Int64("order_id", order.ID),
		slog.Int64("user_id", actor.UserID),
		slog.String("total", order.Total.String()),
	)
	return order, nil
}

// Get returns one order with its lines. Customers may only read their own.
func (s *OrderService) Get(ctx context.Context, actor *security.Principal, orderID int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleCustomer && order.UserID != actor.UserID {
		return nil, fmt.Errorf("order %d belongs to another customer: %w", orderID, domain.ErrForbidden)
	}
	return order, nil
}

// List returns the actor's own orders for customers, all orders for staff.
func (s *OrderService) List(ctx context.Context, actor *security.Principal) ([]*domain.Order, error) {
	if actor.Role == domain.RoleCustomer {
		return s.orders.List(ctx, actor.UserID)
	}
	return s.orders.List(ctx, 0)
}

// UpdateStatus moves an order along the status machine. A target of
// cancelled is delegated to Cancel so the stock release happens exactly
// once; every other move is a pure status write guarded by the transition
// table.
func (s *OrderService) UpdateStatus(ctx context.Context, actor *security.Principal, orderID int64, target domain.OrderStatus) error {
	if target == domain.StatusCancelled {
		return s.Cancel(ctx, actor, orderID)
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return fmt.Errorf("%s -> %s: %w", order.Status, target, domain.ErrInvalidTransition)
		}
		// The compare-and-set write catches a concurrent transition that
		// landed between our read and this point.
		if err := s.orders.UpdateStatus(ctx, orderID, order.Status, target); err != nil {
			return err
		}
		s.logger.Info("order status changed",
			slog.Int64("order_id", orderID),
			slog.String("from", string(order.Status)),
			slog.String("to", string(target)),
		)
		return nil
	})
}

// Cancel moves an order to cancelled and returns every line's quantity to
// stock, in one transaction. Customers may cancel only their own pending
// orders; staff may cancel any non-terminal order. A terminal order is
// rejected, so the release can never run twice.
func (s *OrderService) Cancel(ctx context.Context, actor *security.Principal, orderID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if actor.Role == domain.RoleCustomer {
			if order.UserID != actor.UserID {
				return fmt.Errorf("order %d belongs to another customer: %w", orderID, domain.ErrForbidden)
			}
			if order.Status != domain.StatusPending {
				return fmt.Errorf("customers may cancel only pending orders: %w", domain.ErrForbidden)
			}
		}
		if !order.Status.CanTransitionTo(domain.StatusCancelled) {
			return fmt.Errorf("%s -> %s: %w", order.Status, domain.StatusCancelled, domain.ErrInvalidTransition)
		}

		// The compare-and-set status write goes first: of two cancels
		// racing on the same order, only one matches the stored status, and
		// the loser never reaches the release.
		if err := s.orders.UpdateStatus(ctx, orderID, order.Status, domain.StatusCancelled); err != nil {
			return err
		}
		for _, line := range order.Lines {
			if err := s.ledger.Release(ctx, line.ItemID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.audit.LogCancel(ctx, actor.UserID, orderID, "rejected", err.Error())
		return err
	}

	metrics.ObserveOrderCancelled(string(actor.Role))
	s.audit.LogCancel(ctx, actor.UserID, orderID, "cancelled", "")
	return nil
}
