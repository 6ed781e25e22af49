package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// statusTransitions holds the only legal forward edges. Delivered and
// cancelled are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ParseOrderStatus validates a status name from a request.
func ParseOrderStatus(s string) (OrderStatus, error) {
	if _, ok := statusTransitions[OrderStatus(s)]; !ok {
		return "", fmt.Errorf("unknown order status %q: %w", s, ErrValidation)
	}
	return OrderStatus(s), nil
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// CartLine is one (user, item, quantity) entry. While OrderID is nil the
// line is open and mutable; once attached to an order it is history.
type CartLine struct {
	ID       int64
	UserID   int64
	ItemID   int64
	Quantity int64
	OrderID  *int64
	// Joined from the item row on reads.
	ItemName  string
	UnitPrice decimal.Decimal
}

// Open reports whether the line has not yet been converted into an order.
func (l *CartLine) Open() bool { return l.OrderID == nil }

// Order is the immutable snapshot created at checkout. Status is the only
// field mutated afterwards.
type Order struct {
	ID               int64
	UserID           int64
	Status           OrderStatus
	ShippingMethodID int64
	Total            decimal.Decimal
	PlacedAt         time.Time
	// Joined on reads.
	ShippingName  string
	ShippingPrice decimal.Decimal
	Lines         []*OrderLine
}

// OrderLine records an item, quantity and the unit price at purchase time.
// The price is snapshotted, never re-read from the catalog.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ItemID    int64
	ItemName  string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// ShippingMethod is reference data attached to orders.
type ShippingMethod struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
}

// CartRepository defines data access for open cart lines
type CartRepository interface {
	Add(ctx context.Context, line *CartLine) error
	// OpenLine fetches an open line owned by the user.
	OpenLine(ctx context.Context, userID, lineID int64) (*CartLine, error)
	// OpenLineByItem fetches the user's open line for an item, if any.
	OpenLineByItem(ctx context.Context, userID, itemID int64) (*CartLine, error)
	ListOpen(ctx context.Context, userID int64) ([]*CartLine, error)
	UpdateQuantity(ctx context.Context, lineID, quantity int64) error
	Remove(ctx context.Context, lineID int64) error
	// AttachToOrder closes the line by assigning it an order id.
	AttachToOrder(ctx context.Context, lineID, orderID int64) error
}

// OrderRepository defines data access for orders and their snapshot lines
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	AddLine(ctx context.Context, line *OrderLine) error
	// GetByID returns the order with its lines loaded.
	GetByID(ctx context.Context, id int64) (*Order, error)
	// List returns all orders, or only the user's when userID > 0.
	List(ctx context.Context, userID int64) ([]*Order, error)
	// UpdateStatus writes the new status only while the stored status still
	// matches from, so concurrent writers cannot both apply a transition.
	UpdateStatus(ctx context.Context, id int64, from, to OrderStatus) error
	// CountActiveByUser reports how many non-terminal orders a user owns.
	CountActiveByUser(ctx context.Context, userID int64) (int64, error)
}

// ShippingMethodRepository defines data access for shipping methods
type ShippingMethodRepository interface {
	Create(ctx context.Context, method *ShippingMethod) error
	GetByID(ctx context.Context, id int64) (*ShippingMethod, error)
	Update(ctx context.Context, method *ShippingMethod) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*ShippingMethod, error)
	// CountOrders reports how many orders reference the method.
	CountOrders(ctx context.Context, methodID int64) (int64, error)
}
