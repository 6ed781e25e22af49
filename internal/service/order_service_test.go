package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/security/audit"
)

type orderFixture struct {
	store    *memStore
	items    *memItems
	carts    *memCarts
	orders   *memOrders
	shipping *memShipping
	cartSvc  *CartService
	orderSvc *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := newMemStore()
	items := &memItems{s: store}
	carts := &memCarts{s: store}
	orders := &memOrders{s: store}
	shipping := &memShipping{s: store}
	ledger := NewInventoryLedger(items, nil)
	auditLog := audit.NewLogger(nil)

	return &orderFixture{
		store:    store,
		items:    items,
		carts:    carts,
		orders:   orders,
		shipping: shipping,
		cartSvc:  NewCartService(carts, items, nil),
		orderSvc: NewOrderService(&memTx{store: store}, orders, carts, shipping, ledger, auditLog, nil),
	}
}

func (f *orderFixture) addItem(t *testing.T, name, price string, stock int64) *domain.Item {
	t.Helper()
	item := &domain.Item{Name: name, Price: mustDecimal(t, price), Stock: stock, Active: true, CategoryID: 1}
	if err := f.items.Create(context.Background(), item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func (f *orderFixture) addShipping(t *testing.T, name, price string) *domain.ShippingMethod {
	t.Helper()
	method := &domain.ShippingMethod{Name: name, Price: mustDecimal(t, price)}
	if err := f.shipping.Create(context.Background(), method); err != nil {
		t.Fatalf("create shipping method: %v", err)
	}
	return method
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func customer(id int64) *security.Principal {
	return &security.Principal{UserID: id, Role: domain.RoleCustomer}
}

func manager(id int64) *security.Principal {
	return &security.Principal{UserID: id, Role: domain.RoleManager}
}

func TestCheckoutComputesSnapshotTotal(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	book := f.addItem(t, "book", "4.00", 10)
	mug := f.addItem(t, "mug", "15.00", 3)
	method := f.addShipping(t, "courier", "5.00")
	actor := customer(42)

	if err := f.cartSvc.Add(ctx, actor.UserID, book.ID, 2); err != nil {
		t.Fatalf("add book: %v", err)
	}
	if err := f.cartSvc.Add(ctx, actor.UserID, mug.ID, 1); err != nil {
		t.Fatalf("add mug: %v", err)
	}

	order, err := f.orderSvc.Checkout(ctx, actor, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if !order.Total.Equal(mustDecimal(t, "28.00")) {
		t.Errorf("total = %s, want 28.00", order.Total)
	}
	if order.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(order.Lines))
	}

	// Stock moved and cart is empty.
	got, _ := f.items.GetByID(ctx, book.ID)
	if got.Stock != 8 {
		t.Errorf("book stock = %d, want 8", got.Stock)
	}
	view, err := f.cartSvc.View(ctx, actor.UserID)
	if err != nil {
		t.Fatalf("view cart: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Errorf("open cart lines = %d, want 0", len(view.Lines))
	}
}

func TestCheckoutSnapshotSurvivesPriceChange(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "lamp", "20.00", 5)
	method := f.addShipping(t, "pickup", "0.00")
	actor := customer(7)

	if err := f.cartSvc.Add(ctx, actor.UserID, item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, actor, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Raise the catalog price; the order keeps the purchase-time price.
	item.Price = mustDecimal(t, "99.00")
	if err := f.items.Update(ctx, item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	reread, err := f.orderSvc.Get(ctx, actor, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !reread.Lines[0].UnitPrice.Equal(mustDecimal(t, "20.00")) {
		t.Errorf("unit price = %s, want 20.00", reread.Lines[0].UnitPrice)
	}
}

func TestCheckoutAbortsWithoutPartialReservation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	plenty := f.addItem(t, "plenty", "1.00", 5)
	gone := f.addItem(t, "gone", "1.00", 3)
	method := f.addShipping(t, "courier", "5.00")
	actor := customer(9)

	if err := f.cartSvc.Add(ctx, actor.UserID, plenty.ID, 2); err != nil {
		t.Fatalf("add plenty: %v", err)
	}
	if err := f.cartSvc.Add(ctx, actor.UserID, gone.ID, 3); err != nil {
		t.Fatalf("add gone: %v", err)
	}

	// Another buyer empties the second item after it entered the cart.
	if err := f.items.ReserveStock(ctx, gone.ID, 3); err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	_, err := f.orderSvc.Checkout(ctx, actor, method.ID)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("checkout err = %v, want ErrInsufficientStock", err)
	}

	// The first item's reservation was rolled back with the transaction.
	got, _ := f.items.GetByID(ctx, plenty.ID)
	if got.Stock != 5 {
		t.Errorf("plenty stock = %d, want 5", got.Stock)
	}
	view, _ := f.cartSvc.View(ctx, actor.UserID)
	if len(view.Lines) != 2 {
		t.Errorf("cart lines = %d, want 2 (cart untouched)", len(view.Lines))
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	f := newOrderFixture(t)
	method := f.addShipping(t, "courier", "5.00")

	_, err := f.orderSvc.Checkout(context.Background(), customer(1), method.ID)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCheckoutUnknownShippingMethod(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "thing", "2.00", 4)
	actor := customer(3)
	if err := f.cartSvc.Add(ctx, actor.UserID, item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := f.orderSvc.Checkout(ctx, actor, 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancelReleasesStockExactlyOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "widget", "3.00", 10)
	method := f.addShipping(t, "courier", "1.00")
	actor := customer(5)

	if err := f.cartSvc.Add(ctx, actor.UserID, item.ID, 4); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, actor, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	got, _ := f.items.GetByID(ctx, item.ID)
	if got.Stock != 6 {
		t.Fatalf("stock after checkout = %d, want 6", got.Stock)
	}

	if err := f.orderSvc.Cancel(ctx, actor, order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ = f.items.GetByID(ctx, item.ID)
	if got.Stock != 10 {
		t.Errorf("stock after cancel = %d, want 10", got.Stock)
	}

	// A second cancel hits a terminal order and must not release again.
	err = f.orderSvc.Cancel(ctx, manager(99), order.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("double cancel err = %v, want ErrConflict", err)
	}
	got, _ = f.items.GetByID(ctx, item.ID)
	if got.Stock != 10 {
		t.Errorf("stock after double cancel = %d, want 10", got.Stock)
	}
}

// staleOrders reports every order as still pending from GetByID, standing in
// for a concurrent canceller whose read completed before the other one wrote.
type staleOrders struct {
	domain.OrderRepository
}

func (r *staleOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := r.OrderRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Status = domain.StatusPending
	return order, nil
}

func TestCancelRaceReleasesStockOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "widget", "3.00", 10)
	method := f.addShipping(t, "courier", "1.00")
	actor := customer(5)

	if err := f.cartSvc.Add(ctx, actor.UserID, item.ID, 4); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, actor, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Both cancels observe a pending order before either writes, so both
	// pass the transition check. Only the status compare-and-set may decide
	// who releases.
	svc := NewOrderService(&memTx{store: f.store}, &staleOrders{f.orders}, f.carts,
		f.shipping, NewInventoryLedger(f.items, nil), audit.NewLogger(nil), nil)

	if err := svc.Cancel(ctx, manager(99), order.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	err = svc.Cancel(ctx, manager(99), order.ID)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second cancel err = %v, want ErrInvalidTransition", err)
	}

	got, _ := f.items.GetByID(ctx, item.ID)
	if got.Stock != 10 {
		t.Errorf("stock = %d, want 10 (released once)", got.Stock)
	}
}

func TestUpdateStatusRaceAppliesOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "widget", "3.00", 10)
	method := f.addShipping(t, "courier", "1.00")
	owner := customer(5)

	if err := f.cartSvc.Add(ctx, owner.UserID, item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, owner, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	svc := NewOrderService(&memTx{store: f.store}, &staleOrders{f.orders}, f.carts,
		f.shipping, NewInventoryLedger(f.items, nil), audit.NewLogger(nil), nil)

	if err := svc.UpdateStatus(ctx, manager(99), order.ID, domain.StatusConfirmed); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	err = svc.UpdateStatus(ctx, manager(99), order.ID, domain.StatusConfirmed)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second confirm err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelOwnershipRules(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "widget", "3.00", 10)
	method := f.addShipping(t, "courier", "1.00")
	owner := customer(5)

	if err := f.cartSvc.Add(ctx, owner.UserID, item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, owner, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Another customer may not cancel it.
	err = f.orderSvc.Cancel(ctx, customer(6), order.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign cancel err = %v, want ErrForbidden", err)
	}

	// Staff may cancel any non-terminal order.
	if err := f.orderSvc.Cancel(ctx, manager(99), order.ID); err != nil {
		t.Fatalf("manager cancel: %v", err)
	}
}

func TestCustomerCannotCancelConfirmedOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "widget", "3.00", 10)
	method := f.addShipping(t, "courier", "1.00")
	owner := customer(5)

	if err := f.cartSvc.Add(ctx, owner.UserID, item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, owner, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := f.orderSvc.UpdateStatus(ctx, manager(99), order.ID, domain.StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	err = f.orderSvc.Cancel(ctx, owner, order.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// Staff still can, and the stock comes back.
	if err := f.orderSvc.Cancel(ctx, manager(99), order.ID); err != nil {
		t.Fatalf("manager cancel: %v", err)
	}
	got, _ := f.items.GetByID(ctx, item.ID)
	if got.Stock != 10 {
		t.Errorf("stock = %d, want 10", got.Stock)
	}
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "widget", "3.00", 10)
	method := f.addShipping(t, "courier", "1.00")
	owner := customer(5)
	staff := manager(99)

	if err := f.cartSvc.Add(ctx, owner.UserID, item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, owner, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// pending -> shipped skips confirmed.
	err = f.orderSvc.UpdateStatus(ctx, staff, order.ID, domain.StatusShipped)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("pending->shipped err = %v, want ErrConflict", err)
	}

	for _, status := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusShipped} {
		if err := f.orderSvc.UpdateStatus(ctx, staff, order.ID, status); err != nil {
			t.Fatalf("to %s: %v", status, err)
		}
	}

	// No road back from shipped.
	err = f.orderSvc.UpdateStatus(ctx, staff, order.ID, domain.StatusPending)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("shipped->pending err = %v, want ErrConflict", err)
	}
	err = f.orderSvc.UpdateStatus(ctx, staff, order.ID, domain.StatusCancelled)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("shipped->cancelled err = %v, want ErrConflict", err)
	}

	if err := f.orderSvc.UpdateStatus(ctx, staff, order.ID, domain.StatusDelivered); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	err = f.orderSvc.UpdateStatus(ctx, staff, order.ID, domain.StatusConfirmed)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("delivered->confirmed err = %v, want ErrConflict", err)
	}
}

func TestOrderReadScoping(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "widget", "3.00", 10)
	method := f.addShipping(t, "courier", "1.00")
	owner := customer(5)

	if err := f.cartSvc.Add(ctx, owner.UserID, item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.orderSvc.Checkout(ctx, owner, method.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := f.orderSvc.Get(ctx, customer(6), order.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign get err = %v, want ErrForbidden", err)
	}
	if _, err := f.orderSvc.Get(ctx, manager(99), order.ID); err != nil {
		t.Fatalf("manager get: %v", err)
	}

	mine, err := f.orderSvc.List(ctx, owner)
	if err != nil || len(mine) != 1 {
		t.Fatalf("owner list = %d orders, err %v; want 1", len(mine), err)
	}
	foreign, err := f.orderSvc.List(ctx, customer(6))
	if err != nil || len(foreign) != 0 {
		t.Fatalf("foreign list = %d orders, err %v; want 0", len(foreign), err)
	}
	all, err := f.orderSvc.List(ctx, manager(99))
	if err != nil || len(all) != 1 {
		t.Fatalf("staff list = %d orders, err %v; want 1", len(all), err)
	}
}
