package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/auth"
)

// memStore is an in-memory stand-in for the database used by the service
// tests. All repositories share one store so cross-entity joins work.
type memStore struct {
	mu         sync.Mutex
	seq        int64
	users      map[int64]*domain.User
	creds      map[string]*domain.Credential
	payments   map[int64]*domain.PaymentMethod
	items      map[int64]*domain.Item
	categories map[int64]*domain.Category
	cartLines  map[int64]*domain.CartLine
	orders     map[int64]*domain.Order
	orderLines []*domain.OrderLine
	shipping   map[int64]*domain.ShippingMethod
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[int64]*domain.User{},
		creds:      map[string]*domain.Credential{},
		payments:   map[int64]*domain.PaymentMethod{},
		items:      map[int64]*domain.Item{},
		categories: map[int64]*domain.Category{},
		cartLines:  map[int64]*domain.CartLine{},
		orders:     map[int64]*domain.Order{},
		shipping:   map[int64]*domain.ShippingMethod{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

// snapshot deep-copies the store so a failed transaction can restore it.
func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	cp.seq = s.seq
	for id, u := range s.users {
		c := *u
		cp.users[id] = &c
	}
	for login, cr := range s.creds {
		c := *cr
		cp.creds[login] = &c
	}
	for id, pm := range s.payments {
		c := *pm
		cp.payments[id] = &c
	}
	for id, it := range s.items {
		c := *it
		cp.items[id] = &c
	}
	for id, cat := range s.categories {
		c := *cat
		cp.categories[id] = &c
	}
	for id, cl := range s.cartLines {
		c := *cl
		if cl.OrderID != nil {
			oid := *cl.OrderID
			c.OrderID = &oid
		}
		cp.cartLines[id] = &c
	}
	for id, o := range s.orders {
		c := *o
		c.Lines = nil
		cp.orders[id] = &c
	}
	for _, ol := range s.orderLines {
		c := *ol
		cp.orderLines = append(cp.orderLines, &c)
	}
	for id, m := range s.shipping {
		c := *m
		cp.shipping[id] = &c
	}
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.seq = from.seq
	s.users = from.users
	s.creds = from.creds
	s.payments = from.payments
	s.items = from.items
	s.categories = from.categories
	s.cartLines = from.cartLines
	s.orders = from.orders
	s.orderLines = from.orderLines
	s.shipping = from.shipping
}

// memTx emulates the all-or-nothing unit of work by restoring a snapshot
// when the function fails.
type memTx struct{ store *memStore }

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.mu.Lock()
	snap := t.store.snapshot()
	t.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.store.mu.Lock()
		t.store.restore(snap)
		t.store.mu.Unlock()
		return err
	}
	return nil
}

type memUsers struct{ s *memStore }

func (r *memUsers) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
	}
	user.ID = r.s.nextID()
	user.CreatedAt = time.Now()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (r *memUsers) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return fmt.Errorf("user %d: %w", user.ID, domain.ErrNotFound)
	}
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *memUsers) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	delete(r.s.users, id)
	return nil
}

func (r *memUsers) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.User
	for _, u := range r.s.users {
		if role != "" && u.Role != role {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

type memCreds struct{ s *memStore }

func (r *memCreds) Create(ctx context.Context, cred *domain.Credential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.creds[cred.Login]; ok {
		return fmt.Errorf("login already taken: %w", domain.ErrConflict)
	}
	cred.ID = r.s.nextID()
	c := *cred
	r.s.creds[cred.Login] = &c
	return nil
}

func (r *memCreds) GetByLogin(ctx context.Context, login string) (*domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cred, ok := r.s.creds[login]
	if !ok {
		return nil, fmt.Errorf("credential %s: %w", login, domain.ErrNotFound)
	}
	c := *cred
	return &c, nil
}

type memPayments struct{ s *memStore }

func (r *memPayments) Create(ctx context.Context, pm *domain.PaymentMethod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pm.ID = r.s.nextID()
	c := *pm
	r.s.payments[pm.ID] = &c
	return nil
}

func (r *memPayments) ListByUser(ctx context.Context, userID int64) ([]*domain.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.PaymentMethod
	for _, pm := range r.s.payments {
		if pm.UserID == userID {
			c := *pm
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memPayments) Remove(ctx context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pm, ok := r.s.payments[id]
	if !ok || pm.UserID != userID {
		return fmt.Errorf("payment method %d: %w", id, domain.ErrNotFound)
	}
	delete(r.s.payments, id)
	return nil
}

type memItems struct{ s *memStore }

func (r *memItems) Create(ctx context.Context, item *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item.ID = r.s.nextID()
	item.CreatedAt = time.Now()
	c := *item
	r.s.items[item.ID] = &c
	return nil
}

func (r *memItems) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	c := *it
	return &c, nil
}

func (r *memItems) Update(ctx context.Context, item *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.items[item.ID]
	if !ok {
		return fmt.Errorf("item %d: %w", item.ID, domain.ErrNotFound)
	}
	c := *item
	c.Stock = existing.Stock
	r.s.items[item.ID] = &c
	return nil
}

func (r *memItems) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	it.Active = false
	return nil
}

func (r *memItems) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Item
	for _, it := range r.s.items {
		if !it.Active {
			continue
		}
		if filter.CategoryID != nil && it.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.InStock && it.Stock == 0 {
			continue
		}
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

func (r *memItems) ReserveStock(ctx context.Context, itemID, quantity int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[itemID]
	if !ok {
		return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	if it.Stock < quantity {
		return fmt.Errorf("item %d has %d units: %w", itemID, it.Stock, domain.ErrInsufficientStock)
	}
	it.Stock -= quantity
	return nil
}

func (r *memItems) ReleaseStock(ctx context.Context, itemID, quantity int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[itemID]
	if !ok {
		return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	it.Stock += quantity
	return nil
}

type memCategories struct{ s *memStore }

func (r *memCategories) Create(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category.ID = r.s.nextID()
	c := *category
	r.s.categories[category.ID] = &c
	return nil
}

func (r *memCategories) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cat, ok := r.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	c := *cat
	return &c, nil
}

func (r *memCategories) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cat := range r.s.categories {
		if cat.Name == name {
			c := *cat
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", name, domain.ErrNotFound)
}

func (r *memCategories) Update(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[category.ID]; !ok {
		return fmt.Errorf("category %d: %w", category.ID, domain.ErrNotFound)
	}
	c := *category
	r.s.categories[category.ID] = &c
	return nil
}

func (r *memCategories) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	delete(r.s.categories, id)
	return nil
}

func (r *memCategories) List(ctx context.Context) ([]*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Category
	for _, cat := range r.s.categories {
		c := *cat
		out = append(out, &c)
	}
	return out, nil
}

func (r *memCategories) CountItems(ctx context.Context, categoryID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, it := range r.s.items {
		if it.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type memCarts struct{ s *memStore }

func (r *memCarts) join(line *domain.CartLine) *domain.CartLine {
	c := *line
	if it, ok := r.s.items[line.ItemID]; ok {
		c.ItemName = it.Name
		c.UnitPrice = it.Price
	}
	return &c
}

func (r *memCarts) Add(ctx context.Context, line *domain.CartLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line.ID = r.s.nextID()
	c := *line
	r.s.cartLines[line.ID] = &c
	return nil
}

func (r *memCarts) OpenLine(ctx context.Context, userID, lineID int64) (*domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.cartLines[lineID]
	if !ok || line.UserID != userID || !line.Open() {
		return nil, fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	return r.join(line), nil
}

func (r *memCarts) OpenLineByItem(ctx context.Context, userID, itemID int64) (*domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, line := range r.s.cartLines {
		if line.UserID == userID && line.ItemID == itemID && line.Open() {
			return r.join(line), nil
		}
	}
	return nil, fmt.Errorf("cart line for item %d: %w", itemID, domain.ErrNotFound)
}

func (r *memCarts) ListOpen(ctx context.Context, userID int64) ([]*domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.CartLine
	for _, line := range r.s.cartLines {
		if line.UserID == userID && line.Open() {
			out = append(out, r.join(line))
		}
	}
	return out, nil
}

func (r *memCarts) UpdateQuantity(ctx context.Context, lineID, quantity int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.cartLines[lineID]
	if !ok || !line.Open() {
		return fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	line.Quantity = quantity
	return nil
}

func (r *memCarts) Remove(ctx context.Context, lineID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.cartLines[lineID]
	if !ok || !line.Open() {
		return fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	delete(r.s.cartLines, lineID)
	return nil
}

func (r *memCarts) AttachToOrder(ctx context.Context, lineID, orderID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.cartLines[lineID]
	if !ok {
		return fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	if !line.Open() {
		return fmt.Errorf("cart line %d already closed: %w", lineID, domain.ErrConflict)
	}
	line.OrderID = &orderID
	return nil
}

type memOrders struct{ s *memStore }

func (r *memOrders) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order.ID = r.s.nextID()
	c := *order
	c.Lines = nil
	r.s.orders[order.ID] = &c
	return nil
}

func (r *memOrders) AddLine(ctx context.Context, line *domain.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line.ID = r.s.nextID()
	c := *line
	r.s.orderLines = append(r.s.orderLines, &c)
	return nil
}

func (r *memOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	c := *o
	c.Lines = nil
	for _, ol := range r.s.orderLines {
		if ol.OrderID == id {
			lc := *ol
			c.Lines = append(c.Lines, &lc)
		}
	}
	if m, ok := r.s.shipping[o.ShippingMethodID]; ok {
		c.ShippingName = m.Name
		c.ShippingPrice = m.Price
	}
	return &c, nil
}

func (r *memOrders) List(ctx context.Context, userID int64) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.s.orders {
		if userID > 0 && o.UserID != userID {
			continue
		}
		c := *o
		out = append(out, &c)
	}
	return out, nil
}

func (r *memOrders) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("%s -> %s: %w", o.Status, to, domain.ErrInvalidTransition)
	}
	o.Status = to
	return nil
}

func (r *memOrders) CountActiveByUser(ctx context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, o := range r.s.orders {
		if o.UserID == userID && !o.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

type memShipping struct{ s *memStore }

func (r *memShipping) Create(ctx context.Context, method *domain.ShippingMethod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	method.ID = r.s.nextID()
	c := *method
	r.s.shipping[method.ID] = &c
	return nil
}

func (r *memShipping) GetByID(ctx context.Context, id int64) (*domain.ShippingMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.shipping[id]
	if !ok {
		return nil, fmt.Errorf("shipping method %d: %w", id, domain.ErrNotFound)
	}
	c := *m
	return &c, nil
}

func (r *memShipping) Update(ctx context.Context, method *domain.ShippingMethod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shipping[method.ID]; !ok {
		return fmt.Errorf("shipping method %d: %w", method.ID, domain.ErrNotFound)
	}
	c := *method
	r.s.shipping[method.ID] = &c
	return nil
}

func (r *memShipping) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shipping[id]; !ok {
		return fmt.Errorf("shipping method %d: %w", id, domain.ErrNotFound)
	}
	delete(r.s.shipping, id)
	return nil
}

func (r *memShipping) List(ctx context.Context) ([]*domain.ShippingMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.ShippingMethod
	for _, m := range r.s.shipping {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

func (r *memShipping) CountOrders(ctx context.Context, methodID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, o := range r.s.orders {
		if o.ShippingMethodID == methodID {
			n++
		}
	}
	return n, nil
}

// memSessions satisfies SessionStore without Redis.
type memSessions struct {
	mu     sync.Mutex
	tokens map[string]int64
}

func newMemSessions() *memSessions {
	return &memSessions{tokens: map[string]int64{}}
}

func (m *memSessions) Record(ctx context.Context, token string, userID int64, role domain.Role, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *memSessions) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *memSessions) Get(ctx context.Context, token string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[token]
	if !ok {
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	return &auth.Session{UserID: userID}, nil
}
