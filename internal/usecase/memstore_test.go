package usecase

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"
)

// =====================
// インメモリのTxManager
// WithinTxは1本ずつ直列に実行し、エラーなら丸ごと元に戻す（行ロック+ロールバックの代わり）
// =====================

type memState struct {
	nextID      int64
	users       map[int64]model.User
	products    map[int64]model.Product
	deleted     map[int64]bool
	reviews     []model.ProductReview
	carts       map[int64]model.Cart
	cartItems   map[int64]model.CartItem
	orders      map[int64]model.Order
	orderItems  []model.OrderItem
	adjustments []model.InventoryAdjustment
	audits      []model.AuditLog
	outbox      []model.OutboxEvent
	recon       []model.ReconciliationEntry
}

func newMemState() memState {
	return memState{
		users:     map[int64]model.User{},
		products:  map[int64]model.Product{},
		deleted:   map[int64]bool{},
		carts:     map[int64]model.Cart{},
		cartItems: map[int64]model.CartItem{},
		orders:    map[int64]model.Order{},
	}
}

func (s memState) clone() memState {
	c := memState{
		nextID:      s.nextID,
		users:       make(map[int64]model.User, len(s.users)),
		products:    make(map[int64]model.Product, len(s.products)),
		deleted:     make(map[int64]bool, len(s.deleted)),
		reviews:     append([]model.ProductReview(nil), s.reviews...),
		carts:       make(map[int64]model.Cart, len(s.carts)),
		cartItems:   make(map[int64]model.CartItem, len(s.cartItems)),
		orders:      make(map[int64]model.Order, len(s.orders)),
		orderItems:  append([]model.OrderItem(nil), s.orderItems...),
		adjustments: append([]model.InventoryAdjustment(nil), s.adjustments...),
		audits:      append([]model.AuditLog(nil), s.audits...),
		outbox:      append([]model.OutboxEvent(nil), s.outbox...),
		recon:       append([]model.ReconciliationEntry(nil), s.recon...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.deleted {
		c.deleted[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

type memStore struct {
	mu    sync.Mutex
	st    memState
	calls int
}

func newMemStore() *memStore {
	return &memStore{st: newMemState()}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	snapshot := s.st.clone()
	if err := fn(ctx, memRepos{s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *memStore) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

// テストの前準備（Txの外から直接入れる）
func (s *memStore) addUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	if u.Email == "" {
		u.Email = fmt.Sprintf("user%d@example.com", u.ID)
	}
	u.IsActive = true
	s.st.users[u.ID] = u
	return u
}

func (s *memStore) addProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.st.products[p.ID] = p
	return p
}

func (s *memStore) deleteProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.deleted[id] = true
}

func (s *memStore) product(id int64) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.products[id]
}

func (s *memStore) user(id int64) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.users[id]
}

func (s *memStore) order(id int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.orders[id]
}

func (s *memStore) snapshot() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

func (s *memStore) cartItemsOf(userID int64) []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CartItem
	for _, c := range s.st.carts {
		if c.UserID != userID {
			continue
		}
		for _, it := range s.st.cartItems {
			if it.CartID == c.ID {
				out = append(out, it)
			}
		}
	}
	return out
}

type memRepos struct{ s *memStore }

func (r memRepos) Orders() repo.OrderRepository                  { return memOrders(r) }
func (r memRepos) OrderItems() repo.OrderItemRepository          { return memOrderItems(r) }
func (r memRepos) Carts() repo.CartRepository                    { return memCarts(r) }
func (r memRepos) CartItems() repo.CartItemRepository            { return memCartItems(r) }
func (r memRepos) Inventory() repo.InventoryRepository           { return memInventory(r) }
func (r memRepos) Products() repo.ProductRepository              { return memProducts(r) }
func (r memRepos) Reviews() repo.ReviewRepository                { return memReviews(r) }
func (r memRepos) Users() repo.UserRepository                    { return memUsers(r) }
func (r memRepos) AuditLogs() repo.AuditLogRepository            { return memAudits(r) }
func (r memRepos) Outbox() repo.OutboxRepository                 { return memOutbox(r) }
func (r memRepos) Reconciliation() repo.ReconciliationRepository { return memRecon(r) }

// =====================
// users
// =====================

type memUsers struct{ s *memStore }

func (m memUsers) Create(ctx context.Context, u *model.User) error {
	for _, x := range m.s.st.users {
		if x.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	u.ID = m.s.id()
	m.s.st.users[u.ID] = *u
	return nil
}

func (m memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := m.s.st.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) FindByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	var out []model.User
	seen := map[int64]bool{}
	for _, id := range ids {
		if u, ok := m.s.st.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, u)
		}
	}
	return out, nil
}

func (m memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.s.st.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m memUsers) Update(ctx context.Context, u *model.User) error {
	if _, ok := m.s.st.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	m.s.st.users[u.ID] = *u
	return nil
}

func (m memUsers) IncrementTokenVersion(ctx context.Context, id int64) error {
	u, ok := m.s.st.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.TokenVersion++
	m.s.st.users[id] = u
	return nil
}

func (m memUsers) AdjustCounter(ctx context.Context, id int64, counter model.UserCounter, delta int64) error {
	u, ok := m.s.st.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	floor := func(v int64) int64 {
		if v < 0 {
			return 0
		}
		return v
	}
	switch counter {
	case model.CounterTotalOrders:
		u.TotalOrders = floor(u.TotalOrders + delta)
	case model.CounterTotalSales:
		u.TotalSales = floor(u.TotalSales + delta)
	case model.CounterListedProducts:
		u.ListedProducts = floor(u.ListedProducts + delta)
	default:
		return fmt.Errorf("unknown counter %q", counter)
	}
	m.s.st.users[id] = u
	return nil
}

// =====================
// products / reviews / inventory
// =====================

type memProducts struct{ s *memStore }

func (m memProducts) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var all []model.Product
	for id, p := range m.s.st.products {
		if m.s.st.deleted[id] {
			continue
		}
		if !p.IsActive && !q.IncludeInactive {
			continue
		}
		if q.SellerID != nil && p.SellerID != *q.SellerID {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (q.Page - 1) * q.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := m.s.st.products[id]
	if !ok || m.s.st.deleted[id] {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

// WithinTxが直列なのでロックは要らない
func (m memProducts) FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error) {
	return m.FindByID(ctx, id)
}

func (m memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = m.s.id()
	m.s.st.products[p.ID] = p
	return p, nil
}

func (m memProducts) Update(ctx context.Context, p model.Product) error {
	if _, err := m.FindByID(ctx, p.ID); err != nil {
		return err
	}
	m.s.st.products[p.ID] = p
	return nil
}

func (m memProducts) Delete(ctx context.Context, id int64) error {
	if _, err := m.FindByID(ctx, id); err != nil {
		return err
	}
	m.s.st.deleted[id] = true
	return nil
}

func (m memProducts) UpdateRating(ctx context.Context, id int64, rating float64, n int64) error {
	p, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.Rating = rating
	p.NumReviews = n
	m.s.st.products[id] = p
	return nil
}

type memReviews struct{ s *memStore }

func (m memReviews) Create(ctx context.Context, r model.ProductReview) (model.ProductReview, error) {
	for _, x := range m.s.st.reviews {
		if x.ProductID == r.ProductID && x.UserID == r.UserID {
			return model.ProductReview{}, repo.ErrDuplicate
		}
	}
	r.ID = m.s.id()
	m.s.st.reviews = append(m.s.st.reviews, r)
	return r, nil
}

func (m memReviews) ListByProductID(ctx context.Context, productID int64) ([]model.ProductReview, error) {
	out := []model.ProductReview{}
	for _, x := range m.s.st.reviews {
		if x.ProductID == productID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (m memReviews) Stats(ctx context.Context, productID int64) (float64, int64, error) {
	var sum, n int64
	for _, x := range m.s.st.reviews {
		if x.ProductID == productID {
			sum += int64(x.Rating)
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

type memInventory struct{ s *memStore }

func (m memInventory) SetStock(ctx context.Context, id int64, stock int64) error {
	p, err := memProducts(m).FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.Stock = stock
	m.s.st.products[id] = p
	return nil
}

func (m memInventory) AdjustStock(ctx context.Context, id int64, delta int64) error {
	p, err := memProducts(m).FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Stock+delta < 0 {
		return repo.ErrInsufficientStock
	}
	p.Stock += delta
	m.s.st.products[id] = p
	return nil
}

func (m memInventory) CreateAdjustment(ctx context.Context, a model.InventoryAdjustment) error {
	a.ID = m.s.id()
	m.s.st.adjustments = append(m.s.st.adjustments, a)
	return nil
}

// =====================
// carts
// =====================

type memCarts struct{ s *memStore }

func (m memCarts) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	if c, err := m.FindByUserID(ctx, userID); err == nil {
		return c, nil
	}
	c := model.Cart{ID: m.s.id(), UserID: userID}
	m.s.st.carts[c.ID] = c
	return c, nil
}

func (m memCarts) LockByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	return m.GetOrCreateByUserID(ctx, userID)
}

func (m memCarts) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range m.s.st.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (m memCarts) UpdateTotal(ctx context.Context, cartID int64, total int64) error {
	c, ok := m.s.st.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.TotalAmount = total
	m.s.st.carts[cartID] = c
	return nil
}

func (m memCarts) Clear(ctx context.Context, cartID int64) error {
	for id, it := range m.s.st.cartItems {
		if it.CartID == cartID {
			delete(m.s.st.cartItems, id)
		}
	}
	return m.UpdateTotal(ctx, cartID, 0)
}

type memCartItems struct{ s *memStore }

func (m memCartItems) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	out := []model.CartItem{}
	for _, it := range m.s.st.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCartItems) FindByID(ctx context.Context, cartID int64, itemID int64) (model.CartItem, error) {
	it, ok := m.s.st.cartItems[itemID]
	if !ok || it.CartID != cartID {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (m memCartItems) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, qty int64, price int64) error {
	for id, it := range m.s.st.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			it.Quantity = qty
			m.s.st.cartItems[id] = it
			return nil
		}
	}
	id := m.s.id()
	m.s.st.cartItems[id] = model.CartItem{ID: id, CartID: cartID, ProductID: productID, Quantity: qty, UnitPriceSnapshot: price}
	return nil
}

func (m memCartItems) UpdateQuantity(ctx context.Context, itemID int64, qty int64) error {
	it, ok := m.s.st.cartItems[itemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	m.s.st.cartItems[itemID] = it
	return nil
}

func (m memCartItems) DeleteByID(ctx context.Context, cartID int64, itemID int64) error {
	if it, ok := m.s.st.cartItems[itemID]; ok && it.CartID == cartID {
		delete(m.s.st.cartItems, itemID)
	}
	return nil
}

// =====================
// orders
// =====================

type memOrders struct{ s *memStore }

func (m memOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	o, ok := m.s.st.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) sorted(keep func(model.Order) bool) []model.Order {
	var out []model.Order
	for _, o := range m.s.st.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func pageOf(orders []model.Order, p, limit int) ([]model.Order, int64) {
	total := int64(len(orders))
	start := (p - 1) * limit
	if start > len(orders) {
		start = len(orders)
	}
	end := start + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end], total
}

func (m memOrders) ListByUserID(ctx context.Context, userID int64, p int, limit int) ([]model.Order, int64, error) {
	out, total := pageOf(m.sorted(func(o model.Order) bool { return o.UserID == userID }), p, limit)
	return out, total, nil
}

func (m memOrders) ListBySellerID(ctx context.Context, sellerID int64, p int, limit int) ([]model.Order, int64, error) {
	has := map[int64]bool{}
	for _, it := range m.s.st.orderItems {
		if it.SellerID == sellerID {
			has[it.OrderID] = true
		}
	}
	out, total := pageOf(m.sorted(func(o model.Order) bool { return has[o.ID] }), p, limit)
	return out, total, nil
}

func (m memOrders) Create(ctx context.Context, o model.Order) (int64, error) {
	for _, x := range m.s.st.orders {
		if x.OrderNumber == o.OrderNumber {
			return 0, repo.ErrDuplicate
		}
		if o.IdempotencyKey != nil && x.IdempotencyKey != nil && x.UserID == o.UserID && *x.IdempotencyKey == *o.IdempotencyKey {
			return 0, repo.ErrDuplicate
		}
	}
	o.ID = m.s.id()
	m.s.st.orders[o.ID] = o
	return o.ID, nil
}

func (m memOrders) UpdateStatus(ctx context.Context, id int64, from model.OrderStatus, to model.OrderStatus) error {
	o, ok := m.s.st.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	if o.Status != from {
		return repo.ErrStaleState
	}
	o.Status = to
	m.s.st.orders[id] = o
	return nil
}

func (m memOrders) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	for _, o := range m.s.st.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (m memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	out, total := pageOf(m.sorted(func(o model.Order) bool {
		if f.Status != "" && string(o.Status) != f.Status {
			return false
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			return false
		}
		return true
	}), f.Page, f.Limit)
	return out, total, nil
}

type memOrderItems struct{ s *memStore }

func (m memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for _, it := range items {
		it.ID = m.s.id()
		it.OrderID = orderID
		m.s.st.orderItems = append(m.s.st.orderItems, it)
	}
	return nil
}

func (m memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return m.ListByOrderIDs(ctx, []int64{orderID})
}

func (m memOrderItems) ListByOrderIDs(ctx context.Context, ids []int64) ([]model.OrderItem, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []model.OrderItem{}
	for _, it := range m.s.st.orderItems {
		if want[it.OrderID] {
			out = append(out, it)
		}
	}
	return out, nil
}

// =====================
// audit / outbox / reconciliation
// =====================

type memAudits struct{ s *memStore }

func (m memAudits) Create(ctx context.Context, l model.AuditLog) error {
	l.ID = m.s.id()
	m.s.st.audits = append(m.s.st.audits, l)
	return nil
}

func (m memAudits) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	kind, target, hasTarget := f.Target()
	out := []model.AuditLog{}
	for i := len(m.s.st.audits) - 1; i >= 0; i-- {
		l := m.s.st.audits[i]
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.ActorRole != nil && l.ActorRole != *f.ActorRole {
			continue
		}
		if len(f.Actions) > 0 && !slices.Contains(f.Actions, l.Action) {
			continue
		}
		if hasTarget && (l.ResourceType != kind || l.ResourceID != target) {
			continue
		}
		if f.From != nil && l.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && l.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, l)
	}
	total := int64(len(out))
	start := min(f.Offset, len(out))
	end := len(out)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(out))
	}
	return out[start:end], total, nil
}

type memOutbox struct{ s *memStore }

func (m memOutbox) Create(ctx context.Context, ev model.OutboxEvent) error {
	m.s.st.outbox = append(m.s.st.outbox, ev)
	return nil
}

func (m memOutbox) ClaimPending(ctx context.Context, limit int, now, leaseUntil time.Time) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for i := range m.s.st.outbox {
		ev := &m.s.st.outbox[i]
		if ev.Status != model.OutboxStatusPending || len(out) >= limit {
			continue
		}
		if ev.ClaimedUntil != nil && !ev.ClaimedUntil.Before(now) {
			continue
		}
		until := leaseUntil
		ev.ClaimedUntil = &until
		out = append(out, *ev)
	}
	return out, nil
}

func (m memOutbox) MarkSent(ctx context.Context, id string, at time.Time) error {
	for i := range m.s.st.outbox {
		if m.s.st.outbox[i].ID == id {
			m.s.st.outbox[i].Status = model.OutboxStatusSent
			m.s.st.outbox[i].PublishedAt = &at
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m memOutbox) MarkAttemptFailed(ctx context.Context, id string, lastErr string, maxAttempts int) (bool, error) {
	for i := range m.s.st.outbox {
		if m.s.st.outbox[i].ID == id {
			m.s.st.outbox[i].Attempts++
			m.s.st.outbox[i].LastError = lastErr
			if m.s.st.outbox[i].Attempts >= maxAttempts {
				m.s.st.outbox[i].Status = model.OutboxStatusFailed
				return true, nil
			}
			return false, nil
		}
	}
	return false, repo.ErrNotFound
}

type memRecon struct{ s *memStore }

func (m memRecon) Create(ctx context.Context, e model.ReconciliationEntry) error {
	e.ID = m.s.id()
	m.s.st.recon = append(m.s.st.recon, e)
	return nil
}

func (m memRecon) List(ctx context.Context, f repo.ReconciliationFilter) ([]model.ReconciliationEntry, error) {
	out := []model.ReconciliationEntry{}
	for _, e := range m.s.st.recon {
		if f.OnlyOpen && e.ResolvedAt != nil {
			continue
		}
		if f.Kind != nil && e.Kind != *f.Kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m memRecon) Resolve(ctx context.Context, id int64, by int64, at time.Time) error {
	for i := range m.s.st.recon {
		if m.s.st.recon[i].ID == id {
			m.s.st.recon[i].ResolvedAt = &at
			m.s.st.recon[i].ResolvedBy = &by
			return nil
		}
	}
	return repo.ErrNotFound
}

// =====================
// 注文番号
// =====================

type memNumbers struct{ n atomic.Int64 }

func (g *memNumbers) Next(ctx context.Context) (string, error) {
	return fmt.Sprintf("ORD-TEST-%06d", g.n.Add(1)), nil
}

// 呼ばれた回数を数えるだけのOrderObserver
type countingObserver struct {
	mu        sync.Mutex
	placed    int
	rejected  []ErrorKind
	cancelled int
	changed   []model.OrderStatus
}

func (o *countingObserver) OrderPlaced(int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.placed++
}

func (o *countingObserver) OrderRejected(k ErrorKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, k)
}

func (o *countingObserver) OrderCancelled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled++
}

func (o *countingObserver) OrderStatusChanged(s model.OrderStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changed = append(o.changed, s)
}
