package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pharmacrm/internal/models"
)

// MemoryStore keeps every collection in process memory. It backs the tests and
// the `serve --memory` demo mode.
type MemoryStore struct {
	mu            sync.RWMutex
	products      map[primitive.ObjectID]models.Product
	orders        map[primitive.ObjectID]models.Order
	leads         map[primitive.ObjectID]models.Lead
	events        map[primitive.ObjectID]models.CalendarEvent
	notifications map[primitive.ObjectID]models.Notification
	customers     map[string]models.Customer
	staff         map[string]models.Staff
	hook          ChangeHook
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:      make(map[primitive.ObjectID]models.Product),
		orders:        make(map[primitive.ObjectID]models.Order),
		leads:         make(map[primitive.ObjectID]models.Lead),
		events:        make(map[primitive.ObjectID]models.CalendarEvent),
		notifications: make(map[primitive.ObjectID]models.Notification),
		customers:     make(map[string]models.Customer),
		staff:         make(map[string]models.Staff),
	}
}

// SetChangeHook registers fn to observe product, order and lead writes. It is
// called with the store lock held and must not block.
func (m *MemoryStore) SetChangeHook(fn ChangeHook) {
	m.mu.Lock()
	m.hook = fn
	m.mu.Unlock()
}

func (m *MemoryStore) emit(collection, op string, doc interface{}, updatedFields ...string) {
	if m.hook != nil {
		m.hook(collection, op, doc, updatedFields...)
	}
}

// Repositories wires every memory repository over this store.
func (m *MemoryStore) Repositories() Repositories {
	return Repositories{
		Products:      &MemoryProducts{m},
		Orders:        &MemoryOrders{m},
		Leads:         &MemoryLeads{m},
		Events:        &MemoryEvents{m},
		Notifications: &MemoryNotifications{m},
		Customers:     &MemoryCustomers{m},
		Staff:         &MemoryStaff{m},
		Tx:            &MemoryTx{m},
	}
}

// transaction-aware locking: inside WithTransaction the store lock is already
// held, so repositories skip their own locking.
type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RLock()
	}
}

func (m *MemoryStore) runlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RUnlock()
	}
}

func (m *MemoryStore) wlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Lock()
	}
}

func (m *MemoryStore) wunlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Unlock()
	}
}

func now() time.Time { return time.Now().UTC() }

// MemoryTx serializes transactions behind the store's write lock.
type MemoryTx struct{ store *MemoryStore }

var _ TxManager = (*MemoryTx)(nil)

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

/* =========================
   PRODUCTS
========================= */

type MemoryProducts struct{ store *MemoryStore }

var _ ProductRepository = (*MemoryProducts)(nil)

func (r *MemoryProducts) Create(ctx context.Context, p *models.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	p.UpdatedAt = p.CreatedAt
	p.RefreshStockStatus()
	r.store.products[p.ID] = cloneProduct(*p)
	r.store.emit(CollectionProducts, OpInsert, cloneProduct(*p))
	return nil
}

func (r *MemoryProducts) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	p, ok := r.store.products[id]
	if !ok || p.IsDeleted {
		return nil, ErrNotFound
	}
	cp := cloneProduct(p)
	return &cp, nil
}

func (r *MemoryProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Product, 0)
	for _, p := range r.store.products {
		if p.IsDeleted {
			continue
		}
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.Category != "" && !p.Category.Contains(f.Category) {
			continue
		}
		if f.InStockOnly && p.Stock <= 0 {
			continue
		}
		if !containsIgnoreCase(p.Name, f.Search) {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryProducts) Update(ctx context.Context, p *models.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	existing, ok := r.store.products[p.ID]
	if !ok || existing.IsDeleted {
		return ErrNotFound
	}
	p.UpdatedAt = now()
	p.RefreshStockStatus()
	r.store.products[p.ID] = cloneProduct(*p)
	r.store.emit(CollectionProducts, OpUpdate, cloneProduct(*p), productChangedFields(existing, *p)...)
	return nil
}

func (r *MemoryProducts) AdjustStock(ctx context.Context, id primitive.ObjectID, op models.StockOperation, qty int) (*models.Product, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	p, ok := r.store.products[id]
	if !ok || p.IsDeleted {
		return nil, ErrNotFound
	}
	before := p
	switch op {
	case models.StockSet:
		if qty > models.MaxStock {
			return nil, ErrStockLimit
		}
		p.Stock = qty
	case models.StockIncrement:
		if qty > models.MaxStock-p.Stock {
			return nil, ErrStockLimit
		}
		p.Stock += qty
	case models.StockDecrement:
		if p.Stock < qty {
			return nil, ErrInsufficientStock
		}
		p.Stock -= qty
	}
	p.RefreshStockStatus()
	p.UpdatedAt = now()
	r.store.products[id] = p
	r.store.emit(CollectionProducts, OpUpdate, cloneProduct(p), productChangedFields(before, p)...)
	cp := cloneProduct(p)
	return &cp, nil
}

func (r *MemoryProducts) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	p, ok := r.store.products[id]
	if !ok || p.IsDeleted {
		return ErrNotFound
	}
	t := now()
	p.IsDeleted = true
	p.IsActive = false
	p.DeletedAt = &t
	r.store.products[id] = p
	return nil
}

/* =========================
   ORDERS
========================= */

type MemoryOrders struct{ store *MemoryStore }

var _ OrderRepository = (*MemoryOrders)(nil)

func (r *MemoryOrders) Create(ctx context.Context, o *models.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now()
	}
	o.UpdatedAt = o.CreatedAt
	r.store.orders[o.ID] = cloneOrder(*o)
	r.store.emit(CollectionOrders, OpInsert, cloneOrder(*o))
	return nil
}

func (r *MemoryOrders) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	o, ok := r.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (r *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Order, 0)
	for _, o := range r.store.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryOrders) Update(ctx context.Context, o *models.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.orders[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = now()
	r.store.orders[o.ID] = cloneOrder(*o)
	r.store.emit(CollectionOrders, OpUpdate, cloneOrder(*o), "status", "deliveryStatus", "prescriptionVerified", "updatedAt")
	return nil
}

/* =========================
   LEADS
========================= */

type MemoryLeads struct{ store *MemoryStore }

var _ LeadRepository = (*MemoryLeads)(nil)

func (r *MemoryLeads) Create(ctx context.Context, l *models.Lead) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now()
	}
	l.UpdatedAt = l.CreatedAt
	r.store.leads[l.ID] = cloneLead(*l)
	r.store.emit(CollectionLeads, OpInsert, cloneLead(*l))
	return nil
}

func (r *MemoryLeads) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	l, ok := r.store.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneLead(l)
	return &cp, nil
}

func (r *MemoryLeads) List(ctx context.Context, f LeadFilter) ([]models.Lead, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Lead, 0)
	for _, l := range r.store.leads {
		if f.Stage != "" && l.Stage != f.Stage {
			continue
		}
		out = append(out, cloneLead(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryLeads) Update(ctx context.Context, l *models.Lead) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.leads[l.ID]; !ok {
		return ErrNotFound
	}
	l.UpdatedAt = now()
	r.store.leads[l.ID] = cloneLead(*l)
	r.store.emit(CollectionLeads, OpUpdate, cloneLead(*l), "stage", "priority", "notes", "updatedAt")
	return nil
}

/* =========================
   CALENDAR EVENTS
========================= */

type MemoryEvents struct{ store *MemoryStore }

var _ EventRepository = (*MemoryEvents)(nil)

func (r *MemoryEvents) Create(ctx context.Context, ev *models.CalendarEvent) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now()
	}
	ev.UpdatedAt = ev.CreatedAt
	r.store.events[ev.ID] = cloneEvent(*ev)
	return nil
}

func (r *MemoryEvents) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CalendarEvent, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	ev, ok := r.store.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneEvent(ev)
	return &cp, nil
}

func (r *MemoryEvents) Update(ctx context.Context, ev *models.CalendarEvent) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.events[ev.ID]; !ok {
		return ErrNotFound
	}
	ev.UpdatedAt = now()
	r.store.events[ev.ID] = cloneEvent(*ev)
	return nil
}

func (r *MemoryEvents) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.events[id]; !ok {
		return ErrNotFound
	}
	delete(r.store.events, id)
	return nil
}

func (r *MemoryEvents) ListRange(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.CalendarEvent, 0)
	for _, ev := range r.store.events {
		if !to.IsZero() && !ev.Start.Before(to) {
			continue
		}
		if !from.IsZero() && !ev.End.After(from) {
			continue
		}
		out = append(out, cloneEvent(ev))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

/* =========================
   NOTIFICATIONS
========================= */

type MemoryNotifications struct{ store *MemoryStore }

var _ NotificationRepository = (*MemoryNotifications)(nil)

func (r *MemoryNotifications) Create(ctx context.Context, n *models.Notification) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	r.store.notifications[n.ID] = *n
	return nil
}

func (r *MemoryNotifications) List(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Notification, 0)
	for _, n := range r.store.notifications {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryNotifications) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	n, ok := r.store.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Read = true
	r.store.notifications[id] = n
	return nil
}

func (r *MemoryNotifications) MarkAllRead(ctx context.Context) (int64, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	var count int64
	for id, n := range r.store.notifications {
		if n.Read {
			continue
		}
		n.Read = true
		r.store.notifications[id] = n
		count++
	}
	return count, nil
}

/* =========================
   CUSTOMERS & STAFF
========================= */

type MemoryCustomers struct{ store *MemoryStore }

var _ CustomerRepository = (*MemoryCustomers)(nil)

func (r *MemoryCustomers) List(ctx context.Context) ([]models.Customer, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]models.Customer, 0, len(r.store.customers))
	for _, c := range r.store.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *MemoryCustomers) Upsert(ctx context.Context, c *models.Customer) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if existing, ok := r.store.customers[c.UserID]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	r.store.customers[c.UserID] = *c
	return nil
}

type MemoryStaff struct{ store *MemoryStore }

var _ StaffRepository = (*MemoryStaff)(nil)

func (r *MemoryStaff) Create(ctx context.Context, s *models.Staff) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	email := strings.ToLower(strings.TrimSpace(s.Email))
	if _, ok := r.store.staff[email]; ok {
		return ErrDuplicate
	}
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	s.Email = email
	r.store.staff[email] = *s
	return nil
}

func (r *MemoryStaff) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	s, ok := r.store.staff[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

/* =========================
   HELPERS
========================= */

// productChangedFields lists the stock fields that differ, plus updatedAt. A
// write that leaves stockStatus alone does not report it.
func productChangedFields(before, after models.Product) []string {
	fields := []string{"updatedAt"}
	if before.Stock != after.Stock {
		fields = append(fields, "stock")
	}
	if before.StockStatus != after.StockStatus {
		fields = append(fields, "stockStatus")
	}
	return fields
}

func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneProduct(p models.Product) models.Product {
	p.Category = append(models.StringList(nil), p.Category...)
	p.Images = append([]string(nil), p.Images...)
	p.Batches = append([]models.Batch(nil), p.Batches...)
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

func cloneLead(l models.Lead) models.Lead {
	l.Notes = append([]models.LeadNote(nil), l.Notes...)
	return l
}

func cloneEvent(ev models.CalendarEvent) models.CalendarEvent {
	ev.Participants = append(models.StringList(nil), ev.Participants...)
	return ev
}
