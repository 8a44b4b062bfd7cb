// Package memstore is an in-memory implementation of the store interfaces.
// Service and handler tests run against it instead of a live database.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"oiko/internal/models"
	"oiko/internal/store"
)

// Store holds every collection behind one mutex.
type Store struct {
	mu          sync.Mutex
	users       map[primitive.ObjectID]models.User
	products    map[primitive.ObjectID]models.Product
	orders      map[primitive.ObjectID]models.Order
	designs     map[primitive.ObjectID]models.Design
	subscribers map[string]models.Subscriber
	trials      map[primitive.ObjectID]models.TrialRequest
	claims      []models.RewardClaim

	// FailClaimCreate and FailOrderCreate make the matching Create fail, for
	// compensation tests.
	FailClaimCreate error
	FailOrderCreate error
}

func New() *Store {
	return &Store{
		users:       map[primitive.ObjectID]models.User{},
		products:    map[primitive.ObjectID]models.Product{},
		orders:      map[primitive.ObjectID]models.Order{},
		designs:     map[primitive.ObjectID]models.Design{},
		subscribers: map[string]models.Subscriber{},
		trials:      map[primitive.ObjectID]models.TrialRequest{},
	}
}

func (s *Store) Users() *Users { return &Users{s} }
func (s *Store) Products() *Products { return &Products{s} }
func (s *Store) Orders() *Orders { return &Orders{s} }
func (s *Store) Designs() *Designs { return &Designs{s} }
func (s *Store) Subscribers() *Subscribers { return &Subscribers{s} }
func (s *Store) Trials() *Trials { return &Trials{s} }
func (s *Store) RewardClaims() *RewardClaims { return &RewardClaims{s} }

func window[T any](items []T, page store.Page) []T {
	if page.Limit < 1 {
		return items
	}
	start := page.Skip()
	if start >= int64(len(items)) {
		return []T{}
	}
	end := start + page.Limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

/* =========================
   USERS
========================= */

type Users struct{ s *Store }

var _ store.UserStore = (*Users)(nil)

func (u *Users) Create(_ context.Context, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	u.s.users[user.ID] = *user
	return nil
}

func (u *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (u *Users) mutate(id primitive.ObjectID, fn func(*models.User)) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = time.Now()
	u.s.users[id] = user
	return &user, nil
}

func (u *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, update store.ProfileUpdate) (*models.User, error) {
	return u.mutate(id, func(user *models.User) {
		if update.Name != nil {
			user.Name = *update.Name
		}
		if update.Phone != nil {
			user.Phone = *update.Phone
		}
		if update.Birthday != nil {
			b := *update.Birthday
			user.Birthday = &b
		}
	})
}

func (u *Users) AdminUpdate(_ context.Context, id primitive.ObjectID, update store.AdminUserUpdate) (*models.User, error) {
	return u.mutate(id, func(user *models.User) {
		if update.Name != nil {
			user.Name = *update.Name
		}
		if update.Role != nil {
			user.Role = *update.Role
		}
		if update.FragmentPoints != nil {
			user.FragmentPoints = *update.FragmentPoints
		}
	})
}

func (u *Users) SetAddresses(_ context.Context, id primitive.ObjectID, addresses []models.Address) error {
	_, err := u.mutate(id, func(user *models.User) {
		user.Addresses = append([]models.Address(nil), addresses...)
	})
	return err
}

func (u *Users) SetCart(_ context.Context, id primitive.ObjectID, cart []models.CartItem) error {
	_, err := u.mutate(id, func(user *models.User) {
		user.Cart = append([]models.CartItem(nil), cart...)
	})
	return err
}

func (u *Users) AddToWishlist(_ context.Context, id primitive.ObjectID, productID string) error {
	_, err := u.mutate(id, func(user *models.User) {
		for _, existing := range user.Wishlist {
			if existing == productID {
				return
			}
		}
		user.Wishlist = append(user.Wishlist, productID)
	})
	return err
}

func (u *Users) RemoveFromWishlist(_ context.Context, id primitive.ObjectID, productID string) error {
	_, err := u.mutate(id, func(user *models.User) {
		kept := user.Wishlist[:0:0]
		for _, existing := range user.Wishlist {
			if existing != productID {
				kept = append(kept, existing)
			}
		}
		user.Wishlist = kept
	})
	return err
}

func (u *Users) AddPoints(_ context.Context, id primitive.ObjectID, points int) error {
	_, err := u.mutate(id, func(user *models.User) {
		user.FragmentPoints += points
	})
	return err
}

func (u *Users) DeductPoints(_ context.Context, id primitive.ObjectID, points int) error {
	_, err := u.mutate(id, func(user *models.User) {
		user.FragmentPoints -= points
		if user.FragmentPoints < 0 {
			user.FragmentPoints = 0
		}
	})
	return err
}

func (u *Users) ResetPointsIfAtLeast(_ context.Context, id primitive.ObjectID, min int) (int, bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok || user.FragmentPoints < min {
		return 0, false, nil
	}
	previous := user.FragmentPoints
	user.FragmentPoints = 0
	u.s.users[id] = user
	return previous, true, nil
}

func (u *Users) AwardBirthday(_ context.Context, id primitive.ObjectID, year, bonus int) (int, bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok || user.LastBirthdayRewardYear == year {
		return 0, false, nil
	}
	user.FragmentPoints += bonus
	user.LastBirthdayRewardYear = year
	u.s.users[id] = user
	return user.FragmentPoints, true, nil
}

func (u *Users) List(_ context.Context, filter store.UserFilter, page store.Page) ([]models.User, int64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make([]models.User, 0)
	for _, user := range u.s.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.Search != "" && !containsFold(user.Name, filter.Search) && !containsFold(user.Email, filter.Search) {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, page), int64(len(out)), nil
}

func (u *Users) Stats(_ context.Context, since time.Time) (store.UserStats, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var stats store.UserStats
	for _, user := range u.s.users {
		stats.Total++
		if user.Role == models.RoleAdmin {
			stats.Admins++
		}
		if user.FragmentPoints > 0 {
			stats.WithPoints++
		}
		if !user.CreatedAt.Before(since) {
			stats.NewSince++
		}
	}
	return stats, nil
}

/* =========================
   PRODUCTS
========================= */

type Products struct{ s *Store }

var _ store.ProductStore = (*Products)(nil)

func (p *Products) Create(_ context.Context, product *models.Product) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, existing := range p.s.products {
		if product.Slug != "" && existing.Slug == product.Slug {
			return store.ErrDuplicate
		}
	}
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.InStock = product.Stock > 0
	p.s.products[product.ID] = *product
	return nil
}

func (p *Products) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	product, ok := p.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.InStock = product.Stock > 0
	return &product, nil
}

func (p *Products) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, product := range p.s.products {
		if product.Slug == slug {
			found := product
			found.InStock = found.Stock > 0
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (p *Products) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := p.s.products[id]; ok {
			product.InStock = product.Stock > 0
			out = append(out, product)
		}
	}
	return out, nil
}

func (p *Products) List(_ context.Context, filter store.ProductFilter, page store.Page) ([]models.Product, int64, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := make([]models.Product, 0)
	for _, product := range p.s.products {
		if !filter.IncludeInactive && !product.IsActive {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.Featured != nil && product.Featured != *filter.Featured {
			continue
		}
		if filter.Search != "" && !containsFold(product.Name, filter.Search) &&
			!containsFold(product.Description, filter.Search) && !containsFold(product.Category, filter.Search) {
			continue
		}
		if filter.MinPrice != nil && product.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && product.Price > *filter.MaxPrice {
			continue
		}
		product.InStock = product.Stock > 0
		out = append(out, product)
	}
	sort.Slice(out, func(i, j int) bool {
		switch filter.Sort {
		case "price_asc":
			return out[i].Price < out[j].Price
		case "price_desc":
			return out[i].Price > out[j].Price
		case "name":
			return out[i].Name < out[j].Name
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return window(out, page), int64(len(out)), nil
}

func (p *Products) Replace(_ context.Context, product *models.Product) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.products[product.ID]; !ok {
		return store.ErrNotFound
	}
	product.UpdatedAt = time.Now()
	product.InStock = product.Stock > 0
	p.s.products[product.ID] = *product
	return nil
}

func (p *Products) Delete(_ context.Context, id primitive.ObjectID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(p.s.products, id)
	return nil
}

func (p *Products) UpsertBySlug(_ context.Context, product *models.Product) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for id, existing := range p.s.products {
		if existing.Slug == product.Slug {
			product.ID = id
			product.CreatedAt = existing.CreatedAt
			p.s.products[id] = *product
			return nil
		}
	}
	product.ID = primitive.NewObjectID()
	p.s.products[product.ID] = *product
	return nil
}

func (p *Products) ReserveStock(_ context.Context, requests []store.StockRequest) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	// Validate everything before touching any stock, like an aborted transaction.
	needed := map[primitive.ObjectID]int{}
	for _, req := range requests {
		product, ok := p.s.products[req.ProductID]
		if !ok {
			return store.ErrNotFound
		}
		needed[req.ProductID] += req.Quantity
		if product.Stock < needed[req.ProductID] {
			return &store.InsufficientStockError{
				ProductID:   req.ProductID.Hex(),
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   req.Quantity,
			}
		}
	}
	for id, qty := range needed {
		product := p.s.products[id]
		product.Stock -= qty
		p.s.products[id] = product
	}
	return nil
}

func (p *Products) ReleaseStock(_ context.Context, requests []store.StockRequest) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, req := range requests {
		if product, ok := p.s.products[req.ProductID]; ok {
			product.Stock += req.Quantity
			p.s.products[req.ProductID] = product
		}
	}
	return nil
}

// Stock returns the stored stock of a product, for assertions.
func (p *Products) Stock(id primitive.ObjectID) int {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.products[id].Stock
}

/* =========================
   ORDERS
========================= */

type Orders struct{ s *Store }

var _ store.OrderStore = (*Orders)(nil)

func (o *Orders) Create(_ context.Context, order *models.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if o.s.FailOrderCreate != nil {
		return o.s.FailOrderCreate
	}
	for _, existing := range o.s.orders {
		if existing.OrderRef == order.OrderRef {
			return store.ErrDuplicate
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	o.s.orders[order.ID] = *order
	return nil
}

func (o *Orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &order, nil
}

func (o *Orders) FindByPaymentIntent(_ context.Context, paymentIntentID string) (*models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for _, order := range o.s.orders {
		if order.PaymentIntentID != "" && order.PaymentIntentID == paymentIntentID {
			found := order
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (o *Orders) List(_ context.Context, filter store.OrderFilter, page store.Page) ([]models.Order, int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	out := make([]models.Order, 0)
	for _, order := range o.s.orders {
		if filter.UserID != nil && (order.UserID == nil || *order.UserID != *filter.UserID) {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !containsFold(order.OrderRef, filter.Search) &&
			!containsFold(order.CustomerInfo.Email, filter.Search) && !containsFold(order.CustomerInfo.Name, filter.Search) {
			continue
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, page), int64(len(out)), nil
}

func (o *Orders) Update(_ context.Context, id primitive.ObjectID, update store.OrderUpdate) (*models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if len(update.FromPaymentStatus) > 0 && !slices.Contains(update.FromPaymentStatus, order.PaymentStatus) {
		return nil, store.ErrPaymentState
	}
	before := order
	if update.Status != nil {
		order.Status = *update.Status
	}
	if update.PaymentStatus != nil {
		order.PaymentStatus = *update.PaymentStatus
	}
	if update.TrackingNumber != nil {
		order.TrackingNumber = *update.TrackingNumber
	}
	order.UpdatedAt = time.Now()
	o.s.orders[id] = order
	return &before, nil
}

func (o *Orders) SetPointsCredited(_ context.Context, id primitive.ObjectID, value bool) (bool, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.orders[id]
	if !ok || order.PointsCredited == value {
		return false, nil
	}
	order.PointsCredited = value
	o.s.orders[id] = order
	return true, nil
}

func (o *Orders) Delete(_ context.Context, id primitive.ObjectID) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, ok := o.s.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(o.s.orders, id)
	return nil
}

func (o *Orders) Stats(_ context.Context) (store.OrderStats, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	stats := store.OrderStats{ByStatus: map[string]int64{}}
	for _, order := range o.s.orders {
		stats.Total++
		stats.ByStatus[order.Status]++
		if order.PaymentStatus == models.PaymentStatusPaid {
			stats.Revenue += order.Total
		}
	}
	return stats, nil
}

/* =========================
   DESIGNS
========================= */

type Designs struct{ s *Store }

var _ store.DesignStore = (*Designs)(nil)

func (d *Designs) Create(_ context.Context, design *models.Design) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if design.ID.IsZero() {
		design.ID = primitive.NewObjectID()
	}
	d.s.designs[design.ID] = *design
	return nil
}

func (d *Designs) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Design, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	out := make([]models.Design, 0)
	for _, design := range d.s.designs {
		if design.UserID == userID {
			out = append(out, design)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (d *Designs) FindOwned(_ context.Context, id, userID primitive.ObjectID) (*models.Design, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	design, ok := d.s.designs[id]
	if !ok || design.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &design, nil
}

func (d *Designs) Replace(_ context.Context, design *models.Design) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	existing, ok := d.s.designs[design.ID]
	if !ok || existing.UserID != design.UserID {
		return store.ErrNotFound
	}
	design.UpdatedAt = time.Now()
	d.s.designs[design.ID] = *design
	return nil
}

func (d *Designs) DeleteOwned(_ context.Context, id, userID primitive.ObjectID) (*models.Design, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	design, ok := d.s.designs[id]
	if !ok || design.UserID != userID {
		return nil, store.ErrNotFound
	}
	delete(d.s.designs, id)
	return &design, nil
}

/* =========================
   SUBSCRIBERS
========================= */

type Subscribers struct{ s *Store }

var _ store.SubscriberStore = (*Subscribers)(nil)

func (sb *Subscribers) Subscribe(_ context.Context, email, source string) (*models.Subscriber, bool, error) {
	sb.s.mu.Lock()
	defer sb.s.mu.Unlock()
	existing, ok := sb.s.subscribers[email]
	if ok && existing.Status == models.SubscriberActive {
		return &existing, false, nil
	}
	if !ok {
		existing = models.Subscriber{ID: primitive.NewObjectID(), Email: email}
	}
	existing.Status = models.SubscriberActive
	existing.IsActive = true
	existing.Source = source
	existing.SubscribedAt = time.Now()
	existing.UnsubscribedAt = nil
	sb.s.subscribers[email] = existing
	return &existing, true, nil
}

func (sb *Subscribers) Unsubscribe(_ context.Context, email string) error {
	sb.s.mu.Lock()
	defer sb.s.mu.Unlock()
	existing, ok := sb.s.subscribers[email]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	existing.Status = models.SubscriberUnsubscribed
	existing.IsActive = false
	existing.UnsubscribedAt = &now
	sb.s.subscribers[email] = existing
	return nil
}

func (sb *Subscribers) List(_ context.Context, status string, page store.Page) ([]models.Subscriber, int64, error) {
	sb.s.mu.Lock()
	defer sb.s.mu.Unlock()
	out := make([]models.Subscriber, 0)
	for _, sub := range sb.s.subscribers {
		if status == "" || sub.Status == status {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return window(out, page), int64(len(out)), nil
}

/* =========================
   TRIAL REQUESTS
========================= */

type Trials struct{ s *Store }

var _ store.TrialStore = (*Trials)(nil)

func (t *Trials) HasPending(_ context.Context, userID primitive.ObjectID) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, trial := range t.s.trials {
		if trial.UserID == userID && trial.Status == models.TrialStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *Trials) Create(_ context.Context, trial *models.TrialRequest) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if trial.ID.IsZero() {
		trial.ID = primitive.NewObjectID()
	}
	t.s.trials[trial.ID] = *trial
	return nil
}

func (t *Trials) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.TrialRequest, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := make([]models.TrialRequest, 0)
	for _, trial := range t.s.trials {
		if trial.UserID == userID {
			out = append(out, trial)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *Trials) List(_ context.Context, status string, page store.Page) ([]models.TrialRequest, int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := make([]models.TrialRequest, 0)
	for _, trial := range t.s.trials {
		if status == "" || trial.Status == status {
			out = append(out, trial)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, page), int64(len(out)), nil
}

func (t *Trials) UpdateStatus(_ context.Context, id primitive.ObjectID, status, note string) (*models.TrialRequest, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	trial, ok := t.s.trials[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	trial.Status = status
	if note != "" {
		trial.AdminNote = note
	}
	trial.UpdatedAt = time.Now()
	t.s.trials[id] = trial
	return &trial, nil
}

/* =========================
   REWARD CLAIMS
========================= */

type RewardClaims struct{ s *Store }

var _ store.RewardClaimStore = (*RewardClaims)(nil)

func (r *RewardClaims) Create(_ context.Context, claim *models.RewardClaim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailClaimCreate != nil {
		return r.s.FailClaimCreate
	}
	if claim.ID.IsZero() {
		claim.ID = primitive.NewObjectID()
	}
	r.s.claims = append(r.s.claims, *claim)
	return nil
}

func (r *RewardClaims) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.RewardClaim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.RewardClaim, 0)
	for _, claim := range r.s.claims {
		if claim.UserID == userID {
			out = append(out, claim)
		}
	}
	return out, nil
}
