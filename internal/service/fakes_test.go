package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/storage"
)

// memStore backs every fake repository. ops counts repository calls.
type memStore struct {
	mu  sync.Mutex
	seq int
	ops int

	users         []*domain.User
	terms         []domain.TermsAcceptance
	tokens        []*domain.Token
	sessions      []domain.Session
	kyc           []*domain.KYC
	verifications []domain.Verification
	admins        []*domain.Admin
	products      []*domain.Product
	images        []domain.ProductImage
	addresses     []domain.Address
	orders        []*domain.Order
	statuses      []domain.OrderStatusEntry
	carriers      []domain.Carrier
	trackers      []domain.DeliveryTracker

	failUserCreate error
	failKYCCreate  error
}

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) touch() {
	m.mu.Lock()
	m.ops++
	m.mu.Unlock()
}

func (m *memStore) opCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// fakeTx runs fn inline. Rollback is not simulated.
type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(ctx)
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, user *domain.User) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUserCreate != nil {
		return r.failUserCreate
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return uniqueErr("users_email_key")
		}
	}
	user.ID = r.nextID("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users = append(r.users, &cp)
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memUsers) AcceptTerms(_ context.Context, terms *domain.TermsAcceptance) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	terms.ID = r.nextID("terms")
	terms.AcceptedAt = time.Now()
	r.terms = append(r.terms, *terms)
	return nil
}

func (r memUsers) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	profile := &domain.UserProfile{User: *user}
	for i := range r.verifications {
		if r.verifications[i].UserID == id {
			v := r.verifications[i]
			profile.Verification = &v
		}
	}
	for _, k := range r.kyc {
		if k.UserID == id {
			cp := *k
			profile.KYC = &cp
		}
	}
	return profile, nil
}

type memTokens struct{ *memStore }

func (r memTokens) Create(_ context.Context, token *domain.Token) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == token.UserID && t.Type == token.Type && t.Status == domain.TokenStatusNotUsed {
			return uniqueErr("tokens_one_unused_per_type")
		}
	}
	token.ID = r.nextID("token")
	token.CreatedAt = time.Now()
	cp := *token
	r.tokens = append(r.tokens, &cp)
	return nil
}

func (r memTokens) RevokeUnused(_ context.Context, userID string, tokenType domain.TokenType) (int64, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && t.Type == tokenType && t.Status == domain.TokenStatusNotUsed {
			t.Status = domain.TokenStatusRevoked
			n++
		}
	}
	return n, nil
}

func (r memTokens) FindRedeemable(_ context.Context, userID, code string, tokenType domain.TokenType, now time.Time) (*domain.Token, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID && t.Code == code && t.Type == tokenType &&
			t.Status == domain.TokenStatusNotUsed && !t.Expired(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memTokens) MarkUsed(_ context.Context, id string) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.ID == id && t.Status == domain.TokenStatusNotUsed {
			now := time.Now()
			t.Status = domain.TokenStatusUsed
			t.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r memTokens) LatestByType(_ context.Context, userID string, tokenType domain.TokenType) (*domain.Token, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.tokens) - 1; i >= 0; i-- {
		t := r.tokens[i]
		if t.UserID == userID && t.Type == tokenType {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memTokens) RevokeExpired(_ context.Context, now time.Time) (int64, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.Status == domain.TokenStatusNotUsed && t.Expired(now) {
			t.Status = domain.TokenStatusRevoked
			n++
		}
	}
	return n, nil
}

func (m *memStore) unusedTokens(userID string, tokenType domain.TokenType) []domain.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Token
	for _, t := range m.tokens {
		if t.UserID == userID && t.Type == tokenType && t.Status == domain.TokenStatusNotUsed {
			out = append(out, *t)
		}
	}
	return out
}

type memSessions struct{ *memStore }

func (r memSessions) Create(_ context.Context, session *domain.Session) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	session.ID = r.nextID("session")
	session.CreatedAt = time.Now()
	r.sessions = append(r.sessions, *session)
	return nil
}

func (r memSessions) Latest(_ context.Context, userID string) (*domain.Session, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sessions) - 1; i >= 0; i-- {
		if r.sessions[i].UserID == userID {
			s := r.sessions[i]
			return &s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memKYC struct{ *memStore }

func (r memKYC) Create(_ context.Context, k *domain.KYC) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failKYCCreate != nil {
		return r.failKYCCreate
	}
	for _, existing := range r.kyc {
		if existing.UserID == k.UserID && existing.Status == domain.KYCStatusPending {
			return uniqueErr("kyc_one_pending_per_user")
		}
	}
	k.ID = r.nextID("kyc")
	k.CreatedAt = time.Now()
	cp := *k
	r.kyc = append(r.kyc, &cp)
	return nil
}

func (r memKYC) GetByIDForUpdate(_ context.Context, id string) (*domain.KYC, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.kyc {
		if k.ID == id {
			cp := *k
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memKYC) ActiveStatus(_ context.Context, userID string) (domain.KYCStatus, bool, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.kyc) - 1; i >= 0; i-- {
		k := r.kyc[i]
		if k.UserID == userID && (k.Status == domain.KYCStatusPending || k.Status == domain.KYCStatusApproved) {
			return k.Status, true, nil
		}
	}
	return "", false, nil
}

func (r memKYC) DeleteDeclined(_ context.Context, userID string) ([]string, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	kept := r.kyc[:0]
	for _, k := range r.kyc {
		if k.UserID == userID && k.Status == domain.KYCStatusDeclined {
			keys = append(keys, k.FrontKey, k.BackKey)
			continue
		}
		kept = append(kept, k)
	}
	r.kyc = kept
	return keys, nil
}

func (r memKYC) ListPending(_ context.Context) ([]domain.PendingKYC, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PendingKYC
	for _, k := range r.kyc {
		if k.Status != domain.KYCStatusPending {
			continue
		}
		entry := domain.PendingKYC{KYC: *k}
		for _, u := range r.users {
			if u.ID == k.UserID {
				entry.User = *u
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r memKYC) Decide(_ context.Context, id string, status domain.KYCStatus, adminID string) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.kyc {
		if k.ID == id && k.Status == domain.KYCStatusPending {
			now := time.Now()
			k.Status = status
			k.DecidedBy = &adminID
			k.DecidedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

type memVerifications struct{ *memStore }

func (r memVerifications) Create(_ context.Context, v *domain.Verification) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = r.nextID("verify")
	v.CreatedAt = time.Now()
	r.verifications = append(r.verifications, *v)
	return nil
}

type memAdmins struct{ *memStore }

func (r memAdmins) Create(_ context.Context, admin *domain.Admin) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == admin.Email {
			return uniqueErr("admins_email_key")
		}
	}
	admin.ID = r.nextID("admin")
	cp := *admin
	r.admins = append(r.admins, &cp)
	return nil
}

func (r memAdmins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memAdmins) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memProducts struct{ *memStore }

func (r memProducts) Create(_ context.Context, p *domain.Product) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID("product")
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	cp.Images = nil
	r.products = append(r.products, &cp)
	return nil
}

func (r memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memProducts) UpdateStock(_ context.Context, id string, stock int, status domain.ProductStatus) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ID == id {
			p.Stock = stock
			p.Status = status
			return nil
		}
	}
	return pgx.ErrNoRows
}

type memImages struct{ *memStore }

func (r memImages) Create(_ context.Context, image *domain.ProductImage) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	image.ID = r.nextID("image")
	image.CreatedAt = time.Now()
	r.images = append(r.images, *image)
	return nil
}

func (r memImages) ListByProduct(_ context.Context, productID string) ([]domain.ProductImage, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProductImage
	for _, img := range r.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	return out, nil
}

type memAddresses struct{ *memStore }

func (r memAddresses) Create(_ context.Context, a *domain.Address) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID("address")
	a.CreatedAt = time.Now()
	r.addresses = append(r.addresses, *a)
	return nil
}

func (r memAddresses) ListByUser(_ context.Context, userID string) ([]domain.Address, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Address{}
	for i := len(r.addresses) - 1; i >= 0; i-- {
		if r.addresses[i].UserID == userID {
			out = append(out, r.addresses[i])
		}
	}
	return out, nil
}

func (r memAddresses) GetForUser(_ context.Context, id, userID string) (*domain.Address, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.addresses {
		if a.ID == id && a.UserID == userID {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memOrders struct{ *memStore }

func (r memOrders) Create(_ context.Context, order *domain.Order) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.RefNo == order.RefNo {
			return uniqueErr("orders_ref_no_key")
		}
	}
	order.ID = r.nextID("order")
	order.CreatedAt = time.Now()
	cp := *order
	r.orders = append(r.orders, &cp)
	return nil
}

func (r memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memOrders) LockByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) SetCarrier(_ context.Context, id, carrierID string) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			o.CarrierID = &carrierID
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r memOrders) ListPurchases(_ context.Context, buyerID string) ([]domain.Purchase, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Purchase
	for _, o := range r.orders {
		if o.BuyerID != buyerID {
			continue
		}
		p := domain.Purchase{Order: *o}
		for _, prod := range r.products {
			if prod.ID == o.ProductID {
				p.ProductName = prod.Name
				p.ProductPrice = prod.Price
			}
		}
		for _, s := range r.statuses {
			if s.OrderID == o.ID {
				p.Status = s.Status
				p.StatusAt = s.CreatedAt
			}
		}
		for _, t := range r.trackers {
			if t.OrderID == o.ID {
				pos, st, at := t.Position, t.Status, t.CreatedAt
				p.TrackerPos, p.TrackerStatus, p.TrackerAt = &pos, &st, &at
			}
		}
		out = append(out, p)
	}
	return out, nil
}

type memHistory struct{ *memStore }

func (r memHistory) Create(_ context.Context, entry *domain.OrderStatusEntry) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextID("status")
	entry.CreatedAt = time.Now()
	r.statuses = append(r.statuses, *entry)
	return nil
}

func (r memHistory) Latest(_ context.Context, orderID string) (*domain.OrderStatusEntry, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.statuses) - 1; i >= 0; i-- {
		if r.statuses[i].OrderID == orderID {
			e := r.statuses[i]
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memHistory) ListByOrder(_ context.Context, orderID string) ([]domain.OrderStatusEntry, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderStatusEntry
	for _, e := range r.statuses {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) statusesOf(orderID string) []domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OrderStatus
	for _, e := range m.statuses {
		if e.OrderID == orderID {
			out = append(out, e.Status)
		}
	}
	return out
}

type memDelivery struct{ *memStore }

func (r memDelivery) GetCarrier(_ context.Context, id string) (*domain.Carrier, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carriers {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memDelivery) CreateTracker(_ context.Context, t *domain.DeliveryTracker) error {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID("tracker")
	t.CreatedAt = time.Now()
	r.trackers = append(r.trackers, *t)
	return nil
}

func (r memDelivery) ListTrackers(_ context.Context, orderID string) ([]domain.DeliveryTracker, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DeliveryTracker
	for _, t := range r.trackers {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out, nil
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{files: map[string][]byte{}} }

func (s *memStorage) Save(_ context.Context, folder, filename string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := storage.ObjectKey(folder, filename)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return key, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *memStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for k := range s.files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func upload(name, body string) *Upload {
	return &Upload{FileName: name, ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewBufferString(body)}
}

// recordingDispatcher keeps every published event.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.published {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
