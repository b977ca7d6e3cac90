package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sgst/sgst-api/internal/model"
	"github.com/sgst/sgst-api/internal/queue"
	"github.com/sgst/sgst-api/internal/repository"
)

// memStore is an in-memory implementation of every store contract.  A
// single mutex stands in for the database's row locks.
type memStore struct {
	mu sync.Mutex

	users     map[uint64]model.User
	sessions  map[string]memSession
	companies map[uint64]model.Company
	workshops map[uint64]model.Workshop
	members   []model.Membership
	subs      []model.Subscription
	licenses  map[uint64]model.License
	nextID    uint64

	failMembership   bool
	// conflictOnInsert makes InsertWorkshop fail like the unique index would.
	conflictOnInsert bool
}

type memSession struct {
	userID uint64
	exp    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uint64]model.User{},
		sessions:  map[string]memSession{},
		companies: map[uint64]model.Company{},
		workshops: map[uint64]model.Workshop{},
		licenses:  map[uint64]model.License{},
	}
}

func (m *memStore) id() uint64 { m.nextID++; return m.nextID }

// UserStore

func (m *memStore) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = m.id()
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == strings.ToLower(email) {
			return x, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// SessionStore

func (m *memStore) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[hash] = memSession{userID: userID, exp: exp}
	return nil
}

func (m *memStore) Rotate(_ context.Context, hash string, now time.Time, next func(uint64) (repository.NewSession, error)) error {
	m.mu.Lock()
	s, ok := m.sessions[hash]
	if !ok {
		m.mu.Unlock()
		return repository.ErrSessionNotFound
	}
	delete(m.sessions, hash)
	if !now.Before(s.exp) {
		m.mu.Unlock()
		return repository.ErrSessionExpired
	}
	// next reads users, so release the lock while it runs; the row is
	// already gone, which is what makes the rotation single-use.
	m.mu.Unlock()
	ns, err := next(s.userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.sessions[hash] = s
		return err
	}
	m.sessions[ns.TokenHash] = memSession{userID: s.userID, exp: ns.ExpiresAt}
	return nil
}

func (m *memStore) DeleteByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hash)
	return nil
}

// TenantDirectory

func (m *memStore) CompanyIDForWorkshop(_ context.Context, workshopID uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[workshopID]
	if !ok || !w.IsActive {
		return 0, repository.ErrNotFound
	}
	return w.CompanyID, nil
}

func (m *memStore) ActiveMembership(_ context.Context, userID uint64) (model.MembershipContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.members {
		if x.UserID == userID && x.IsActive {
			return model.MembershipContext{WorkshopID: x.WorkshopID, Role: x.Role}, nil
		}
	}
	return model.MembershipContext{}, repository.ErrNotFound
}

func (m *memStore) MembershipIn(_ context.Context, userID, workshopID uint64) (model.MembershipContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.members {
		if x.UserID == userID && x.WorkshopID == workshopID && x.IsActive {
			return model.MembershipContext{WorkshopID: x.WorkshopID, Role: x.Role}, nil
		}
	}
	return model.MembershipContext{}, repository.ErrNotFound
}

func (m *memStore) ListWorkshops(_ context.Context, companyID uint64) ([]model.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Workshop{}
	for _, w := range m.workshops {
		if w.CompanyID == companyID && w.IsActive {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ActiveSubscription(_ context.Context, companyID uint64) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSub(companyID)
}

func (m *memStore) activeSub(companyID uint64) (model.Subscription, error) {
	for _, s := range m.subs {
		if s.CompanyID == companyID && s.IsActive {
			return s, nil
		}
	}
	return model.Subscription{}, repository.ErrNotFound
}

func (m *memStore) GetLicense(_ context.Context, id uint64) (model.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.licenses[id]
	if !ok {
		return model.License{}, repository.ErrNotFound
	}
	return l, nil
}

func (m *memStore) ListLicenses(context.Context) ([]model.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.License{}
	for _, l := range m.licenses {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateCompany(_ context.Context, userID uint64, c *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if u.CompanyID != nil {
		return repository.ErrUserHasCompany
	}
	c.ID = m.id()
	c.CreatorUserID = userID
	c.IsActive = true
	m.companies[c.ID] = *c
	id := c.ID
	u.CompanyID = &id
	m.users[userID] = u
	return nil
}

// WithCompanyLock holds the store mutex for the whole unit and applies the
// staged writes only when fn succeeds.
func (m *memStore) WithCompanyLock(_ context.Context, companyID uint64, fn func(repository.CompanyUnit) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.companies[companyID]; !ok || !c.IsActive {
		return repository.ErrNotFound
	}
	u := &memUnit{m: m, companyID: companyID}
	if err := fn(u); err != nil {
		return err
	}
	for _, w := range u.workshops {
		m.workshops[w.ID] = w
	}
	m.members = append(m.members, u.members...)
	m.subs = append(m.subs, u.subs...)
	return nil
}

type memUnit struct {
	m         *memStore
	companyID uint64
	workshops []model.Workshop
	members   []model.Membership
	subs      []model.Subscription
}

func (u *memUnit) WorkshopNameTaken(_ context.Context, name string) (bool, error) {
	for _, w := range u.m.workshops {
		if w.CompanyID == u.companyID && w.IsActive && w.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (u *memUnit) ActiveSubscription(context.Context) (model.Subscription, error) {
	return u.m.activeSub(u.companyID)
}

func (u *memUnit) MaxWorkshops(_ context.Context, licenseID uint64) (int, error) {
	l, ok := u.m.licenses[licenseID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return l.MaxWorkshops, nil
}

func (u *memUnit) CountActiveWorkshops(context.Context) (int, error) {
	n := 0
	for _, w := range u.m.workshops {
		if w.CompanyID == u.companyID && w.IsActive {
			n++
		}
	}
	return n, nil
}

func (u *memUnit) InsertWorkshop(_ context.Context, w *model.Workshop) error {
	if u.m.conflictOnInsert {
		return repository.ErrConflict
	}
	w.ID = u.m.id()
	w.CompanyID = u.companyID
	w.IsActive = true
	u.workshops = append(u.workshops, *w)
	return nil
}

func (u *memUnit) InsertMembership(_ context.Context, mb model.Membership) error {
	if u.m.failMembership {
		return io.ErrUnexpectedEOF
	}
	u.members = append(u.members, mb)
	return nil
}

func (u *memUnit) InsertSubscription(_ context.Context, s *model.Subscription) error {
	s.ID = u.m.id()
	s.CompanyID = u.companyID
	u.subs = append(u.subs, *s)
	return nil
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var testTokenConfig = TokenConfig{Secret: "test-secret", AccessTTL: 10 * time.Minute, RefreshTTL: 24 * time.Hour}

type fixture struct {
	store  *memStore
	events *recorder
	tokens *TokenService
	auth   *AuthService
	tenant *TenantService
}

func newFixture() *fixture {
	store := newMemStore()
	events := &recorder{}
	logger := discardLogger()
	tokens := NewTokenService(store, store, testTokenConfig, logger)
	return &fixture{
		store:  store,
		events: events,
		tokens: tokens,
		auth:   NewAuthService(store, store, tokens, 4, events, logger),
		tenant: NewTenantService(store, store, tokens, events, logger),
	}
}
