package auth

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// memStore is an in-memory stand-in for the three repositories. It mirrors
// their contracts: lookup misses surface as sql.ErrNoRows and session
// closes are idempotent.
type memStore struct {
	mu sync.Mutex

	users    map[uint64]*model.User
	plans    map[uint64]*model.Plan
	sessions map[uint64]*model.Session

	nextUser    uint64
	nextPlan    uint64
	nextSession uint64

	recordErr error // injected failure for Record
	bumpErr   error // injected failure for BumpLoginCount
	touchErr  error // injected failure for Touch
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uint64]*model.User{},
		plans:    map[uint64]*model.Plan{},
		sessions: map[uint64]*model.Session{},
	}
}

// ----- UserStore -----

func (m *memStore) Create(_ context.Context, u model.User, password string, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return 0, err
	}
	m.nextUser++
	u.ID = m.nextUser
	u.Username = strings.ToLower(u.Username)
	u.Email = strings.ToLower(u.Email)
	u.PasswordHash = string(hash)
	m.users[u.ID] = &u
	return u.ID, nil
}

func (m *memStore) GetByIdentifier(_ context.Context, identifier string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			return *u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return *u, nil
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == strings.ToLower(username) || u.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountByPlanAndRole(_ context.Context, planID uint64, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.PlanID == planID && u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memStore) AttachPlan(_ context.Context, userID, planID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.PlanID = planID
	}
	return nil
}

func (m *memStore) BumpLoginCount(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bumpErr != nil {
		return m.bumpErr
	}
	if u, ok := m.users[userID]; ok {
		u.LoginCount++
	}
	return nil
}

// ----- PlanStore -----

func (m *memStore) CreatePlan(ctx context.Context, p model.Plan) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPlan++
	p.ID = m.nextPlan
	m.plans[p.ID] = &p
	return p.ID, nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.MainToken == strings.TrimSpace(token) {
			return *p, nil
		}
	}
	return model.Plan{}, sql.ErrNoRows
}

func (m *memStore) GetPlanByID(_ context.Context, id uint64) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plans[id]; ok {
		return *p, nil
	}
	return model.Plan{}, sql.ErrNoRows
}

// ----- SessionStore -----

func (m *memStore) Record(_ context.Context, userID uint64, token, ip, userAgent string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return 0, m.recordErr
	}
	m.nextSession++
	s := &model.Session{
		ID:           m.nextSession,
		UserID:       userID,
		SessionToken: token,
		IsActive:     true,
		LoginTime:    time.Now().UTC(),
		IPAddress:    ip,
		UserAgent:    userAgent,
	}
	m.sessions[s.ID] = s
	return s.ID, nil
}

func (m *memStore) FindActive(_ context.Context, userID uint64, token string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.SessionToken == token && s.IsActive {
			return *s, nil
		}
	}
	return model.Session{}, sql.ErrNoRows
}

func (m *memStore) Close(_ context.Context, id uint64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && s.IsActive {
		now := time.Now().UTC()
		s.IsActive = false
		s.LogoutTime = &now
		s.ClosedReason = reason
	}
	return nil
}

func (m *memStore) CloseMatching(_ context.Context, userID uint64, token, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.UserID == userID && s.SessionToken == token && s.IsActive {
			now := time.Now().UTC()
			s.IsActive = false
			s.LogoutTime = &now
			s.ClosedReason = reason
			n++
		}
	}
	return n, nil
}

func (m *memStore) CloseByToken(_ context.Context, token, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.SessionToken == token && s.IsActive {
			now := time.Now().UTC()
			s.IsActive = false
			s.LogoutTime = &now
			s.ClosedReason = reason
		}
	}
	return nil
}

func (m *memStore) Touch(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	if s, ok := m.sessions[id]; ok {
		now := time.Now().UTC()
		s.LastActivityAt = &now
	}
	return nil
}

func (m *memStore) LastLoginTime(_ context.Context, userID uint64) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	for _, s := range m.sessions {
		if s.UserID == userID && s.LoginTime.After(last) {
			last = s.LoginTime
		}
	}
	return last, nil
}

func (m *memStore) session(id uint64) model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sessions[id]
}

func (m *memStore) user(id uint64) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) plan(id uint64) model.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.plans[id]
}

// planStoreAdapter renames memStore methods onto the PlanStore interface
// (Create/GetByID collide with UserStore method names).
type planStoreAdapter struct{ m *memStore }

func (a planStoreAdapter) Create(ctx context.Context, p model.Plan) (uint64, error) {
	return a.m.CreatePlan(ctx, p)
}
func (a planStoreAdapter) GetByToken(ctx context.Context, token string) (model.Plan, error) {
	return a.m.GetByToken(ctx, token)
}
func (a planStoreAdapter) GetByID(ctx context.Context, id uint64) (model.Plan, error) {
	return a.m.GetPlanByID(ctx, id)
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (p *capturePublisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) byType(typ string) []queue.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.AuthEvent
	for _, ev := range p.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
