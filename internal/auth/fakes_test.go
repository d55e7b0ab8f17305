package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auth_api/internal/lib/jwt"
	sl "auth_api/internal/lib/logger"
	"auth_api/internal/lib/password"
	"auth_api/internal/models"
	"auth_api/internal/storage"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

type memUsers struct {
	mu      sync.Mutex
	users   map[int64]models.User
	nextID  int64
	saveErr error
	findErr error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[int64]models.User{}}
}

func (m *memUsers) SaveUser(_ context.Context, username, email, passHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return 0, m.saveErr
	}

	for _, u := range m.users {
		if u.Username == username {
			return 0, storage.ErrUsernameTaken
		}
		if u.Email == email {
			return 0, storage.ErrEmailTaken
		}
	}

	m.nextID++
	m.users[m.nextID] = models.User{
		ID:           m.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passHash,
		CreatedAt:    time.Now(),
	}

	return m.nextID, nil
}

func (m *memUsers) UserByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (m *memUsers) UserByUsername(_ context.Context, username string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memUsers) find(match func(models.User) bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return models.User{}, m.findErr
	}

	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (m *memUsers) delete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, id)
}

type memStore struct {
	mu     sync.Mutex
	vals   map[string]string
	ttls   map[string]time.Duration
	setErr error
	getErr error
}

func newMemStore() *memStore {
	return &memStore{
		vals: map[string]string{},
		ttls: map[string]time.Duration{},
	}
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setErr != nil {
		return s.setErr
	}

	s.vals[key] = value

	return nil
}

func (s *memStore) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setErr != nil {
		return s.setErr
	}

	s.vals[key] = value
	s.ttls[key] = ttl

	return nil
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return "", s.getErr
	}

	v, ok := s.vals[key]
	if !ok {
		return "", storage.ErrKeyNotFound
	}

	return v, nil
}

func (s *memStore) ttl(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.ttls[key]

	return d, ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)

	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}

	return out
}

var errBackend = errors.New("backend unavailable")

type env struct {
	auth   *Auth
	users  *memUsers
	store  *memStore
	events *recordingPublisher
	clock  *testClock
	codec  *jwt.Codec
}

func newEnv(t *testing.T) *env {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}

	codec, err := jwt.New("HS256", "access-key", "refresh-key", time.Hour, 7*24*time.Hour, jwt.WithClock(clock.Now))
	require.NoError(t, err)

	e := &env{
		users:  newMemUsers(),
		store:  newMemStore(),
		events: &recordingPublisher{},
		clock:  clock,
		codec:  codec,
	}

	e.auth = New(
		sl.Discard(),
		e.users,
		e.users,
		password.Bcrypt{Cost: bcrypt.MinCost},
		codec,
		e.store,
		WithClock(clock.Now),
		WithEvents(e.events),
	)

	return e
}

func (e *env) register(t *testing.T, username, email, pass string) int64 {
	t.Helper()

	id, err := e.auth.RegisterNewUser(context.Background(), username, email, pass)
	require.NoError(t, err)

	return id
}
