package http_server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"auth_api/internal/auth"
	itemsvc "auth_api/internal/items"
	"auth_api/internal/lib/jwt"
	sl "auth_api/internal/lib/logger"
	"auth_api/internal/lib/password"
	"auth_api/internal/models"
	"auth_api/internal/storage"
	"auth_api/internal/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userStore struct {
	mu    sync.Mutex
	users []models.User
}

func (s *userStore) SaveUser(_ context.Context, username, email, passHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return 0, storage.ErrUsernameTaken
		}
		if u.Email == email {
			return 0, storage.ErrEmailTaken
		}
	}

	id := int64(len(s.users) + 1)
	s.users = append(s.users, models.User{ID: id, Username: username, Email: email, PasswordHash: passHash})

	return id, nil
}

func (s *userStore) UserByID(_ context.Context, id int64) (models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s *userStore) UserByUsername(_ context.Context, username string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Username == username })
}

func (s *userStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *userStore) Users(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.User(nil), s.users...), nil
}

func (s *userStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = nil
}

func (s *userStore) find(match func(models.User) bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

type itemStore struct {
	mu    sync.Mutex
	items map[int64]models.Item
	next  int64
}

func (s *itemStore) CreateItem(_ context.Context, name string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	it := models.Item{ID: s.next, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.items[it.ID] = it

	return it, nil
}

func (s *itemStore) Item(_ context.Context, id int64) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return models.Item{}, storage.ErrItemNotFound
	}

	return it, nil
}

func (s *itemStore) Items(context.Context) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Item, 0, len(s.items))
	for i := int64(1); i <= s.next; i++ {
		if it, ok := s.items[i]; ok {
			out = append(out, it)
		}
	}

	return out, nil
}

func (s *itemStore) UpdateItem(_ context.Context, id int64, name string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return models.Item{}, storage.ErrItemNotFound
	}

	it.Name = name
	s.items[id] = it

	return it, nil
}

func (s *itemStore) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return storage.ErrItemNotFound
	}

	delete(s.items, id)

	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

type server struct {
	srv   *httptest.Server
	mr    *miniredis.Miniredis
	clock *clock
	users *userStore
}

func newServer(t *testing.T) *server {
	t.Helper()

	log := sl.Discard()
	clk := &clock{t: time.Now().UTC().Truncate(time.Second)}

	mr := miniredis.RunT(t)
	kv, err := redis.New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(kv.Close)

	codec, err := jwt.New("HS256", "access-key", "refresh-key", time.Hour, 7*24*time.Hour, jwt.WithClock(clk.Now))
	require.NoError(t, err)

	users := &userStore{}

	a := auth.New(log, users, users, password.Bcrypt{Cost: bcrypt.MinCost}, codec, kv, auth.WithClock(clk.Now))

	router := NewRouter(Deps{
		Log:              log,
		Validate:         validator.New(),
		Auth:             a,
		Users:            users,
		Items:            itemsvc.New(log, &itemStore{items: map[int64]models.Item{}}),
		Now:              clk.Now,
		DisableRateLimit: true,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &server{srv: srv, mr: mr, clock: clk, users: users}
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)

	return res.StatusCode, out
}

func TestSessionLifecycle(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.io", "password": "pw1",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "User registered successfully", body["message"])

	code, body = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice2", "email": "a@x.io", "password": "pw1",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email already registered", body["error"])

	code, body = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid username or password", body["error"])

	code, body = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "password": "pw1",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "bearer", body["token_type"])
	access := body["access_token"].(string)
	refresh := body["refresh_token"].(string)
	status := body["user_status"].(map[string]any)
	assert.Equal(t, true, status["is_online"])
	assert.Equal(t, s.clock.Now().Format(time.RFC3339), status["last_login"])

	code, body = s.do(t, http.MethodGet, "/users/status/1", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["is_online"])
	assert.Nil(t, body["offline_duration"])

	code, body = s.do(t, http.MethodGet, "/users/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "password_hash")

	code, body = s.do(t, http.MethodPost, "/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User logged out successfully", body["message"])
	assert.Equal(t, false, body["user_status"].(map[string]any)["is_online"])

	ttl := s.mr.TTL("blacklist:" + access)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)

	code, body = s.do(t, http.MethodGet, "/users/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token has been revoked", body["error"])

	s.clock.Advance(3 * time.Minute)

	code, body = s.do(t, http.MethodGet, "/users/status/1", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["is_online"])
	assert.Equal(t, "3 minutes ago", body["offline_duration"])

	// the refresh token outlives logout
	code, body = s.do(t, http.MethodPost, "/auth/token/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusOK, code)
	fresh := body["access_token"].(string)
	assert.NotEqual(t, access, fresh)

	code, _ = s.do(t, http.MethodGet, "/users/me", fresh, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRequestValidation(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bob", "email": "not-an-email", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/auth/token/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/users/status/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTokenFailures(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEmpty(t, body["error"])

	code, body = s.do(t, http.MethodGet, "/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid token", body["error"])

	code, body = s.do(t, http.MethodPost, "/auth/token/refresh", "", map[string]string{"refresh_token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", body["error"])

	code, body = s.do(t, http.MethodGet, "/users/status/99", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found in system", body["error"])
}

func TestAccessTokenExpiry(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.io", "password": "pw1",
	})
	require.Equal(t, http.StatusCreated, code)

	_, body := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "password": "pw1",
	})
	access := body["access_token"].(string)

	s.clock.Advance(time.Hour + time.Second)

	code, body = s.do(t, http.MethodGet, "/users/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token has expired", body["error"])
}

func TestItemsCRUD(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/items", "", map[string]string{"name": "widget"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Item created successfully", body["detail"])

	code, body = s.do(t, http.MethodPut, "/items/1", "", map[string]string{"name": "gadget"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "gadget", body["item"].(map[string]any)["name"])

	code, _ = s.do(t, http.MethodDelete, "/items/1", "", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/items/1", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPing(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", body["message"])
}

func TestUsersAllOmitsDigests(t *testing.T) {
	s := newServer(t)

	for _, name := range []string{"alice", "bob"} {
		code, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"username": name, "email": name + "@x.io", "password": "pw",
		})
		require.Equal(t, http.StatusCreated, code)
	}

	res, err := s.srv.Client().Get(s.srv.URL + "/users/all")
	require.NoError(t, err)
	defer res.Body.Close()

	var list []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "bob", list[1]["username"])
	assert.NotContains(t, list[0], "password_hash")
}

func TestTokenOfDeletedUserIsUnauthorized(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.io", "password": "pw1",
	})
	require.Equal(t, http.StatusCreated, code)

	_, body := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "password": "pw1",
	})
	access := body["access_token"].(string)

	s.users.clear()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/users/me"},
		{http.MethodPost, "/auth/logout"},
	} {
		code, body := s.do(t, tc.method, tc.path, access, nil)
		assert.Equal(t, http.StatusUnauthorized, code, tc.path)
		assert.Equal(t, "Invalid token", body["error"], tc.path)
	}
}

func TestRegisterOverlongPassword(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name     string
		password string
	}{
		{"ascii", strings.Repeat("p", 73)},
		// 40 runes pass the length tag but exceed 72 bytes
		{"multibyte", strings.Repeat("é", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
				"username": "alice", "email": "a@x.io", "password": tt.password,
			})
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEqual(t, "Internal error", body["error"])
		})
	}

	code, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.io", "password": strings.Repeat("p", 72),
	})
	assert.Equal(t, http.StatusCreated, code)
}
