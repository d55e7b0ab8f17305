package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"auth_api/internal/lib/jwt"
	sl "auth_api/internal/lib/logger"
	"auth_api/internal/lib/password"
	"auth_api/internal/models"
	"auth_api/internal/storage"
)

const (
	TokenType = "bearer"

	revokedMarker = "revoked"
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	hasher      PasswordHasher
	tokens      TokenCodec
	store       KeyValueStore
	events      EventPublisher
	now         func() time.Time
}

type UserSaver interface {
	SaveUser(ctx context.Context, username, email, passHash string) (uid int64, err error)
}

type UserProvider interface {
	UserByID(ctx context.Context, id int64) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

type TokenCodec interface {
	IssueAccess(subject, username string) (string, jwt.Claims, error)
	IssueRefresh(subject, username string) (string, jwt.Claims, error)
	ParseAccess(token string) (jwt.Claims, error)
	ParseRefresh(token string) (jwt.Claims, error)
}

// KeyValueStore holds the access-token denylist and the presence register.
type KeyValueStore interface {
	Set(ctx context.Context, key, value string) error
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type Option func(*Auth)

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

// WithEvents sets the publisher for session events. Without it events are dropped.
func WithEvents(p EventPublisher) Option {
	return func(a *Auth) {
		if p != nil {
			a.events = p
		}
	}
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	hasher PasswordHasher,
	tokens TokenCodec,
	store KeyValueStore,
	opts ...Option,
) *Auth {
	a := &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		hasher:      hasher,
		tokens:      tokens,
		store:       store,
		events:      nopPublisher{},
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type LoginResult struct {
	User         models.User
	AccessToken  string
	RefreshToken string
	LastLogin    time.Time
}

// RegisterNewUser creates a user after checking email, then username.
// The checks only give a precise error early; a unique violation reported by
// storage is the authoritative conflict.
func (a *Auth) RegisterNewUser(ctx context.Context, username, email, pass string) (int64, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(
		slog.String("op", op),
	)

	log.Info("Registering new user")

	if err := a.ensureUnused(ctx, email, username); err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken) {
			log.Warn("User already exists", sl.Err(err))

			return 0, err
		}

		log.Error("failed to check user uniqueness", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			log.Info("password too long")
			return 0, ErrPasswordTooLong
		}

		log.Error("failed to generate password hash", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, username, email, passHash)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailTaken):
			log.Warn("email taken at insert")
			return 0, ErrEmailTaken
		case errors.Is(err, storage.ErrUsernameTaken):
			log.Warn("username taken at insert")
			return 0, ErrUsernameTaken
		case errors.Is(err, storage.ErrUserExists):
			log.Warn("User already exists")
			return 0, ErrUserExists
		}

		log.Error("Failed to save user", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("User registered", slog.Int64("uid", id))

	a.publish(ctx, log, models.Event{
		Type:       models.EventUserRegistered,
		UserID:     id,
		Username:   username,
		Email:      email,
		OccurredAt: a.now().UTC(),
	})

	return id, nil
}

func (a *Auth) ensureUnused(ctx context.Context, email, username string) error {
	_, err := a.usrProvider.UserByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case !errors.Is(err, storage.ErrUserNotFound):
		return err
	}

	_, err = a.usrProvider.UserByUsername(ctx, username)
	switch {
	case err == nil:
		return ErrUsernameTaken
	case !errors.Is(err, storage.ErrUserNotFound):
		return err
	}

	return nil
}

// Login verifies credentials and issues an access/refresh pair. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, username, pass string) (LoginResult, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("invalid credentials")
			return LoginResult{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := a.hasher.Verify(pass, user.PasswordHash)
	if err != nil {
		log.Error("stored password hash is unreadable", slog.Int64("uid", user.ID), sl.Err(err))
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		log.Info("invalid credentials")
		return LoginResult{}, ErrInvalidCredentials
	}

	subject := strconv.FormatInt(user.ID, 10)

	accessToken, _, err := a.tokens.IssueAccess(subject, user.Username)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, _, err := a.tokens.IssueRefresh(subject, user.Username)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	now := a.now().UTC()

	if err := a.markOnline(ctx, user.ID, now); err != nil {
		log.Warn("failed to update presence", sl.Err(err))
	}

	a.publish(ctx, log, models.Event{
		Type:       models.EventUserLoggedIn,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: now,
	})

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		LastLogin:    now,
	}, nil
}

// Refresh mints a new access token. The refresh token itself is neither
// rotated nor revoked and stays usable until it expires.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	claims, err := a.tokens.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Info("refresh token expired")
			return "", ErrRefreshTokenExpired
		}

		log.Info("invalid refresh token", sl.Err(err))
		return "", ErrInvalidRefreshToken
	}

	if claims.Subject == "" || claims.Username == "" {
		log.Warn("refresh token without subject or username")
		return "", ErrInvalidRefreshPayload
	}

	accessToken, _, err := a.tokens.IssueAccess(claims.Subject, claims.Username)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.String("sub", claims.Subject))

	return accessToken, nil
}

// Authenticate resolves a bearer access token to its user. The token must
// verify, be unexpired and not be on the denylist.
func (a *Auth) Authenticate(ctx context.Context, accessToken string) (models.User, jwt.Claims, error) {
	const op = "auth.Authenticate"

	log := a.log.With(
		slog.String("op", op),
	)

	claims, err := a.tokens.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.User{}, jwt.Claims{}, ErrTokenExpired
		}

		return models.User{}, jwt.Claims{}, ErrTokenInvalid
	}

	_, err = a.store.Get(ctx, blacklistKey(accessToken))
	switch {
	case err == nil:
		log.Info("revoked token presented", slog.String("sub", claims.Subject))
		return models.User{}, jwt.Claims{}, ErrTokenRevoked
	case !errors.Is(err, storage.ErrKeyNotFound):
		log.Error("failed to check token blacklist", sl.Err(err))
		return models.User{}, jwt.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := claims.UserID()
	if err != nil {
		log.Warn("token subject is not a user id", slog.String("sub", claims.Subject))
		return models.User{}, jwt.Claims{}, ErrTokenInvalid
	}

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("token subject has no user", slog.Int64("uid", userID))
			return models.User{}, jwt.Claims{}, ErrTokenInvalid
		}

		log.Error("failed to load user", sl.Err(err))
		return models.User{}, jwt.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, claims, nil
}

// Logout denylists an access token that Authenticate already accepted, for
// exactly its remaining lifetime, and marks the user offline.
func (a *Auth) Logout(ctx context.Context, accessToken string, claims jwt.Claims) (time.Time, error) {
	const op = "auth.Logout"

	log := a.log.With(
		slog.String("op", op),
	)

	userID, err := claims.UserID()
	if err != nil {
		return time.Time{}, ErrTokenInvalid
	}

	now := a.now().UTC()

	ttl := claims.ExpiresAtTime().Sub(now)
	if ttl < 0 {
		ttl = 0
	}

	// an already expired token cannot be replayed, nothing to store
	if ttl > 0 {
		if err := a.store.SetWithTTL(ctx, blacklistKey(accessToken), revokedMarker, ttl); err != nil {
			log.Error("failed to blacklist token", sl.Err(err))
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := a.markOffline(ctx, userID, now); err != nil {
		log.Warn("failed to update presence", sl.Err(err))
	}

	a.publish(ctx, log, models.Event{
		Type:       models.EventUserLoggedOut,
		UserID:     userID,
		Username:   claims.Username,
		OccurredAt: now,
	})

	log.Info("logout successful", slog.Int64("uid", userID), slog.Duration("blacklist_ttl", ttl))

	return now, nil
}

func (a *Auth) publish(ctx context.Context, log *slog.Logger, event models.Event) {
	if err := a.events.Publish(ctx, event); err != nil {
		log.Warn("failed to publish event", slog.String("type", event.Type), sl.Err(err))
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.Event) error { return nil }
