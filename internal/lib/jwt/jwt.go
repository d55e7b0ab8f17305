// Package jwt issues and parses the access and refresh tokens.
//
// Access and refresh tokens share a claim shape but are signed with
// different keys, so a token of one kind never parses as the other.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrSameKeys       = errors.New("access and refresh keys must differ")
	ErrEmptyKey       = errors.New("signing key is empty")
	ErrUnsupportedAlg = errors.New("unsupported signing algorithm")
	ErrNonPositiveTTL = errors.New("token ttl must be positive")
)

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a numeric user id.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}

	return id, nil
}

func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}

	return c.ExpiresAt.Time
}

type Codec struct {
	method     jwt.SigningMethod
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Codec)

// WithClock overrides time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func New(
	alg string,
	accessKey, refreshKey string,
	accessTTL, refreshTTL time.Duration,
	opts ...Option,
) (*Codec, error) {
	const op = "jwt.New"

	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedAlg, alg)
	}

	if accessKey == "" || refreshKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyKey)
	}

	if accessKey == refreshKey {
		return nil, fmt.Errorf("%s: %w", op, ErrSameKeys)
	}

	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNonPositiveTTL)
	}

	c := &Codec{
		method:     method,
		accessKey:  []byte(accessKey),
		refreshKey: []byte(refreshKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Codec) IssueAccess(subject, username string) (string, Claims, error) {
	return c.issue(subject, username, c.accessKey, c.accessTTL)
}

func (c *Codec) IssueRefresh(subject, username string) (string, Claims, error) {
	return c.issue(subject, username, c.refreshKey, c.refreshTTL)
}

func (c *Codec) ParseAccess(token string) (Claims, error) {
	return c.parse(token, c.accessKey)
}

// ParseRefresh verifies a refresh token and compares exp against the codec
// clock itself, whatever the library already decided.
func (c *Codec) ParseRefresh(token string) (Claims, error) {
	claims, err := c.parse(token, c.refreshKey)
	if err != nil {
		return Claims{}, err
	}

	if claims.ExpiresAt == nil || !c.now().Before(claims.ExpiresAt.Time) {
		return Claims{}, ErrTokenExpired
	}

	return claims, nil
}

func (c *Codec) issue(subject, username string, key []byte, ttl time.Duration) (string, Claims, error) {
	const op = "jwt.issue"

	now := c.now()

	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps two tokens minted in the same second distinct
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(key)
	if err != nil {
		return "", Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, claims, nil
}

func (c *Codec) parse(token string, key []byte) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}

		return Claims{}, ErrTokenInvalid
	}

	if !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}

	return claims, nil
}
