// Package password hashes and verifies user passwords.
//
// Two encodings are supported: bcrypt (default) and argon2id in PHC string
// form. New hashes with the configured encoding and verifies either one.
package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	AlgBcrypt   = "bcrypt"
	AlgArgon2id = "argon2id"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown password algorithm")
	ErrInvalidHash      = errors.New("invalid password hash")
	ErrPasswordTooLong  = errors.New("password is longer than 72 bytes")
)

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// Context hashes new passwords with one encoding and verifies a digest with
// whichever encoding its prefix names.
type Context struct {
	hasher   Hasher
	bcrypt   Bcrypt
	argon2id Argon2id
}

// New returns a Context hashing with the configured algorithm name.
func New(alg string) (Context, error) {
	c := Context{
		bcrypt:   Bcrypt{Cost: bcrypt.DefaultCost},
		argon2id: Argon2id{Params: DefaultArgon2idParams()},
	}

	switch alg {
	case "", AlgBcrypt:
		c.hasher = c.bcrypt
	case AlgArgon2id:
		c.hasher = c.argon2id
	default:
		return Context{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}

	return c, nil
}

func (c Context) Hash(plain string) (string, error) {
	return c.hasher.Hash(plain)
}

func (c Context) Verify(plain, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return c.argon2id.Verify(plain, digest)
	case strings.HasPrefix(digest, "$2"):
		return c.bcrypt.Verify(plain, digest)
	default:
		return false, ErrInvalidHash
	}
}

type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(plain string) (string, error) {
	const op = "password.Bcrypt.Hash"

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), b.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(hash), nil
}

func (b Bcrypt) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
}
