package storage

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUserExists    = errors.New("user already exists")
	ErrItemNotFound  = errors.New("item not found")
	ErrKeyNotFound   = errors.New("key not found")
)
