// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type Username string

// NewUsername validates raw input from the handshake query.
func NewUsername(raw string) (Username, error) {
	if len(raw) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(raw) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return Username(raw), nil
}
