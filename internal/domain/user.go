// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxUserIDLen = 36

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrNotConnected  = errors.New("no live connection")
)

type (
	UserID string
	// ConnID identifies one live transport endpoint. Assigned by the
	// signal adapter on upgrade, never reused.
	ConnID string
)

// ParseUserID validates an externally supplied identity parameter.
func ParseUserID(raw string) (UserID, error) {
	if raw == "" {
		return "", ErrUserIDEmpty
	}
	if len(raw) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(raw), nil
}
