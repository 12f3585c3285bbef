// Package domain contains entity without logic, just meta-data
package domain

import (
	"encoding/hex"
	"errors"
)

const MaxUserIDLen = 254

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the stable identity returned by the credential verifier.
type UserID string

func (u UserID) Validate() error {
	if len(u) == 0 {
		return ErrUserIDEmpty
	}
	if len(u) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	return nil
}

// PeerID is the handle clients use for WebRTC peers: the identity bytes in lowercase hex.
func (u UserID) PeerID() string {
	return hex.EncodeToString([]byte(u))
}
