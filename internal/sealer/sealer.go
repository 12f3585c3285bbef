// Package sealer encrypts chat text at rest with an AEAD and a static key.
// Every Seal call draws a fresh random nonce; the tag is stored detached.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	AES256GCM        = "aes-256-gcm"
	ChaCha20Poly1305 = "chacha20-poly1305"
)

var ErrOpen = errors.New("sealer: message authentication failed")

// Sealed is what gets persisted. Plaintext never is.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
}

type Sealer struct {
	aead cipher.AEAD
	name string
}

func New(name string, key []byte) (*Sealer, error) {
	var (
		aead cipher.AEAD
		err  error
	)
	switch name {
	case AES256GCM:
		if len(key) != 32 {
			return nil, fmt.Errorf("sealer: %s needs a 32 byte key, got %d", name, len(key))
		}
		block, berr := aes.NewCipher(key)
		if berr != nil {
			return nil, fmt.Errorf("sealer: %w", berr)
		}
		aead, err = cipher.NewGCM(block)
	case ChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("sealer: unknown cipher %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	return &Sealer{aead: aead, name: name}, nil
}

func (s *Sealer) Name() string { return s.name }

// Seal encrypts plaintext under a new nonce. additional binds the
// ciphertext to its row context so a row cannot be replayed elsewhere.
func (s *Sealer) Seal(plaintext, additional []byte) (Sealed, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("sealer: nonce: %w", err)
	}
	out := s.aead.Seal(nil, nonce, plaintext, additional)
	cut := len(out) - s.aead.Overhead()
	return Sealed{Ciphertext: out[:cut], Nonce: nonce, Tag: out[cut:]}, nil
}

func (s *Sealer) Open(sealed Sealed, additional []byte) ([]byte, error) {
	if len(sealed.Nonce) != s.aead.NonceSize() || len(sealed.Tag) != s.aead.Overhead() {
		return nil, ErrOpen
	}
	buf := make([]byte, 0, len(sealed.Ciphertext)+len(sealed.Tag))
	buf = append(buf, sealed.Ciphertext...)
	buf = append(buf, sealed.Tag...)
	plain, err := s.aead.Open(nil, sealed.Nonce, buf, additional)
	if err != nil {
		return nil, ErrOpen
	}
	return plain, nil
}
