package sealer

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{AES256GCM, ChaCha20Poly1305} {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, testKey())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			sealed, err := s.Seal([]byte("secret"), []byte("session:7"))
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}
			if bytes.Contains(sealed.Ciphertext, []byte("secret")) {
				t.Fatal("ciphertext contains plaintext")
			}
			plain, err := s.Open(sealed, []byte("session:7"))
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if string(plain) != "secret" {
				t.Fatalf("got %q", plain)
			}
		})
	}
}

func TestNoncesAreFresh(t *testing.T) {
	s, err := New(AES256GCM, testKey())
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		sealed, err := s.Seal([]byte("same text"), nil)
		if err != nil {
			t.Fatal(err)
		}
		if seen[string(sealed.Nonce)] {
			t.Fatalf("nonce reused after %d messages", i)
		}
		seen[string(sealed.Nonce)] = true
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	s, _ := New(AES256GCM, testKey())
	sealed, _ := s.Seal([]byte("hello"), []byte("a"))

	flipped := sealed
	flipped.Ciphertext = append([]byte(nil), sealed.Ciphertext...)
	flipped.Ciphertext[0] ^= 0xff
	if _, err := s.Open(flipped, []byte("a")); err != ErrOpen {
		t.Fatalf("tampered ciphertext: %v", err)
	}
	if _, err := s.Open(sealed, []byte("b")); err != ErrOpen {
		t.Fatalf("wrong context: %v", err)
	}
	short := sealed
	short.Tag = sealed.Tag[:4]
	if _, err := s.Open(short, []byte("a")); err != ErrOpen {
		t.Fatalf("short tag: %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(AES256GCM, []byte("short")); err == nil {
		t.Fatal("short key accepted")
	}
	if _, err := New("rot13", testKey()); err == nil {
		t.Fatal("unknown cipher accepted")
	}
}
