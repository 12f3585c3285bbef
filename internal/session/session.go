// Package session owns the session lifecycle: creation with a salted
// password, SessionToken minting and verification, and end accounting.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/domain"
	"github.com/dkeye/confer/internal/store"
)

// Ledger is the durable session record. *store.Store implements it.
type Ledger interface {
	CreateSession(ctx context.Context, row *store.Session) error
	GetSession(ctx context.Context, id uint) (*store.Session, error)
	EndSession(ctx context.Context, id uint, durationMs int64) error
	SessionIDsByCreator(ctx context.Context, creator string) ([]uint, error)
}

type Options struct {
	TokenSecret string
	TokenTTL    time.Duration
	Pepper      string
	BcryptCost  int
}

type Service struct {
	ledger Ledger
	dir    auth.Directory
	opts   Options
	now    func() time.Time
}

func New(ledger Ledger, dir auth.Directory, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{ledger: ledger, dir: dir, opts: opts, now: time.Now}
}

type tokenClaims struct {
	SessionID uint   `json:"sid"`
	HashPrint string `json:"pwh"`
	jwt.RegisteredClaims
}

// Create persists a new live session for creator and returns its token.
func (s *Service) Create(ctx context.Context, creator domain.UserID, raw string, isChat bool) (string, *domain.Session, error) {
	if raw == "" {
		return "", nil, apperr.BadInputf("password is required")
	}
	if err := s.dir.Resolve(ctx, creator); err != nil {
		return "", nil, err
	}

	salt, err := newSalt()
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Internal, err, "generate salt")
	}
	hash, err := bcrypt.GenerateFromPassword(s.secretInput(salt, raw), s.opts.BcryptCost)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Internal, err, "hash password")
	}

	row := &store.Session{
		CreatorID:    string(creator),
		IsChat:       isChat,
		PasswordHash: string(hash),
		Salt:         salt,
		DurationMs:   domain.ActiveDuration,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.ledger.CreateSession(ctx, row); err != nil {
		return "", nil, err
	}
	sess := toDomain(row)

	token, err := s.mint(sess)
	if err != nil {
		return "", nil, err
	}
	log.Info().Str("module", "session").Uint("sid", row.ID).Str("creator", string(creator)).Bool("chat", isChat).Msg("session created")
	return token, sess, nil
}

// Verify decodes token and returns the live record it points at. A
// malformed, expired or stale token is BadInput; a missing session is
// NotFound. Ended sessions are returned as-is for the caller to judge.
func (s *Service) Verify(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, apperr.BadInputf("session token is required")
	}
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.opts.TokenSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadInput, err, "invalid session token")
	}

	row, err := s.ledger.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(fingerprint(row.PasswordHash)), []byte(claims.HashPrint)) != 1 {
		return nil, apperr.BadInputf("session token does not match session %d", row.ID)
	}
	return toDomain(row), nil
}

// CheckPassword compares raw against the session's stored hash.
func (s *Service) CheckPassword(sess *domain.Session, raw string) error {
	err := bcrypt.CompareHashAndPassword([]byte(sess.PasswordHash), s.secretInput(sess.Salt, raw))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return apperr.Unauthorizedf("wrong session password")
	default:
		return apperr.Wrap(apperr.Internal, err, "compare password")
	}
}

// End records the session's duration. The ledger writes it at most once;
// a second call reports Gone.
func (s *Service) End(ctx context.Context, sess *domain.Session) error {
	d := s.now().Sub(sess.CreatedAt).Milliseconds()
	if d < 0 {
		d = 0
	}
	if err := s.ledger.EndSession(ctx, uint(sess.ID), d); err != nil {
		return err
	}
	sess.DurationMs = d
	log.Info().Str("module", "session").Uint("sid", uint(sess.ID)).Int64("duration_ms", d).Msg("session ended")
	return nil
}

func (s *Service) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row, err := s.ledger.GetSession(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	return toDomain(row), nil
}

func (s *Service) IDsByCreator(ctx context.Context, creator domain.UserID) ([]domain.SessionID, error) {
	ids, err := s.ledger.SessionIDsByCreator(ctx, string(creator))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionID, len(ids))
	for i, id := range ids {
		out[i] = domain.SessionID(id)
	}
	return out, nil
}

func (s *Service) mint(sess *domain.Session) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		SessionID: uint(sess.ID),
		HashPrint: fingerprint(sess.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	})
	signed, err := token.SignedString([]byte(s.opts.TokenSecret))
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, err, "sign session token")
	}
	return signed, nil
}

// secretInput folds salt, password and pepper into a fixed 64-byte input,
// keeping long passwords under bcrypt's 72-byte limit.
func (s *Service) secretInput(salt, raw string) []byte {
	sum := sha256.Sum256([]byte(salt + raw + s.opts.Pepper))
	return []byte(hex.EncodeToString(sum[:]))
}

// fingerprint binds a token to a password hash without embedding the hash.
func fingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func newSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func toDomain(row *store.Session) *domain.Session {
	return &domain.Session{
		ID:           domain.SessionID(row.ID),
		CreatorID:    domain.UserID(row.CreatorID),
		IsChat:       row.IsChat,
		PasswordHash: row.PasswordHash,
		Salt:         row.Salt,
		DurationMs:   row.DurationMs,
		CreatedAt:    row.CreatedAt,
	}
}
