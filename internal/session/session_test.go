package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/domain"
	"github.com/dkeye/confer/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.OpenMemory(context.Background(), strings.ReplaceAll(t.Name(), "/", "_"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	svc := New(st, auth.OpenDirectory{}, Options{
		TokenSecret: "sekrit",
		TokenTTL:    time.Hour,
		Pepper:      "pepper",
		BcryptCost:  bcrypt.MinCost,
	})
	return svc, st
}

func TestCreateVerifyAndPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tok, sess, err := svc.Create(ctx, "alice", "pw1", true)
	if err != nil {
		t.Fatal(err)
	}
	if sess.HasEnded() || !sess.IsChat || sess.CreatorID != "alice" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if strings.Contains(tok, sess.PasswordHash) {
		t.Fatal("token must not carry the raw hash")
	}

	got, err := svc.Verify(ctx, tok)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != sess.ID {
		t.Fatalf("verify id = %d, want %d", got.ID, sess.ID)
	}
	if err := svc.CheckPassword(got, "pw1"); err != nil {
		t.Fatalf("right password: %v", err)
	}
	if err := svc.CheckPassword(got, "wrong"); !apperr.Is(err, apperr.Unauthorized) {
		t.Fatalf("wrong password = %v", err)
	}
}

func TestLongPasswordsAreAccepted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	long := strings.Repeat("x", 200)
	_, sess, err := svc.Create(ctx, "alice", long, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.CheckPassword(sess, long); err != nil {
		t.Fatal(err)
	}
	if err := svc.CheckPassword(sess, long[:199]); !apperr.Is(err, apperr.Unauthorized) {
		t.Fatalf("truncated password = %v", err)
	}
}

func TestCreateRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if _, _, err := svc.Create(ctx, "alice", "", false); !apperr.Is(err, apperr.BadInput) {
		t.Fatalf("empty password = %v", err)
	}
	if _, _, err := svc.Create(ctx, "", "pw", false); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("unknown creator = %v", err)
	}
}

func TestVerifyFailures(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	tok, sess, err := svc.Create(ctx, "alice", "pw1", false)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Verify(ctx, "garbage"); !apperr.Is(err, apperr.BadInput) {
		t.Fatalf("malformed = %v", err)
	}

	other := New(st, auth.OpenDirectory{}, Options{TokenSecret: "other", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})
	if _, err := other.Verify(ctx, tok); !apperr.Is(err, apperr.BadInput) {
		t.Fatalf("foreign secret = %v", err)
	}

	later := *svc
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := later.Verify(ctx, tok); !apperr.Is(err, apperr.BadInput) {
		t.Fatalf("expired = %v", err)
	}

	ghost, err := svc.mint(&domain.Session{ID: sess.ID + 100, PasswordHash: sess.PasswordHash})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(ctx, ghost); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("missing session = %v", err)
	}

	stale, err := svc.mint(&domain.Session{ID: sess.ID, PasswordHash: "not-the-hash"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(ctx, stale); !apperr.Is(err, apperr.BadInput) {
		t.Fatalf("hash mismatch = %v", err)
	}
}

func TestEndRecordsDurationOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, sess, err := svc.Create(ctx, "alice", "pw1", false)
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return sess.CreatedAt.Add(1500 * time.Millisecond) }
	if err := svc.End(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if sess.DurationMs != 1500 {
		t.Fatalf("duration = %d", sess.DurationMs)
	}
	if err := svc.End(ctx, sess); !apperr.Is(err, apperr.Gone) {
		t.Fatalf("second end = %v, want gone", err)
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasEnded() || got.DurationMs != 1500 {
		t.Fatalf("stored duration = %d", got.DurationMs)
	}
}

func TestIDsByCreator(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, who := range []domain.UserID{"alice", "bob", "alice"} {
		if _, _, err := svc.Create(ctx, who, "pw", false); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := svc.IDsByCreator(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] >= ids[1] {
		t.Fatalf("ids = %v", ids)
	}
}
