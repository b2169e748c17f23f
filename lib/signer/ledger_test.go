package signer

import (
	"errors"
	"testing"
	"time"

	"github.com/TecharoHQ/lbsim/internal"
	"github.com/TecharoHQ/lbsim/lib/store/memory"
)

func TestLedger(t *testing.T) {
	st := memory.New(t.Context())
	l := NewLedger(st, internal.SecretFingerprint("a"), 0, nil)

	const nonce = "deadbeefdeadbeefdeadbeefdeadbeef"

	if issued, err := l.Issued(t.Context(), nonce); err != nil || issued {
		t.Fatalf("fresh ledger reports nonce issued=%v err=%v", issued, err)
	}

	if err := l.Claim(t.Context(), nonce, "1700000000"); err != nil {
		t.Fatal(err)
	}

	if err := l.Claim(t.Context(), nonce, "1700000001"); !errors.Is(err, ErrNonceReused) {
		t.Errorf("wanted ErrNonceReused, got: %v", err)
	}

	if issued, err := l.Issued(t.Context(), nonce); err != nil || !issued {
		t.Errorf("claimed nonce not reported as issued: issued=%v err=%v", issued, err)
	}

	// Another secret sharing the same backend has its own namespace.
	other := NewLedger(st, internal.SecretFingerprint("b"), 0, nil)
	if err := other.Claim(t.Context(), nonce, "1700000000"); err != nil {
		t.Errorf("nonce collided across secrets: %v", err)
	}
}

func TestLedgerUsesInjectedClock(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0).UTC()
	l := NewLedger(memory.New(t.Context()), internal.SecretFingerprint("a"), 0, func() time.Time { return issuedAt })

	const nonce = "0123456789abcdef0123456789abcdef"
	if err := l.Claim(t.Context(), nonce, "1700000000"); err != nil {
		t.Fatal(err)
	}

	entry, err := l.db.Get(t.Context(), nonce)
	if err != nil {
		t.Fatal(err)
	}

	if !entry.IssuedAt.Equal(issuedAt) {
		t.Errorf("entry stamped with %s, wanted the injected %s", entry.IssuedAt, issuedAt)
	}
}

func TestSignerPassesClockToLedger(t *testing.T) {
	now := time.Unix(1700000123, 0).UTC()
	st := memory.New(t.Context())
	s := New(Options{
		SecretKey: "top-secret-api-key",
		Ledger:    st,
		Now:       func() time.Time { return now },
	})

	sr, err := s.SignRequest(t.Context(), []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}

	entry, err := s.ledger.db.Get(t.Context(), sr.Nonce)
	if err != nil {
		t.Fatal(err)
	}

	if !entry.IssuedAt.Equal(now) {
		t.Errorf("ledger ignored the signer clock: got %s, want %s", entry.IssuedAt, now)
	}
}
