package signer

import (
	"context"
	"errors"
	"time"

	"github.com/TecharoHQ/lbsim"
	"github.com/TecharoHQ/lbsim/lib/store"
)

var ErrNonceReused = errors.New("signer: nonce was already issued")

type ledgerEntry struct {
	Timestamp string    `json:"timestamp"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Ledger remembers which nonces were issued under one secret. Keys are
// namespaced by the secret's fingerprint so that processes with different
// secrets can share a backend.
type Ledger struct {
	db     store.JSON[ledgerEntry]
	window time.Duration
	now    func() time.Time
}

// NewLedger keeps nonces in st for window. A zero window means
// lbsim.NonceWindow and a nil now means time.Now.
func NewLedger(st store.Interface, fingerprint string, window time.Duration, now func() time.Time) *Ledger {
	if window <= 0 {
		window = lbsim.NonceWindow
	}

	if now == nil {
		now = time.Now
	}

	return &Ledger{
		db: store.JSON[ledgerEntry]{
			Underlying: st,
			Prefix:     "nonce:" + fingerprint + ":",
		},
		window: window,
		now:    now,
	}
}

// Claim records nonce. It returns ErrNonceReused if nonce is still in the
// ledger.
func (l *Ledger) Claim(ctx context.Context, nonce, timestamp string) error {
	ok, err := l.db.Reserve(ctx, nonce, ledgerEntry{
		Timestamp: timestamp,
		IssuedAt:  l.now(),
	}, l.window)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNonceReused
	}

	return nil
}

// Issued reports whether nonce is in the ledger.
func (l *Ledger) Issued(ctx context.Context, nonce string) (bool, error) {
	_, err := l.db.Get(ctx, nonce)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
