// Package signer builds the authentication headers the leaderboard API
// expects on write requests.
//
// A request is signed by computing HMAC-SHA256, keyed by the shared secret,
// over the canonical message "{timestamp}:{nonce}:{body}". The timestamp is
// in unix seconds, the nonce is 16 random bytes in hex, and the body is the
// exact byte sequence that goes over the wire.
package signer

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/TecharoHQ/lbsim"
	"github.com/TecharoHQ/lbsim/internal"
	"github.com/TecharoHQ/lbsim/lib/store"
)

// NonceSize is the number of random bytes in a nonce. Hex encoding doubles it.
const NonceSize = 16

const maxNonceAttempts = 8

var (
	ErrNonceExhausted = errors.New("signer: could not draw an unused nonce")
	ErrShortRead      = errors.New("signer: random source returned too few bytes")
)

// CanonicalMessage returns the exact string that gets signed.
func CanonicalMessage(timestamp, nonce string, body []byte) string {
	return timestamp + ":" + nonce + ":" + string(body)
}

// Sign returns the hex-encoded HMAC-SHA256 of the canonical message for
// timestamp, nonce and body, keyed by secretKey.
func Sign(secretKey string, timestamp, nonce string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(CanonicalMessage(timestamp, nonce, body)))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateNonce returns NonceSize bytes from crypto/rand, hex-encoded.
func GenerateNonce() string {
	buf := make([]byte, NonceSize)
	// crypto/rand.Read never returns an error.
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

func nonceFrom(r io.Reader) (string, error) {
	buf := make([]byte, NonceSize)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return "", fmt.Errorf("%w: got %d of %d: %w", ErrShortRead, n, NonceSize, err)
	}
	return hex.EncodeToString(buf), nil
}

// SignedRequest is everything needed to authenticate one write request.
type SignedRequest struct {
	Timestamp string
	Nonce     string
	Body      []byte
	Signature string
}

// Header returns the headers the server checks, plus the JSON content type.
func (sr SignedRequest) Header() http.Header {
	h := make(http.Header, 4)
	h.Set("Content-Type", "application/json")
	h.Set(lbsim.HeaderTimestamp, sr.Timestamp)
	h.Set(lbsim.HeaderNonce, sr.Nonce)
	h.Set(lbsim.HeaderSignature, sr.Signature)
	return h
}

// Apply sets the signature headers on req. It does not touch the body; the
// caller must send sr.Body unchanged.
func (sr SignedRequest) Apply(req *http.Request) {
	for k, v := range sr.Header() {
		req.Header[k] = v
	}
}

// Options configures a Signer.
type Options struct {
	// SecretKey is the HMAC key shared with the leaderboard server.
	SecretKey string

	// Ledger, if set, records every nonce handed out so none is reused while
	// the server could still remember it.
	Ledger store.Interface

	// LedgerWindow is how long a nonce stays in the ledger. Defaults to
	// lbsim.NonceWindow.
	LedgerWindow time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	// Rand defaults to crypto/rand.
	Rand io.Reader

	Logger *slog.Logger
}

// Signer signs request bodies with a fixed secret.
type Signer struct {
	secret      string
	fingerprint string
	ledger      *Ledger
	now         func() time.Time
	rand        io.Reader
	logger      *slog.Logger
}

func New(opts Options) *Signer {
	result := &Signer{
		secret:      opts.SecretKey,
		fingerprint: internal.SecretFingerprint(opts.SecretKey),
		now:         opts.Now,
		rand:        opts.Rand,
		logger:      opts.Logger,
	}

	if result.now == nil {
		result.now = time.Now
	}

	if result.rand == nil {
		result.rand = rand.Reader
	}

	if result.logger == nil {
		result.logger = slog.Default()
	}

	if opts.Ledger != nil {
		result.ledger = NewLedger(opts.Ledger, result.fingerprint, opts.LedgerWindow, result.now)
	}

	return result
}

// Fingerprint identifies the secret without revealing it.
func (s *Signer) Fingerprint() string {
	return s.fingerprint
}

// SignRequest stamps body with the current unix time and a fresh nonce and
// signs it.
func (s *Signer) SignRequest(ctx context.Context, body []byte) (SignedRequest, error) {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)

	nonce, err := s.nextNonce(ctx, timestamp)
	if err != nil {
		return SignedRequest{}, err
	}

	return SignedRequest{
		Timestamp: timestamp,
		Nonce:     nonce,
		Body:      body,
		Signature: Sign(s.secret, timestamp, nonce, body),
	}, nil
}

func (s *Signer) nextNonce(ctx context.Context, timestamp string) (string, error) {
	for attempt := 1; attempt <= maxNonceAttempts; attempt++ {
		nonce, err := nonceFrom(s.rand)
		if err != nil {
			return "", err
		}

		if s.ledger == nil {
			return nonce, nil
		}

		err = s.ledger.Claim(ctx, nonce, timestamp)
		switch {
		case err == nil:
			return nonce, nil
		case errors.Is(err, ErrNonceReused):
			s.logger.Warn("nonce already issued under this secret, drawing another", "attempt", attempt)
			continue
		default:
			return "", fmt.Errorf("signer: can't record nonce: %w", err)
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrNonceExhausted, maxNonceAttempts)
}
