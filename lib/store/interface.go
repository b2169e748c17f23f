package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when the store implementation cannot find the value
	// for a given key.
	ErrNotFound = errors.New("store: key not found")

	// ErrCantDecode is returned when a store adaptor cannot decode the store format
	// to a value used by the code.
	ErrCantDecode = errors.New("store: can't decode value")

	// ErrCantEncode is returned when a store adaptor cannot encode the value into
	// the format that the store uses.
	ErrCantEncode = errors.New("store: can't encode value")

	// ErrBadConfig is returned when a store adaptor's configuration is invalid.
	ErrBadConfig = errors.New("store: configuration is invalid")

	// ErrUnknownBackend is returned by Build when no factory is registered
	// under the requested name.
	ErrUnknownBackend = errors.New("store: unknown backend")
)

// Interface defines the calls that lbsim uses to remember short-lived state,
// such as nonces it has already sent. It can be implemented with an in-memory
// or a shared remote backend.
type Interface interface {
	// Delete removes a value from the store by key.
	Delete(ctx context.Context, key string) error

	// Get returns the value of a key assuming that value exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set puts a value into the store that expires according to its expiry.
	Set(ctx context.Context, key string, value []byte, expiry time.Duration) error
}

// Reserver is implemented by backends that can atomically set a key only if
// it is not already present. Reserve reports whether the key was stored.
type Reserver interface {
	Reserve(ctx context.Context, key string, value []byte, expiry time.Duration) (bool, error)
}

// Reserve stores value under key only if key is absent. Backends that
// implement Reserver do this atomically; for the rest it is a Get followed by
// a Set, which is fine for a single sequential writer.
func Reserve(ctx context.Context, s Interface, key string, value []byte, expiry time.Duration) (bool, error) {
	if r, ok := s.(Reserver); ok {
		return r.Reserve(ctx, key, value, expiry)
	}

	_, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	if err := s.Set(ctx, key, value, expiry); err != nil {
		return false, err
	}

	return true, nil
}

// Close releases s if its backend holds resources such as a connection
// pool. Backends without a Close method are left alone.
func Close(s Interface) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func z[T any]() T { return *new(T) }

// JSON stores values of type T as JSON documents in Underlying, with every
// key namespaced by Prefix.
type JSON[T any] struct {
	Underlying Interface
	Prefix     string
}

func (j *JSON[T]) key(k string) string {
	return j.Prefix + k
}

func (j *JSON[T]) Delete(ctx context.Context, key string) error {
	return j.Underlying.Delete(ctx, j.key(key))
}

func (j *JSON[T]) Get(ctx context.Context, key string) (T, error) {
	data, err := j.Underlying.Get(ctx, j.key(key))
	if err != nil {
		return z[T](), err
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return z[T](), fmt.Errorf("%w: %w", ErrCantDecode, err)
	}

	return result, nil
}

func (j *JSON[T]) Set(ctx context.Context, key string, value T, expiry time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCantEncode, err)
	}

	return j.Underlying.Set(ctx, j.key(key), data, expiry)
}

// Reserve is the JSON counterpart of the package-level Reserve.
func (j *JSON[T]) Reserve(ctx context.Context, key string, value T, expiry time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrCantEncode, err)
	}

	return Reserve(ctx, j.Underlying, j.key(key), data, expiry)
}
