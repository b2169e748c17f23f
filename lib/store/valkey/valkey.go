package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TecharoHQ/lbsim/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

// Store keeps values in a valkey (or redis) instance so that several lbsim
// processes signing with the same secret see each other's nonces.
type Store struct {
	rdb    *valkey.Client
	prefix string
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.rdb.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("can't delete from valkey: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, valkey.Nil) {
			return nil, fmt.Errorf("%w: %w", store.ErrNotFound, err)
		}

		return nil, fmt.Errorf("can't fetch from valkey: %w", err)
	}

	return result, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	if _, err := s.rdb.Set(ctx, s.key(key), value, expiry).Result(); err != nil {
		return fmt.Errorf("can't set %q in valkey: %w", key, err)
	}

	return nil
}

// Reserve uses SET NX so two processes can never both claim the same key.
func (s *Store) Reserve(ctx context.Context, key string, value []byte, expiry time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.key(key), value, expiry).Result()
	if err != nil {
		return false, fmt.Errorf("can't reserve %q in valkey: %w", key, err)
	}

	return ok, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}
