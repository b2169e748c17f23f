package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/TecharoHQ/lbsim/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

var (
	ErrNoURL        = errors.New("valkey.Config: no URL defined")
	ErrBadURL       = errors.New("valkey.Config: URL is invalid")
	ErrBadNamespace = errors.New("valkey.Config: namespace must not contain whitespace")
)

func init() {
	store.Register("valkey", Factory{})
}

// Factory builds valkey-backed stores from a JSON Config such as
// {"url": "redis://localhost:6379/0", "namespace": "lbsim"}.
type Factory struct{}

func parseConfig(data json.RawMessage) (*Config, error) {
	var config Config

	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return &config, nil
}

func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	opts, err := valkey.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	rdb := valkey.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("can't ping valkey at %s: %w", opts.Addr, err)
	}

	return &Store{
		rdb:    rdb,
		prefix: config.keyPrefix(),
	}, nil
}

func (Factory) Valid(data json.RawMessage) error {
	_, err := parseConfig(data)
	return err
}

// Config is the valkey storage backend configuration.
type Config struct {
	// URL is a redis:// or rediss:// connection string.
	URL string `json:"url" yaml:"url"`

	// Namespace is prepended to every key, so unrelated simulator fleets can
	// share one valkey database. Optional.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

func (c Config) keyPrefix() string {
	if c.Namespace == "" {
		return ""
	}

	return c.Namespace + ":"
}

func (c Config) Valid() error {
	var errs []error

	if c.URL == "" {
		errs = append(errs, ErrNoURL)
	} else if _, err := valkey.ParseURL(c.URL); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrBadURL, err))
	}

	if strings.ContainsFunc(c.Namespace, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
		errs = append(errs, ErrBadNamespace)
	}

	if len(errs) != 0 {
		return fmt.Errorf("valkey.Config: invalid config: %w", errors.Join(errs...))
	}

	return nil
}
