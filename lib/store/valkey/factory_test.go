package valkey

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFactoryValid(t *testing.T) {
	f := Factory{}

	t.Run("bad config", func(t *testing.T) {
		if err := f.Valid(json.RawMessage(`}`)); err == nil {
			t.Error("wanted parsing failure but got a successful result")
		}
	})

	for _, tt := range []struct {
		name string
		cfg  Config
		err  error
	}{
		{
			name: "missing url",
			cfg:  Config{},
			err:  ErrNoURL,
		},
		{
			name: "not a redis url",
			cfg:  Config{URL: "http://localhost:6379"},
			err:  ErrBadURL,
		},
		{
			name: "namespace with spaces",
			cfg:  Config{URL: "redis://localhost:6379/0", Namespace: "load test"},
			err:  ErrBadNamespace,
		},
		{
			name: "valid",
			cfg:  Config{URL: "redis://localhost:6379/0"},
		},
		{
			name: "valid with namespace",
			cfg:  Config{URL: "rediss://cache.internal:6380/2", Namespace: "lbsim-ci"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}

			if err := f.Valid(json.RawMessage(data)); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}

func TestKeyPrefix(t *testing.T) {
	if got := (Config{}).keyPrefix(); got != "" {
		t.Errorf("empty namespace gave prefix %q", got)
	}

	if got := (Config{Namespace: "fleet-a"}).keyPrefix(); got != "fleet-a:" {
		t.Errorf("wrong prefix: %q", got)
	}
}
