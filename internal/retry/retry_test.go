package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	return cfg
}

func TestDo(t *testing.T) {
	permanent := errors.New("permanent")

	tests := []struct {
		name      string
		cfg       func() Config
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{"success first time", fastConfig, nil, 1, nil},
		{"success on retry", fastConfig, []error{errFlaky}, 2, nil},
		{"never more than one retry", func() Config {
			cfg := fastConfig()
			cfg.MaxRetries = 5
			return cfg
		}, []error{errFlaky, errFlaky, errFlaky}, 2, errFlaky},
		{"non retriable stops", func() Config {
			cfg := fastConfig()
			cfg.Retriable = func(err error) bool { return errors.Is(err, errFlaky) }
			return cfg
		}, []error{permanent}, 1, permanent},
		{"zero retries", func() Config {
			cfg := fastConfig()
			cfg.MaxRetries = 0
			return cfg
		}, []error{errFlaky}, 1, errFlaky},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), tt.cfg(), "op", func(context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Hour

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, "op", func(context.Context) error {
			calls++
			return errFlaky
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
