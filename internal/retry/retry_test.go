package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("text file busy")

func fastConfig() Config {
	return Config{Attempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValue_SuccessAfterTransientErrors(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errBusy
		}
		return "ok", nil
	}, func(err error) bool { return errors.Is(err, errBusy) })

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errBusy
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errBusy)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableReturnedAsIs(t *testing.T) {
	permanent := errors.New("exit status 1")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return permanent
	}, func(err error) bool { return errors.Is(err, errBusy) })

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SingleAttemptKeepsError(t *testing.T) {
	err := Do(context.Background(), Config{}, func() error { return errBusy }, nil)
	assert.Same(t, errBusy, err)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{Attempts: 5, InitialBackoff: time.Hour}

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errBusy
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 35 * time.Millisecond}

	assert.Equal(t, time.Duration(0), Backoff(cfg, 0))
	assert.Equal(t, 10*time.Millisecond, Backoff(cfg, 1))
	assert.Equal(t, 20*time.Millisecond, Backoff(cfg, 2))
	assert.Equal(t, 35*time.Millisecond, Backoff(cfg, 3))
	assert.Equal(t, 35*time.Millisecond, Backoff(cfg, 10))

	uncapped := Config{InitialBackoff: time.Millisecond}
	assert.Equal(t, 8*time.Millisecond, Backoff(uncapped, 4))
}
