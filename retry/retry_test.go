package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/vidchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	p := DefaultPolicy()
	p.MaxAttempts = attempts
	p.BaseDelay = time.Millisecond
	return p
}

func TestPolicy_RetriesTransient(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return core.Errorf(core.KindRateLimited, "embed", "slow down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestPolicy_StopsOnPermanent(t *testing.T) {
	attempts := 0
	permanent := core.Errorf(core.KindAuth, "generate", "bad key")
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	})
	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, attempts, "permanent errors are not retried")
}

func TestPolicy_AllAttemptsFail(t *testing.T) {
	attempts := 0
	transient := core.Errorf(core.KindNetwork, "fetch", "reset")
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return transient
	})
	assert.Equal(t, transient, err, "should return the last error")
	assert.Equal(t, 3, attempts)
}

func TestPolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := fastPolicy(10).Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return core.Errorf(core.KindNetwork, "fetch", "reset")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 350*time.Millisecond, p.Delay(3), "capped")
	assert.Equal(t, 350*time.Millisecond, p.Delay(10))

	uncapped := Policy{BaseDelay: time.Millisecond}
	assert.Equal(t, 8*time.Millisecond, uncapped.Delay(4))
}

func TestWithBackoff(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "any error is retried")
}

func TestWithBackoff_InvalidMaxAttempts(t *testing.T) {
	attempts := 0
	for _, n := range []int{0, -1} {
		err := WithBackoff(context.Background(), func() error {
			attempts++
			return errors.New("error")
		}, n, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	}
	assert.Equal(t, 0, attempts, "should not attempt with maxAttempts <= 0")
}
