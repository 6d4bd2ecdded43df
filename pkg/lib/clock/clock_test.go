package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	require.NoError(t, c.Sleep(context.Background(), 250*time.Millisecond))
	require.NoError(t, c.Sleep(context.Background(), 0))
	c.Advance(time.Second)

	assert.Equal(t, start.Add(1250*time.Millisecond), c.Now())
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 0}, c.Sleeps())
}

func TestFakeSleepHonoursCancelledContext(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, time.Unix(0, 0), c.Now())
}

func TestRealSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := time.Now()
	err := Real().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), time.Second)
}

func TestRealSleep(t *testing.T) {
	started := time.Now()
	require.NoError(t, Real().Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(started), 10*time.Millisecond)
}
