package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_AdvanceAndSet(t *testing.T) {
	c := NewManualMillis(1_000)
	assert.Equal(t, int64(1_000), NowMillis(c))

	c.Advance(2 * time.Second)
	assert.Equal(t, int64(3_000), NowMillis(c))

	c.Set(time.UnixMilli(42))
	assert.Equal(t, int64(42), NowMillis(c))
}

func TestSystem_IsWallClock(t *testing.T) {
	before := time.Now()
	now := System{}.Now()
	assert.False(t, now.Before(before))
}
