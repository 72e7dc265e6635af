package cachepolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(v int64) *int64 { return &v }

func TestIsStale_Boundary(t *testing.T) {
	thresholds := []time.Duration{time.Millisecond, time.Minute, time.Hour, 24 * time.Hour}
	nows := []int64{0, 1, 3_600_000, 1_700_000_000_000}

	for _, threshold := range thresholds {
		p := New(threshold)
		ms := threshold.Milliseconds()
		for _, now := range nows {
			assert.True(t, p.IsStale(ptr(now-ms), now), "exactly at threshold is stale (threshold=%s now=%d)", threshold, now)
			assert.False(t, p.IsStale(ptr(now-ms+1), now), "one milli before threshold is fresh (threshold=%s now=%d)", threshold, now)
			assert.True(t, p.IsStale(nil, now), "missing timestamp is stale")
		}
	}
}

func TestIsStale_OlderIsStale(t *testing.T) {
	p := New(time.Hour)
	now := int64(10 * time.Hour / time.Millisecond)
	assert.True(t, p.IsStale(ptr(now-2*time.Hour.Milliseconds()), now))
	assert.False(t, p.IsStale(ptr(now), now))
}

func TestShouldRefresh(t *testing.T) {
	p := New(time.Hour)
	now := int64(5 * time.Hour / time.Millisecond)
	fresh := ptr(now - time.Minute.Milliseconds())
	stale := ptr(now - 2*time.Hour.Milliseconds())

	tests := []struct {
		name        string
		force       bool
		lastUpdated *int64
		want        bool
	}{
		{"forced fresh", true, fresh, true},
		{"forced stale", true, stale, true},
		{"forced missing", true, nil, true},
		{"fresh", false, fresh, false},
		{"stale", false, stale, true},
		{"missing", false, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldRefresh(tt.force, tt.lastUpdated, now))
		})
	}
}

func TestNew_DefaultsNonPositive(t *testing.T) {
	assert.Equal(t, DefaultStaleAfter, New(0).StaleAfter)
	assert.Equal(t, DefaultStaleAfter, New(-time.Second).StaleAfter)
	assert.Equal(t, time.Minute, New(time.Minute).StaleAfter)
}
