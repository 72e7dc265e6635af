// Package cachepolicy decides when the cached catalog is stale.
// Everything here is pure: no I/O, no clock reads.
package cachepolicy

import "time"

// DefaultStaleAfter is how long a refreshed catalog is served without refetching.
const DefaultStaleAfter = time.Hour

// Policy holds the staleness threshold.
type Policy struct {
	StaleAfter time.Duration
}

// New returns a Policy with the given threshold, or DefaultStaleAfter when
// staleAfter is not positive.
func New(staleAfter time.Duration) Policy {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return Policy{StaleAfter: staleAfter}
}

// IsStale reports whether a cache last updated at lastUpdated (epoch millis)
// is stale at now. A missing timestamp is stale; reaching the threshold
// exactly is stale.
func (p Policy) IsStale(lastUpdated *int64, now int64) bool {
	if lastUpdated == nil {
		return true
	}
	return now-*lastUpdated >= p.StaleAfter.Milliseconds()
}

// ShouldRefresh reports whether a refresh should run.
func (p Policy) ShouldRefresh(force bool, lastUpdated *int64, now int64) bool {
	if force {
		return true
	}
	return p.IsStale(lastUpdated, now)
}
