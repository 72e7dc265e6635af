package domain

// RefreshState is the in-memory projection of catalog refresh activity.
type RefreshState struct {
	LastUpdated  *int64 // epoch millis of the last successful refresh
	IsRefreshing bool
	LastError    error // nil after a successful refresh
}

// ErrorKind returns the kind of the last refresh error, if any.
func (s RefreshState) ErrorKind() (ErrorKind, bool) {
	if s.LastError == nil {
		return KindUnknown, false
	}
	return KindOf(s.LastError), true
}
