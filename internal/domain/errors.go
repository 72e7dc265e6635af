package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for domain operations
var (
	// ErrMovieNotFound indicates the requested movie is not cached
	ErrMovieNotFound = errors.New("movie not found")
)

// ErrorKind classifies failures reaching the remote catalog.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindOffline           // no route to host
	KindNetwork           // I/O failure reaching a reachable host
	KindHTTP              // non-2xx response
	KindSerialization     // body could not be decoded
)

func (k ErrorKind) String() string {
	switch k {
	case KindOffline:
		return "offline"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// RemoteError is a typed failure from the remote catalog source.
type RemoteError struct {
	Kind       ErrorKind
	StatusCode int // set for KindHTTP
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("remote catalog: http %d", e.StatusCode)
	}
	if e.Err == nil {
		return "remote catalog: " + e.Kind.String()
	}
	return fmt.Sprintf("remote catalog: %s: %v", e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Errors that do not carry a RemoteError are KindUnknown.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// IsCancellation reports whether err is a context cancellation or deadline.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Describe maps err to a human-readable category suitable for display.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMovieNotFound) {
		return "Movie not found"
	}
	var re *RemoteError
	if !errors.As(err, &re) {
		return "Something went wrong"
	}
	switch re.Kind {
	case KindOffline:
		return "You are offline"
	case KindNetwork:
		return "Network error, try again"
	case KindHTTP:
		switch {
		case re.StatusCode == http.StatusUnauthorized || re.StatusCode == http.StatusForbidden:
			return "Not authorized, check your API credentials"
		case re.StatusCode == http.StatusNotFound:
			return "Movie not found"
		case re.StatusCode == http.StatusTooManyRequests:
			return "Too many requests, slow down"
		case re.StatusCode >= 500:
			return fmt.Sprintf("Server error (%d)", re.StatusCode)
		default:
			return fmt.Sprintf("Request failed (%d)", re.StatusCode)
		}
	case KindSerialization:
		return "Unexpected response from server"
	default:
		return "Something went wrong"
	}
}
