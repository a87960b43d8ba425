package fetch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRelayUnavailable is returned by the relay method when no relay is configured
	ErrRelayUnavailable = errors.New("relay not configured")

	// ErrContentTooShort is returned when a method succeeds with too little content
	ErrContentTooShort = errors.New("content too short")

	// ErrDisallowed is returned by the direct method when robots.txt forbids the URL
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// AttemptError is the failure of one fetch method
type AttemptError struct {
	Method string
	Err    error
}

func (e AttemptError) Error() string {
	return e.Method + ": " + e.Err.Error()
}

// FetchError is returned when every fetch method failed for a URL
type FetchError struct {
	URL      string
	Attempts []AttemptError
}

func (e *FetchError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("fetch %s: no fetch methods configured", e.URL)
	}

	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return fmt.Sprintf("fetch %s: all methods failed: %s", e.URL, strings.Join(parts, "; "))
}

// Unwrap returns the last method's error
func (e *FetchError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
