package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Kind classifies a backend failure
type Kind string

const (
	KindRateLimit Kind = "rate_limit"
	KindAuth      Kind = "auth"
	KindNetwork   Kind = "network"
	KindParse     Kind = "parse"
	KindOther     Kind = "other"
)

// BackendError is a failed remote call
type BackendError struct {
	Provider   string
	Kind       Kind
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (%d, %s): %v", e.Provider, e.StatusCode, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s API error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func newBackendError(provider string, status int, err error) *BackendError {
	var kind Kind
	if status != 0 {
		kind = statusKind(status)
	} else {
		kind = Classify(err)
	}
	return &BackendError{Provider: provider, Kind: kind, StatusCode: status, Err: err}
}

func statusKind(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code >= 500:
		return KindNetwork
	default:
		return KindOther
	}
}

// Classify maps an error from any backend to a failure kind
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return statusKind(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusKind(reqErr.HTTPStatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindParse
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return KindRateLimit
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		return KindAuth
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection") || strings.Contains(msg, "fetch"):
		return KindNetwork
	case strings.Contains(msg, "json") || strings.Contains(msg, "parse"):
		return KindParse
	default:
		return KindOther
	}
}
