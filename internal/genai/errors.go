package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
)

// FailureKind classifies why a completion failed.
type FailureKind string

const (
	FailureNotConfigured FailureKind = "not_configured"
	FailureTimeout       FailureKind = "timeout"
	FailureCanceled      FailureKind = "canceled"
	FailureQuota         FailureKind = "quota"
	FailureMalformed     FailureKind = "malformed"
	FailureUnavailable   FailureKind = "unavailable"
)

// ProviderError is returned by every failed completion.
type ProviderError struct {
	Kind FailureKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("genai %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or FailureUnavailable if err is not a ProviderError.
func KindOf(err error) FailureKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return FailureUnavailable
}

func classify(ctx context.Context, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ProviderError{Kind: FailureTimeout, Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &ProviderError{Kind: FailureCanceled, Err: err}
	case errors.Is(err, ErrNoChoicesReturned):
		return &ProviderError{Kind: FailureMalformed, Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &ProviderError{Kind: FailureQuota, Err: err}
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return &ProviderError{Kind: FailureNotConfigured, Err: err}
		}
	}
	return &ProviderError{Kind: FailureUnavailable, Err: err}
}
