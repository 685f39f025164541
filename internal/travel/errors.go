package travel

import (
	"fmt"
	"strings"
)

// ProviderErrorKind classifies why an adapter call ultimately failed.
type ProviderErrorKind string

const (
	ErrKindTimeout   ProviderErrorKind = "timeout"
	ErrKindHTTPError ProviderErrorKind = "http_error"
	ErrKindParse     ProviderErrorKind = "parse_error"
)

// ProviderError is returned by a provider adapter after its retry budget is
// exhausted.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AggregationError means one or more non-advisory sub-fetches failed. The
// whole aggregate is discarded; no partial record is persisted.
type AggregationError struct {
	Failures []error
}

func (e *AggregationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("aggregation failed (%d of 7 fetches): %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *AggregationError) Unwrap() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[0]
}

// PersistenceError wraps a failed store operation. Upsert failures are fatal
// to the request; cleanup failures are logged and swallowed by the caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
