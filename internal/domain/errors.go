package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrSlugTaken      = errors.New("slug already exists")
	ErrDuplicate      = errors.New("duplicate external id")
	ErrInvalidLocator = errors.New("invalid locator")
)

// ProviderKind classifies outbound provider failures.
type ProviderKind string

const (
	KindAccessDenied   ProviderKind = "access_denied"   // 403
	KindQuotaExceeded  ProviderKind = "quota_exceeded"  // 429
	KindInvalidRequest ProviderKind = "invalid_request" // 400
	KindNotFound       ProviderKind = "not_found"       // 404
	KindUnauthorized   ProviderKind = "unauthorized"    // 401, pre-refresh
	KindUnreachable    ProviderKind = "unreachable"     // network / timeout
	KindUnknown        ProviderKind = "unknown"
)

// ProviderError wraps a provider failure with its raw message and original
// HTTP status for diagnostics.
type ProviderError struct {
	Provider   string
	Kind       ProviderKind
	Message    string
	HTTPStatus int
}

func (e *ProviderError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Provider, e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// ClassifyStatus maps an HTTP status to a ProviderKind.
func ClassifyStatus(status int) ProviderKind {
	switch status {
	case 400:
		return KindInvalidRequest
	case 401:
		return KindUnauthorized
	case 403:
		return KindAccessDenied
	case 404:
		return KindNotFound
	case 429:
		return KindQuotaExceeded
	default:
		return KindUnknown
	}
}

// IsProviderKind reports whether err is a ProviderError of the given kind.
func IsProviderKind(err error, kind ProviderKind) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// NormalizationError is recovered at item granularity: the orchestrator
// records it in ImportResult.Errors and keeps going.
type NormalizationError struct {
	Ref     string
	Message string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %s", e.Ref, e.Message)
}
