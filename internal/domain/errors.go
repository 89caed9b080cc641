package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the orchestration core. Provider-level failures are
// translated into these before they reach the response assembler; a raw
// provider error never escapes to the caller.
var (
	// ErrSessionExpired marks a request that arrived after the idle timeout.
	// Recoverable: the store re-creates the session transparently after the
	// expiry broadcast has run.
	ErrSessionExpired = errors.New("session expired")

	// ErrClassification marks a request whose intent could not be determined.
	// Recoverable: surfaced as an ask-to-rephrase outcome.
	ErrClassification = errors.New("could not determine request intent")

	// ErrLocationUnresolved marks an operation that needed coordinates before
	// resolution happened. Surfaced distinctly, never defaulted.
	ErrLocationUnresolved = errors.New("location not resolved to coordinates")

	// ErrInternalInconsistency marks state that must abort the request rather
	// than produce a misleading result, e.g. a merged unit missing its id.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// ProviderUnavailableError names the required provider whose failure sank the
// request.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// ErrorKind maps an error from the taxonomy to the string carried in
// AssembledResponse.Error. Unknown errors report as internal.
func ErrorKind(err error) string {
	var pu *ProviderUnavailableError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrClassification):
		return "classification_error"
	case errors.Is(err, ErrLocationUnresolved):
		return "location_unresolved"
	case errors.As(err, &pu):
		return "provider_unavailable"
	case errors.Is(err, ErrInternalInconsistency):
		return "internal_inconsistency"
	default:
		return "internal_inconsistency"
	}
}
