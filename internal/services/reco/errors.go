package reco

import "fmt"

// ValidationError reports a malformed or semantically incomplete request.
// It carries the offending field so handlers can return useful diagnostics.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UpstreamError wraps a transport or provider failure. It is never retried
// here; retry policy belongs to the caller.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream provider error: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ResolutionError reports model output that could not be coerced into any
// usable shape. Given the layered fallback parsing this should be rare.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve model output: %s", e.Reason)
}
