// Package errors provides standardized error handling for namestream.
//
// Errors fall into three classes: Invalid (malformed client input, reject
// the request), Transient (cancellation, temporary pressure), and Fatal
// (contract violations and corruption, stop processing). The request
// pipeline is a pure deterministic computation, so there is no retry
// machinery here: the only recoverable condition is invalid input, and
// recovery means rejecting the request cleanly.
//
// Wrapping follows the pattern "component.method: action failed: %w" via
// Wrap and the classification-aware WrapInvalid, WrapTransient and
// WrapFatal. Classification survives wrapping chains and integrates with
// errors.Is and errors.As.
package errors
