package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"task-tracking-client/internal/validation"
)

// FailureKind classifies an operation failure so callers can render
// feedback without inspecting messages.
type FailureKind string

const (
	// KindUnauthorized means the policy check failed; no remote call was made.
	KindUnauthorized FailureKind = "unauthorized"
	// KindValidationFailed means the payload was rejected locally; no remote call was made.
	KindValidationFailed FailureKind = "validation_failed"
	// KindRemoteError means the server call failed; the upstream message is passed through.
	KindRemoteError FailureKind = "remote_error"
	// KindNotFound means the target task or subtask is not in the cache.
	KindNotFound FailureKind = "not_found"
)

// OpError is the tagged failure result of a coordinator operation.
type OpError struct {
	Kind    FailureKind
	Message string
	// Fields carries the field-level reasons for KindValidationFailed.
	Fields []validation.FieldError
	// StatusCode carries the upstream HTTP status for KindRemoteError, 0 otherwise.
	StatusCode int
}

func (e *OpError) Error() string {
	if e.Kind == KindValidationFailed && len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Error()
		}
		return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
	}
	return e.Message
}

// Kind extracts the failure kind from an error, or "" for nil/foreign errors.
func Kind(err error) FailureKind {
	var op *OpError
	if errors.As(err, &op) {
		return op.Kind
	}
	return ""
}

func unauthorized(action string) *OpError {
	return &OpError{Kind: KindUnauthorized, Message: "not allowed to " + action}
}

func notFound(what, id string) *OpError {
	return &OpError{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func validationFailed(fields []validation.FieldError) *OpError {
	return &OpError{Kind: KindValidationFailed, Fields: fields}
}
