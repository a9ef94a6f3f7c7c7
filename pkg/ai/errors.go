package ai

import (
	"context"
	"errors"
	"fmt"
)

// EmbeddingServiceError wraps a failure of the external embedding service,
// including vector dimension mismatches. No partial vector is ever cached
// when this error is returned.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationServiceError wraps a failure of the external generation service.
type GenerationServiceError struct {
	Err error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service: %v", e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// UpstreamTimeout reports that an external call exceeded its configured
// deadline. It is surfaced as a distinct failure rather than hanging the
// caller or masquerading as a service error.
type UpstreamTimeout struct {
	Op  string
	Err error
}

func (e *UpstreamTimeout) Error() string {
	return fmt.Sprintf("upstream timeout during %s: %v", e.Op, e.Err)
}

func (e *UpstreamTimeout) Unwrap() error { return e.Err }

// wrapUpstream classifies an error from an external call: deadline errors
// become UpstreamTimeout, everything else is wrapped with the given
// constructor. Context cancellation passes through untouched so callers can
// distinguish abandonment from failure.
func wrapUpstream(op string, err error, wrap func(error) error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamTimeout{Op: op, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return wrap(err)
}

// WrapEmbedding classifies an embedding-service error per the taxonomy above.
func WrapEmbedding(err error) error {
	return wrapUpstream("embedding", err, func(e error) error { return &EmbeddingServiceError{Err: e} })
}

// WrapGeneration classifies a generation-service error per the taxonomy above.
func WrapGeneration(err error) error {
	return wrapUpstream("generation", err, func(e error) error { return &GenerationServiceError{Err: e} })
}
