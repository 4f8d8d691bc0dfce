package contract

import (
	"context"
	"time"
)

// ObjectStore is durable key/value byte storage partitioned by owner
// identity through the key layout. Get returns ErrObjectNotFound for a
// missing key; every other failure is transport-level.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Researcher runs one remote research job to a terminal state and returns
// the structured report text. Failure and timeout both wrap
// ErrSpecialistFailure.
type Researcher interface {
	Generate(ctx context.Context, input ResearchInput) (string, error)
}

// Renderer converts structured report text into a paginated binary document.
type Renderer interface {
	Render(markdown string) ([]byte, error)
}

// Toolbox dispatches one named operation. The owner identity is always
// passed explicitly; the attachment is the raw upload bytes of the current
// request, if any. A non-nil error aborts the request (store-unavailable
// class); recoverable failures come back inside the ToolResult.
type Toolbox interface {
	Dispatch(ctx context.Context, owner string, call ToolCall, attachment []byte) (ToolResult, error)
}

// EventSink receives outbound events in emission order.
type EventSink interface {
	Emit(ev Event) error
}
