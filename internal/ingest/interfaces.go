package ingest

import (
	"context"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Publisher sends a notification payload to a topic. Implementations
// must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Simplifier rewrites an academic abstract into plain language.
type Simplifier interface {
	Simplify(ctx context.Context, description string) (string, error)
}
