package simplify

import (
	"context"
	"fmt"
)

// Disabled is used when no API key is configured; every call fails
// with a clear error instead of panicking on a nil client.
type Disabled struct{}

// Simplify always returns a configuration error.
func (Disabled) Simplify(context.Context, string) (string, error) {
	return "", fmt.Errorf("simplifier is not configured: openai api key missing")
}
