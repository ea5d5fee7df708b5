package llm

import (
	"context"
	"errors"
)

// Client is the generation collaborator: a text completion service that is
// fallible, possibly slow, and prone to malformed output. Callers must
// treat parse failures as an expected condition.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrUnavailable indicates the collaborator could not be reached at all
// (no credentials, no network). Distinct from malformed output, which is
// recovered locally.
var ErrUnavailable = errors.New("generation collaborator unavailable")
