package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
)

type Client interface {
	// CompleteJSON просит модель ответить одним JSON-объектом.
	CompleteJSON(ctx context.Context, system, prompt string) (string, error)
}
