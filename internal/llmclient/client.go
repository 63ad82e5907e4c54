// Package llmclient implements the LLMClient contract (spec §4.4):
// provider-agnostic completion and token-streaming, consumed by
// internal/compressor.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Options mirrors spec §3's LLMOptions.
type Options struct {
	Temperature   float64
	MaxTokens     int
	Model         string
	StopSequences []string
}

// ErrorKind enumerates the LLMError categories from spec §4.4.
type ErrorKind string

const (
	ErrorKindNetwork          ErrorKind = "NetworkError"
	ErrorKindAuth             ErrorKind = "AuthError"
	ErrorKindRateLimited      ErrorKind = "RateLimited"
	ErrorKindInvalidResponse  ErrorKind = "InvalidResponse"
	ErrorKindModelUnavailable ErrorKind = "ModelUnavailable"
)

// Error is the typed failure every Client operation returns on transport
// failure.
//
// Description:
//
//	Wraps a transport-level failure with the ErrorKind the core switches on
//	and the provider id that produced it. Callers distinguish kinds via
//	errors.As (or errors.Is against a Kind-only Error), never by inspecting
//	message text, since provider wire formats differ.
//
// Thread Safety: Error values are immutable after construction.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llmclient: %s (%s): %v", e.Kind, e.Provider, e.Err)
	}
	return fmt.Sprintf("llmclient: %s (%s)", e.Kind, e.Provider)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &Error{Kind: ErrorKindRateLimited}) style checks
// that only compare Kind, ignoring Provider/Err.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// StreamResult is delivered on a StreamComplete result channel once the
// stream has been fully consumed (or has failed).
type StreamResult struct {
	Err error
}

// Client is the provider-agnostic contract every backend implements.
//
// Description:
//
//	Abstracts a single LLM provider behind completion and streaming
//	operations so internal/compressor never imports a provider package
//	directly. Rate limiting, connection pooling, and back-pressure are each
//	implementation's own responsibility, not the core's.
//
// Thread Safety: Implementations must be safe for concurrent invocation of
// both methods.
type Client interface {
	// Provider returns this client's own declared provider id (e.g.
	// "openai", "anthropic"), per DESIGN.md's "Provider inference" note:
	// the core asks the client rather than guessing from the model string.
	Provider() string

	// Complete produces the full completion as one string.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)

	// StreamComplete produces incremental tokens on the returned channel,
	// which is closed when the stream ends (successfully or not); the
	// result channel then yields exactly one StreamResult carrying any
	// error. The stream is finite, not restartable, and consumed exactly
	// once. ctx cancellation propagates to the transport and stops the
	// stream.
	StreamComplete(ctx context.Context, prompt string, opts Options) (<-chan string, <-chan *StreamResult)
}

// Accumulate drains a StreamComplete token channel and its paired result
// channel into a single completed string.
//
// Description:
//
//	Concatenates every token in order, then blocks for the single
//	StreamResult that follows stream closure. This is the one place the
//	core accumulates and trims trailing whitespace per spec §4.4; tokens
//	themselves are never interpreted. Every Compressor phase that drives a
//	Client uses this helper rather than reading the channels directly.
//
// Inputs:
//   - tokenCh: Token channel from StreamComplete. Must be read to closure.
//   - resultCh: Paired result channel from StreamComplete.
//
// Outputs:
//   - string: The concatenated tokens with trailing whitespace trimmed.
//   - error: The StreamResult's error, if any; nil on a clean stream.
func Accumulate(tokenCh <-chan string, resultCh <-chan *StreamResult) (string, error) {
	var b strings.Builder
	for tok := range tokenCh {
		b.WriteString(tok)
	}
	result := <-resultCh
	if result != nil && result.Err != nil {
		return "", result.Err
	}
	return strings.TrimSpace(b.String()), nil
}

// InferProviderFromModel implements the substring heuristic from spec §6.
//
// Description:
//
//	Advisory metadata only, retained at the cache-metadata boundary for
//	legacy entries written before a Client declared its own provider. The
//	core itself never uses this to select a backend — each Client declares
//	its own Provider().
//
// Inputs:
//   - model: A model name/id string, e.g. "gpt-4o" or "claude-opus-4".
//
// Outputs:
//   - string: "openai", "anthropic", "llama", or "unknown".
func InferProviderFromModel(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "gpt"):
		return "openai"
	case strings.Contains(lower, "claude"):
		return "anthropic"
	case strings.Contains(lower, "llama"):
		return "llama"
	default:
		return "unknown"
	}
}
