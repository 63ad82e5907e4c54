package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInferProviderFromModel(t *testing.T) {
	require.Equal(t, "openai", InferProviderFromModel("gpt-4o-mini"))
	require.Equal(t, "anthropic", InferProviderFromModel("claude-3-5-sonnet"))
	require.Equal(t, "llama", InferProviderFromModel("llama-3-70b"))
	require.Equal(t, "unknown", InferProviderFromModel("mystery-model"))
}

func TestErrorIsMatchesOnKindOnly(t *testing.T) {
	err := &Error{Kind: ErrorKindRateLimited, Provider: "openai"}
	target := &Error{Kind: ErrorKindRateLimited}
	require.True(t, err.Is(target))

	other := &Error{Kind: ErrorKindAuth}
	require.False(t, err.Is(other))
}

type mockClient struct {
	tokens []string
	err    error
}

func (m *mockClient) Provider() string { return "mock" }

func (m *mockClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	out := ""
	for _, t := range m.tokens {
		out += t
	}
	return out, nil
}

func (m *mockClient) StreamComplete(ctx context.Context, prompt string, opts Options) (<-chan string, <-chan *StreamResult) {
	tokenCh := make(chan string, len(m.tokens))
	resultCh := make(chan *StreamResult, 1)
	go func() {
		defer close(tokenCh)
		defer close(resultCh)
		for _, t := range m.tokens {
			tokenCh <- t
		}
		resultCh <- &StreamResult{Err: m.err}
	}()
	return tokenCh, resultCh
}

func TestAccumulateTrimsWhitespace(t *testing.T) {
	m := &mockClient{tokens: []string{" hello", " ", "world  "}}
	tokenCh, resultCh := m.StreamComplete(context.Background(), "p", Options{})
	out, err := Accumulate(tokenCh, resultCh)
	require.NoError(t, err)
	require.Equal(t, "hello  world", out)
}

func TestAccumulatePropagatesStreamError(t *testing.T) {
	m := &mockClient{err: &Error{Kind: ErrorKindNetwork, Provider: "mock"}}
	tokenCh, resultCh := m.StreamComplete(context.Background(), "p", Options{})
	_, err := Accumulate(tokenCh, resultCh)
	require.Error(t, err)
}
