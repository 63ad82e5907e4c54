package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type openaiStreamChunk struct {
	Choices []openaiStreamChoice `json:"choices"`
	Error   *openaiError         `json:"error,omitempty"`
}

type openaiStreamChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// OpenAIClient implements Client against the OpenAI Chat Completions API.
//
// Description:
//
//	Talks to the OpenAI Chat Completions REST endpoint directly over
//	net/http rather than through a provider SDK, so the module's dependency
//	surface stays limited to the HTTP/JSON primitives every Client needs.
//	Supports both a single-shot Complete and an SSE-based StreamComplete.
//
// Thread Safety: OpenAIClient is safe for concurrent use; http.Client pools
// its own connections.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewOpenAIClient constructs an OpenAIClient.
//
// Inputs:
//   - apiKey: Bearer token sent as "Authorization: Bearer <apiKey>".
//   - baseURL: Chat completions endpoint. Empty string uses the default
//     production endpoint.
//
// Outputs:
//   - *OpenAIClient: The configured client, ready for Complete/StreamComplete.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Provider returns "openai".
func (c *OpenAIClient) Provider() string { return "openai" }

// Complete sends a single non-streaming chat completion request.
//
// Description:
//
//	Wraps prompt as a single user-role message, issues one HTTP POST, and
//	decodes the first choice. A non-2xx status or a response-level error
//	field is translated into a typed *Error via classifyOpenAIStatus, so
//	callers never parse status codes themselves.
//
// Inputs:
//   - ctx: Cancels the in-flight HTTP request.
//   - prompt: The user-role message content.
//   - opts: Model, temperature, max tokens, and stop sequences.
//
// Outputs:
//   - string: The completion text, trimmed of surrounding whitespace.
//   - error: A *Error on transport, auth, rate-limit, or decode failure.
//
// Thread Safety: Safe for concurrent use.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	reqBody := openaiRequest{
		Model:       opts.Model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stop:        opts.StopSequences,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Kind: ErrorKindInvalidResponse, Provider: "openai", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: ErrorKindNetwork, Provider: "openai", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Kind: ErrorKindNetwork, Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	if err := classifyOpenAIStatus(resp.StatusCode); err != nil {
		return "", err
	}

	var parsed openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &Error{Kind: ErrorKindInvalidResponse, Provider: "openai", Err: err}
	}
	if parsed.Error != nil {
		return "", &Error{Kind: ErrorKindInvalidResponse, Provider: "openai", Err: fmt.Errorf("%s", SafeLogString(parsed.Error.Message))}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Kind: ErrorKindInvalidResponse, Provider: "openai", Err: fmt.Errorf("empty choices")}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// StreamComplete issues a streaming chat completion over server-sent events.
//
// Description:
//
//	Sends the same request shape as Complete with stream=true, then parses
//	each "data: " SSE line as an incremental delta, forwarding non-empty
//	content onto tokenCh as it arrives. The goroutine closes tokenCh and
//	sends exactly one StreamResult on resultCh when the "[DONE]" sentinel
//	arrives, the scanner exhausts, or ctx is cancelled.
//
// Inputs:
//   - ctx: Cancelling ctx stops the stream and yields a StreamResult.Err.
//   - prompt: The user-role message content.
//   - opts: Model, temperature, max tokens, and stop sequences.
//
// Outputs:
//   - <-chan string: Incremental completion tokens, closed at stream end.
//   - <-chan *StreamResult: Yields exactly one result once tokenCh closes.
//
// Thread Safety: Safe for concurrent use; each call owns its own goroutine
// and channel pair.
func (c *OpenAIClient) StreamComplete(ctx context.Context, prompt string, opts Options) (<-chan string, <-chan *StreamResult) {
	tokenCh := make(chan string, 64)
	resultCh := make(chan *StreamResult, 1)

	go func() {
		defer close(tokenCh)
		defer close(resultCh)

		reqBody := openaiRequest{
			Model:       opts.Model,
			Messages:    []openaiMessage{{Role: "user", Content: prompt}},
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			Stop:        opts.StopSequences,
			Stream:      true,
		}
		payload, err := json.Marshal(reqBody)
		if err != nil {
			resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindInvalidResponse, Provider: "openai", Err: err}}
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "openai", Err: err}}
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "openai", Err: err}}
			return
		}
		defer resp.Body.Close()

		if err := classifyOpenAIStatus(resp.StatusCode); err != nil {
			resultCh <- &StreamResult{Err: err}
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "openai", Err: ctx.Err()}}
				return
			default:
			}

			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			if data == "[DONE]" {
				resultCh <- &StreamResult{}
				return
			}
			var chunk openaiStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindInvalidResponse, Provider: "openai", Err: fmt.Errorf("%s", SafeLogString(chunk.Error.Message))}}
				return
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					tokenCh <- choice.Delta.Content
				}
			}
		}
		if err := scanner.Err(); err != nil {
			resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "openai", Err: err}}
			return
		}
		resultCh <- &StreamResult{}
	}()

	return tokenCh, resultCh
}

func classifyOpenAIStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: ErrorKindAuth, Provider: "openai", Err: fmt.Errorf("http %d", status)}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: ErrorKindRateLimited, Provider: "openai", Err: fmt.Errorf("http %d", status)}
	case status == http.StatusNotFound:
		return &Error{Kind: ErrorKindModelUnavailable, Provider: "openai", Err: fmt.Errorf("http %d", status)}
	default:
		return &Error{Kind: ErrorKindNetwork, Provider: "openai", Err: fmt.Errorf("http %d", status)}
	}
}
