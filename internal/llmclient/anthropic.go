package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion     = "2023-06-01"
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	StopSeqs    []string           `json:"stop_sequences,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *anthropicError         `json:"error,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// anthropicSSEEvent is the union of the small subset of Anthropic's
// streaming event payloads the client cares about: incremental text and
// the terminal error event.
type anthropicSSEEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *anthropicError `json:"error"`
}

// AnthropicClient implements Client against the Anthropic Messages API.
//
// Description:
//
//	Talks to the Anthropic Messages REST endpoint over raw net/http, with
//	line-by-line SSE parsing for the streaming path (processSSEStream /
//	handleSSEEvent). No Anthropic SDK is used; the wire format is small
//	enough to hand-roll and keep dependency-free like OpenAIClient.
//
// Thread Safety: AnthropicClient is safe for concurrent use; http.Client
// pools its own connections.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewAnthropicClient constructs an AnthropicClient.
//
// Inputs:
//   - apiKey: Sent as the "x-api-key" header.
//   - baseURL: Messages endpoint. Empty string uses the default production
//     endpoint.
//
// Outputs:
//   - *AnthropicClient: The configured client. Uses a 5-minute HTTP timeout
//     since streaming responses can run long.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicClient{
		// Streaming responses can run long; the teacher uses a 5-minute
		// client timeout specifically for its streaming path.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Provider returns "anthropic".
func (c *AnthropicClient) Provider() string { return "anthropic" }

func (c *AnthropicClient) buildRequest(prompt string, opts Options, stream bool) anthropicRequest {
	return anthropicRequest{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		StopSeqs:    opts.StopSequences,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Stream:      stream,
	}
}

func (c *AnthropicClient) newHTTPRequest(ctx context.Context, body anthropicRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	return req, nil
}

// Complete sends a single non-streaming Messages request.
//
// Description:
//
//	Wraps prompt as a single user-role message, issues one HTTP POST, and
//	concatenates every "text" content block in the response. A non-2xx
//	status or a response-level error field is translated into a typed
//	*Error via classifyAnthropicStatus.
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
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	httpReq, err := c.newHTTPRequest(ctx, c.buildRequest(prompt, opts, false))
	if err != nil {
		return "", &Error{Kind: ErrorKindNetwork, Provider: "anthropic", Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Kind: ErrorKindNetwork, Provider: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	if err := classifyAnthropicStatus(resp.StatusCode); err != nil {
		return "", err
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &Error{Kind: ErrorKindInvalidResponse, Provider: "anthropic", Err: err}
	}
	if parsed.Error != nil {
		return "", &Error{Kind: ErrorKindInvalidResponse, Provider: "anthropic", Err: fmt.Errorf("%s", SafeLogString(parsed.Error.Message))}
	}

	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// StreamComplete issues a streaming Messages request over server-sent events.
//
// Description:
//
//	Sends the same request shape as Complete with stream=true, then hands
//	the response body to processSSEStream, which parses Anthropic's
//	event/data SSE framing and forwards text deltas onto tokenCh.
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
func (c *AnthropicClient) StreamComplete(ctx context.Context, prompt string, opts Options) (<-chan string, <-chan *StreamResult) {
	tokenCh := make(chan string, 64)
	resultCh := make(chan *StreamResult, 1)

	go func() {
		defer close(tokenCh)
		defer close(resultCh)

		httpReq, err := c.newHTTPRequest(ctx, c.buildRequest(prompt, opts, true))
		if err != nil {
			resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "anthropic", Err: err}}
			return
		}
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			resultCh <- &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "anthropic", Err: err}}
			return
		}
		defer resp.Body.Close()

		if err := classifyAnthropicStatus(resp.StatusCode); err != nil {
			resultCh <- &StreamResult{Err: err}
			return
		}

		resultCh <- c.processSSEStream(ctx, resp.Body, tokenCh)
	}()

	return tokenCh, resultCh
}

// processSSEStream reads Anthropic's line-delimited SSE stream: an "event:"
// line names the event, a "data:" line carries its JSON payload, and a
// blank line terminates the event. Only content_block_delta text and the
// terminal error event are interpreted; everything else is skipped.
func (c *AnthropicClient) processSSEStream(ctx context.Context, body io.Reader, tokenCh chan<- string) *StreamResult {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "anthropic", Err: ctx.Err()}}
		default:
		}

		line := scanner.Text()
		switch {
		case line == "":
			eventType = ""
			continue
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
			continue
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			if res := c.handleSSEEvent(eventType, data, tokenCh); res != nil {
				return res
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return &StreamResult{Err: &Error{Kind: ErrorKindNetwork, Provider: "anthropic", Err: err}}
	}
	return &StreamResult{}
}

// handleSSEEvent interprets one decoded SSE event. It returns a non-nil
// StreamResult only to signal stream termination (success or error);
// ordinary content deltas return nil to keep the scan loop running.
func (c *AnthropicClient) handleSSEEvent(eventType, data string, tokenCh chan<- string) *StreamResult {
	switch eventType {
	case "content_block_delta":
		var evt anthropicSSEEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return nil
		}
		if evt.Delta.Type == "text_delta" && evt.Delta.Text != "" {
			tokenCh <- evt.Delta.Text
		}
		return nil
	case "error":
		var evt anthropicSSEEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return &StreamResult{Err: &Error{Kind: ErrorKindInvalidResponse, Provider: "anthropic", Err: fmt.Errorf("undecodable error event")}}
		}
		msg := "unknown error"
		if evt.Error != nil {
			msg = evt.Error.Message
		}
		return &StreamResult{Err: &Error{Kind: ErrorKindInvalidResponse, Provider: "anthropic", Err: fmt.Errorf("%s", SafeLogString(msg))}}
	case "message_stop":
		return &StreamResult{}
	default:
		return nil
	}
}

func classifyAnthropicStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: ErrorKindAuth, Provider: "anthropic", Err: fmt.Errorf("http %d", status)}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: ErrorKindRateLimited, Provider: "anthropic", Err: fmt.Errorf("http %d", status)}
	case status == http.StatusNotFound:
		return &Error{Kind: ErrorKindModelUnavailable, Provider: "anthropic", Err: fmt.Errorf("http %d", status)}
	default:
		return &Error{Kind: ErrorKindNetwork, Provider: "anthropic", Err: fmt.Errorf("http %d", status)}
	}
}
