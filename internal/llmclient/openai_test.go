package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIClientCompleteParsesChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":" hi there "}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key", srv.URL)
	out, err := client.Complete(context.Background(), "hello", Options{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	require.Equal(t, "hi there", out)
}

func TestOpenAIClientClassifiesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewOpenAIClient("bad-key", srv.URL)
	_, err := client.Complete(context.Background(), "hello", Options{Model: "gpt-4o-mini"})
	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	require.Equal(t, ErrorKindAuth, llmErr.Kind)
}

func TestOpenAIClientStreamCompleteAccumulatesDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key", srv.URL)
	tokenCh, resultCh := client.StreamComplete(context.Background(), "hello", Options{Model: "gpt-4o-mini"})
	out, err := Accumulate(tokenCh, resultCh)
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}
