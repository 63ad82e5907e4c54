package thaum

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holo-q/thaum/internal/config"
	"github.com/holo-q/thaum/internal/llmclient"
)

type stubClient struct {
	mu    sync.Mutex
	calls int
}

func (s *stubClient) Provider() string { return "stub" }

func (s *stubClient) Complete(ctx context.Context, prompt string, opts llmclient.Options) (string, error) {
	panic("not used")
}

func (s *stubClient) StreamComplete(ctx context.Context, prompt string, opts llmclient.Options) (<-chan string, <-chan *llmclient.StreamResult) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	tokenCh := make(chan string, 1)
	resultCh := make(chan *llmclient.StreamResult, 1)
	if strings.Contains(prompt, "Summaries:") || strings.Contains(prompt, "summaries") {
		tokenCh <- "K"
	} else {
		tokenCh <- "S"
	}
	close(tokenCh)
	resultCh <- &llmclient.StreamResult{}
	return tokenCh, resultCh
}

func newTestThaum(t *testing.T, client *stubClient) *Thaum {
	t.Helper()
	cfg := &config.Config{DefaultModel: "stub-model", TreeSitterDOP: 4, CacheDir: filepath.Join(t.TempDir(), "cache")}
	th, err := New(WithConfig(cfg), WithLLMClient(client))
	require.NoError(t, err)
	t.Cleanup(func() { _ = th.Close() })
	return th
}

func TestNewRequiresCredentialWhenNoClientProvided(t *testing.T) {
	t.Setenv("THAUM_ANTHROPIC_API_KEY", "")
	t.Setenv("THAUM_OPENAI_API_KEY", "")
	t.Setenv("LLM__DefaultModel", "stub-model")

	_, err := NewDefaultLLMClient()
	require.Error(t, err)
}

func TestNewDefaultLLMClientPrefersAnthropicOverOpenAI(t *testing.T) {
	t.Setenv("THAUM_ANTHROPIC_API_KEY", "anthro-key")
	t.Setenv("THAUM_OPENAI_API_KEY", "openai-key")

	client, err := NewDefaultLLMClient()
	require.NoError(t, err)
	require.Equal(t, "anthropic", client.Provider())
}

func TestProcessCodebaseViaFacade(t *testing.T) {
	client := &stubClient{}
	th := newTestThaum(t, client)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.go"), []byte("package demo\n\nfunc Foo() int {\n\treturn 1\n}\n"), 0o644))

	hier, err := th.ProcessCodebase(context.Background(), dir, "go", LevelOptimize)
	require.NoError(t, err)
	require.Len(t, hier.RootSymbols, 1)
	require.NotEmpty(t, hier.RunID)
}

func TestCrawlDirDrivesNoLLMCalls(t *testing.T) {
	client := &stubClient{}
	th := newTestThaum(t, client)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.go"), []byte("package demo\n\nfunc Foo() int {\n\treturn 1\n}\n"), 0o644))

	symMap, err := th.CrawlDir(context.Background(), dir, "go")
	require.NoError(t, err)
	require.Equal(t, 1, symMap.Len())

	client.mu.Lock()
	calls := client.calls
	client.mu.Unlock()
	require.Equal(t, 0, calls, "CrawlDir must not drive any LLM phase")
}

func TestBuildHierarchyDelegatesToAssembler(t *testing.T) {
	client := &stubClient{}
	th := newTestThaum(t, client)
	require.NotPanics(t, func() { th.BuildHierarchy(nil) })
}
