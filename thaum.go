// Package thaum is the public façade over the core: ProcessCodebase,
// CrawlDir, and BuildHierarchy (spec §4.8), wiring config, the symbol
// extractor, the persistent cache, a provider LLM client, the prompt store,
// the hierarchy assembler, and the tracer into one Compressor.
package thaum

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/holo-q/thaum/internal/cache"
	"github.com/holo-q/thaum/internal/compressor"
	"github.com/holo-q/thaum/internal/config"
	"github.com/holo-q/thaum/internal/extractor"
	"github.com/holo-q/thaum/internal/hierarchy"
	"github.com/holo-q/thaum/internal/llmclient"
	"github.com/holo-q/thaum/internal/prompts"
	"github.com/holo-q/thaum/internal/symbols"
	"github.com/holo-q/thaum/internal/tracer"
)

// CompressionLevel re-exports compressor.CompressionLevel at the façade
// boundary so collaborators never need to import internal/compressor
// directly.
type CompressionLevel = compressor.CompressionLevel

const (
	LevelOptimize = compressor.LevelOptimize
	LevelCompress = compressor.LevelCompress
	LevelGolf     = compressor.LevelGolf
	LevelEndgame  = compressor.LevelEndgame
)

// SymbolHierarchy re-exports compressor.SymbolHierarchy.
type SymbolHierarchy = compressor.SymbolHierarchy

// Change re-exports compressor.Change.
type Change = compressor.Change

// Thaum bundles every core collaborator behind the public operations
// ProcessCodebase, CrawlDir, BuildHierarchy, and UpdateHierarchy.
//
// Description:
//
//	Owns the persistent cache, the LLM client, the symbol extractor, the
//	hierarchy assembler, and the six-phase Compressor built from them.
//	Constructed via New; every exported method simply delegates to the
//	matching collaborator.
//
// Thread Safety: Safe for concurrent use once constructed; the underlying
// Cache and Compressor are themselves safe for concurrent use.
type Thaum struct {
	cfg        *config.Config
	cache      *cache.Cache
	compressor *compressor.Compressor
	extractor  *extractor.SymbolExtractor
	assembler  *hierarchy.Assembler
	logger     *slog.Logger
}

// Option configures New before construction completes.
type Option func(*options)

type options struct {
	logger *slog.Logger
	sink   tracer.TraceSink
	llm    llmclient.Client
	cfg    *config.Config
}

// WithLogger overrides the *slog.Logger threaded into every collaborator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTraceSink overrides the tracer.TraceSink progress events are emitted
// to. Defaults to tracer.NewSlogSink(logger).
func WithTraceSink(sink tracer.TraceSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithLLMClient overrides the llmclient.Client the Compressor drives.
// Defaults to a provider selected by NewDefaultLLMClient.
func WithLLMClient(client llmclient.Client) Option {
	return func(o *options) { o.llm = client }
}

// WithConfig overrides the *config.Config loaded from the environment.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// New constructs a Thaum instance.
//
// Description:
//
//	Loads config (unless WithConfig overrides it), opens the persistent
//	cache at cfg.CacheDir, selects an LLM client via NewDefaultLLMClient
//	(unless WithLLMClient overrides it), and wires the extractor, hierarchy
//	assembler, prompt store, and trace sink together into a Compressor. If
//	LLM-client selection fails after the cache has already opened, the
//	cache is closed before returning the error so New never leaks a file
//	handle on a failed construction.
//
// Inputs:
//   - opts: Zero or more Option values overriding logger, trace sink, LLM
//     client, or config.
//
// Outputs:
//   - *Thaum: The constructed instance, ready for ProcessCodebase/CrawlDir.
//   - error: Non-nil if config loading, cache opening, or LLM client
//     selection fails.
func New(opts ...Option) (*Thaum, error) {
	o := &options{}
	for _, apply := range opts {
		apply(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.Load(o.logger)
		if err != nil {
			return nil, fmt.Errorf("thaum: loading config: %w", err)
		}
		cfg = loaded
	}

	cch, err := cache.Open(cfg.CacheDir, o.logger)
	if err != nil {
		return nil, fmt.Errorf("thaum: opening cache at %s: %w", cfg.CacheDir, err)
	}

	llm := o.llm
	if llm == nil {
		client, err := NewDefaultLLMClient()
		if err != nil {
			_ = cch.Close()
			return nil, err
		}
		llm = client
	}

	sink := o.sink
	if sink == nil {
		sink = tracer.NewSlogSink(o.logger)
	}

	ext := extractor.New(cfg.TreeSitterDOP, o.logger)
	assembler := hierarchy.NewAssembler()
	store := prompts.NewStore(cfg)
	comp := compressor.New(cfg, cch, llm, store, ext, assembler, sink, o.logger)

	return &Thaum{
		cfg:        cfg,
		cache:      cch,
		compressor: comp,
		extractor:  ext,
		assembler:  assembler,
		logger:     o.logger,
	}, nil
}

// Close releases the underlying cache handle. Safe to call on a nil *Thaum.
func (t *Thaum) Close() error {
	if t == nil || t.cache == nil {
		return nil
	}
	return t.cache.Close()
}

// ProcessCodebase drives the full six-phase pipeline over projectPath,
// producing a SymbolHierarchy. See compressor.Compressor.ProcessCodebase.
func (t *Thaum) ProcessCodebase(ctx context.Context, projectPath, language string, level CompressionLevel) (*SymbolHierarchy, error) {
	return t.compressor.ProcessCodebase(ctx, projectPath, language, level)
}

// CrawlDir extracts the SymbolMap for projectPath without driving any LLM
// phases, the read-only half of ProcessCodebase collaborators can use for
// inspection or diffing.
func (t *Thaum) CrawlDir(ctx context.Context, projectPath, language string) (*symbols.SymbolMap, error) {
	return t.extractor.CrawlDir(ctx, projectPath, language)
}

// BuildHierarchy assembles a parent/child symbol tree from a flat symbol
// slice, without driving any LLM phases.
func (t *Thaum) BuildHierarchy(flat []*symbols.CodeSymbol) []*symbols.CodeSymbol {
	return t.assembler.Build(flat)
}

// UpdateHierarchy re-drives the pipeline restricted to changed files. See
// compressor.Compressor.UpdateHierarchy.
func (t *Thaum) UpdateHierarchy(ctx context.Context, existing *SymbolHierarchy, changes []Change) (*SymbolHierarchy, error) {
	return t.compressor.UpdateHierarchy(ctx, existing, changes)
}

// NewDefaultLLMClient selects an llmclient.Client by inspecting which
// provider credential is present in the environment: THAUM_ANTHROPIC_API_KEY
// takes precedence over THAUM_OPENAI_API_KEY, matching the teacher's own
// role-config provider precedence in cmd/trace/main.go (main model falls
// back across providers in a fixed order). Neither credential present is an
// error: spec.md §1 places provider authentication beyond an opaque
// credential out of scope, so the core never attempts discovery beyond
// these two env vars.
func NewDefaultLLMClient() (llmclient.Client, error) {
	if key := os.Getenv("THAUM_ANTHROPIC_API_KEY"); key != "" {
		baseURL := strings.TrimSpace(os.Getenv("THAUM_ANTHROPIC_BASE_URL"))
		return llmclient.NewAnthropicClient(key, baseURL), nil
	}
	if key := os.Getenv("THAUM_OPENAI_API_KEY"); key != "" {
		baseURL := strings.TrimSpace(os.Getenv("THAUM_OPENAI_BASE_URL"))
		return llmclient.NewOpenAIClient(key, baseURL), nil
	}
	return nil, fmt.Errorf("thaum: no LLM credential found (set THAUM_ANTHROPIC_API_KEY or THAUM_OPENAI_API_KEY)")
}
