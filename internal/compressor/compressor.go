// Package compressor implements Compressor (spec §4.6): the six-phase,
// fan-out/fan-in orchestration that drives the LLM across a codebase's
// symbols, with cache-coordinated deduplication and key propagation.
package compressor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/holo-q/thaum/internal/cache"
	"github.com/holo-q/thaum/internal/config"
	"github.com/holo-q/thaum/internal/extractor"
	"github.com/holo-q/thaum/internal/hierarchy"
	"github.com/holo-q/thaum/internal/llmclient"
	"github.com/holo-q/thaum/internal/prompts"
	"github.com/holo-q/thaum/internal/symbols"
	"github.com/holo-q/thaum/internal/tracer"
)

// CompressionLevel selects the prompt family, per spec §4.3/GLOSSARY.
type CompressionLevel string

const (
	LevelOptimize CompressionLevel = "optimize"
	LevelCompress CompressionLevel = "compress"
	LevelGolf     CompressionLevel = "golf"
	LevelEndgame  CompressionLevel = "endgame"
)

func (l CompressionLevel) prefix() prompts.Prefix { return prompts.Prefix(l) }

// Scope is spec §3's OptimizationContext.
type Scope int

const (
	ScopeFunction Scope = 1
	ScopeClass    Scope = 2
)

// OptimizationContext is spec §3's per-call parameter bundle.
type OptimizationContext struct {
	Level            Scope
	AvailableKeys    []string
	CompressionLevel CompressionLevel
}

const (
	optimizeTemperature = 0.3
	optimizeMaxTokens   = 1024
	keyTemperature      = 0.2
	keyMaxTokens        = 512
	artifactTTL         = 24 * time.Hour
)

var (
	// ErrCancelled wraps context cancellation surfaced by process_codebase,
	// per spec §7's CancellationError.
	ErrCancelled = fmt.Errorf("compressor: cancelled")
)

// SymbolHierarchy is spec §3's result type.
type SymbolHierarchy struct {
	ProjectPath   string
	RootSymbols   []*symbols.CodeSymbol
	ExtractedKeys map[string]string
	BuiltAt       time.Time

	// RunID identifies the ProcessCodebase/UpdateHierarchy invocation that
	// produced this hierarchy, correlating it with the trace events emitted
	// during that run.
	RunID string
}

// Change describes one file whose content changed, for UpdateHierarchy's
// incremental path.
type Change struct {
	FilePath string
}

// Compressor threads the cache, LLM client, prompt store, extractor, and
// hierarchy assembler together to drive spec §4.6's pipeline.
//
// Description:
//
//	Owns the in-flight call-deduplication table (inflight) alongside its
//	collaborators, so concurrent phases never issue redundant LLM calls for
//	the same fingerprint. ProcessCodebase and UpdateHierarchy are the two
//	entry points; OptimizeSymbol and ExtractCommonKey are their atomic
//	per-symbol/per-level units of work.
//
// Thread Safety: Safe for concurrent use; runPhase fans out bounded by
// Config.TreeSitterDOP and dedupCall serializes concurrent callers sharing
// a fingerprint.
type Compressor struct {
	cfg       *config.Config
	cache     *cache.Cache
	llm       llmclient.Client
	prompts   *prompts.Store
	extractor *extractor.SymbolExtractor
	assembler *hierarchy.Assembler
	sink      tracer.TraceSink
	logger    *slog.Logger

	inflight sync.Map // fingerprint(string) -> *inflightCall
}

type inflightCall struct {
	done chan struct{}
	val  string
	err  error
}

// New constructs a Compressor.
//
// Inputs:
//   - cfg: Resolved configuration (model, concurrency).
//   - cch: Persistent cache. May be nil; every Cache method degrades to a
//     miss/no-op on a nil receiver.
//   - llm: The LLM client every phase drives.
//   - store: Prompt template store.
//   - ext: Symbol extractor used by ProcessCodebase/UpdateHierarchy.
//   - assembler: Hierarchy assembler used to build the symbol tree.
//   - sink: Trace sink for progress events. Nil degrades to tracer.NoopSink.
//   - logger: Structured logger. Nil degrades to slog.Default().
//
// Outputs:
//   - *Compressor: The constructed instance.
func New(
	cfg *config.Config,
	cch *cache.Cache,
	llm llmclient.Client,
	store *prompts.Store,
	ext *extractor.SymbolExtractor,
	assembler *hierarchy.Assembler,
	sink tracer.TraceSink,
	logger *slog.Logger,
) *Compressor {
	if sink == nil {
		sink = tracer.NoopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{
		cfg:       cfg,
		cache:     cch,
		llm:       llm,
		prompts:   store,
		extractor: ext,
		assembler: assembler,
		sink:      sink,
		logger:    logger,
	}
}

func symbolTypeFor(sym *symbols.CodeSymbol) prompts.SymbolType {
	if sym.Kind == symbols.KindClass {
		return prompts.SymbolTypeClass
	}
	return prompts.SymbolTypeFunction
}

func scopeFor(sym *symbols.CodeSymbol) Scope {
	if sym.Kind == symbols.KindClass {
		return ScopeClass
	}
	return ScopeFunction
}

// OptimizeSymbol is spec §4.6's atomic unit of work for a single symbol.
//
// Description:
//
//	Computes sym's fingerprint, checks the cache, and on a miss builds the
//	level-appropriate prompt, drives a streamed LLM call via dedupCall (so
//	concurrent callers sharing a fingerprint share one in-flight call), and
//	writes the accumulated result back to the cache before returning it.
//	The fingerprint format does not vary by OptimizationContext fields
//	beyond Level, so the same symbol revisited at a later phase (e.g.
//	Phase 3 after Phase 1) is an honest cache hit rather than a forced
//	recompute — see DESIGN.md's Open Question #4.
//
// Inputs:
//   - ctx: Cancels the LLM call.
//   - sym: The symbol being optimized.
//   - octx: Available keys, compression level, and call-scoping fields.
//   - sourceCode: The symbol's source text, already extracted by the caller.
//
// Outputs:
//   - string: The optimized artifact, from cache or a fresh LLM call.
//   - error: Non-nil on prompt construction or LLM failure.
//
// Thread Safety: Safe for concurrent use; see dedupCall.
func (c *Compressor) OptimizeSymbol(ctx context.Context, sym *symbols.CodeSymbol, octx OptimizationContext, sourceCode string) (string, error) {
	fp := cache.OptimizationFingerprint(sym.Name, sym.FilePath, sym.Start.Line, int(octx.Level))

	if cached, ok := c.cache.TryGet(fp); ok {
		c.sink.Trace(tracer.Event{Kind: tracer.EventCacheHit, Message: "hit", Label: sym.Name})
		return cached, nil
	}
	c.sink.Trace(tracer.Event{Kind: tracer.EventCacheHit, Message: "miss", Label: sym.Name})

	result, err, shared := c.dedupCall(fp, func() (string, error) {
		return c.runOptimization(ctx, sym, octx, sourceCode, fp)
	})
	if shared {
		c.logger.Debug("compressor: joined in-flight optimization", slog.String("fingerprint", fp))
	}
	return result, err
}

// dedupCall implements the in-flight work-deduplication table from
// SPEC_FULL.md §4: the first caller for a fingerprint runs fn; concurrent
// callers for the same fingerprint block on the same result (or error)
// instead of issuing their own LLM call.
func (c *Compressor) dedupCall(key string, fn func() (string, error)) (string, error, bool) {
	call := &inflightCall{done: make(chan struct{})}
	actual, loaded := c.inflight.LoadOrStore(key, call)
	if loaded {
		existing := actual.(*inflightCall)
		<-existing.done
		return existing.val, existing.err, true
	}

	call.val, call.err = fn()
	close(call.done)
	c.inflight.Delete(key)
	return call.val, call.err, false
}

func (c *Compressor) runOptimization(ctx context.Context, sym *symbols.CodeSymbol, octx OptimizationContext, sourceCode, fp string) (string, error) {
	promptName := c.prompts.Name(octx.CompressionLevel.prefix(), symbolTypeFor(sym))
	promptText, err := c.prompts.Format(promptName, map[string]string{
		"sourceCode":    sourceCode,
		"symbolName":    sym.Name,
		"availableKeys": prompts.FormatAvailableKeys(octx.AvailableKeys),
	})
	if err != nil {
		return "", fmt.Errorf("compressor: building prompt %q: %w", promptName, err)
	}

	opts := llmclient.Options{
		Temperature: optimizeTemperature,
		MaxTokens:   optimizeMaxTokens,
		Model:       c.cfg.DefaultModel,
	}
	tokenCh, resultCh := c.llm.StreamComplete(ctx, promptText, opts)
	summary, err := llmclient.Accumulate(tokenCh, resultCh)
	if err != nil {
		return "", fmt.Errorf("compressor: optimizing %q: %w", sym.Name, err)
	}

	c.sink.Trace(tracer.Event{Kind: tracer.EventSymbolStream, Label: sym.Name, Count: len(summary)})

	if err := c.cache.Set(fp, summary, artifactTTL, cache.Metadata{
		PromptName:        promptName,
		PromptContentHash: contentHash(promptText),
		Model:             c.cfg.DefaultModel,
		Provider:          c.llm.Provider(),
	}); err != nil {
		c.logger.Warn("compressor: cache write failed, continuing", slog.String("fingerprint", fp), slog.String("error", err.Error()))
	}

	return summary, nil
}

// ExtractCommonKey is spec §4.6's key-extraction operation.
//
// Description:
//
//	Fingerprints the joined summaries via cache.KeyFingerprint, checks the
//	cache, and on a miss drives a streamed LLM call through the
//	key-extraction prompt for the given scope. Unlike OptimizeSymbol, the
//	LLM call does not go through the in-flight table: concurrent callers
//	sharing a fingerprint each issue their own call.
//
// Inputs:
//   - ctx: Cancels the LLM call.
//   - summaries: The ordered summaries being distilled into a shared key.
//   - level: Function or class scope, selecting the key-extraction prompt.
//   - compressionLevel: The active compression level, for prompt selection.
//
// Outputs:
//   - string: The extracted key, from cache or a fresh LLM call.
//   - error: Non-nil on prompt construction or LLM failure.
//
// Thread Safety: Safe for concurrent use.
func (c *Compressor) ExtractCommonKey(ctx context.Context, summaries []string, level Scope, compressionLevel CompressionLevel) (string, error) {
	fp := cache.KeyFingerprint(int(level), summaries)
	if cached, ok := c.cache.TryGet(fp); ok {
		c.sink.Trace(tracer.Event{Kind: tracer.EventCacheHit, Message: "hit", Label: fp})
		return cached, nil
	}
	c.sink.Trace(tracer.Event{Kind: tracer.EventCacheHit, Message: "miss", Label: fp})

	promptName := c.prompts.Name(compressionLevel.prefix(), prompts.SymbolTypeKey)
	promptText, err := c.prompts.Format(promptName, map[string]string{
		"summaries": numberedListing(summaries),
		"level":     fmt.Sprintf("%d", level),
	})
	if err != nil {
		return "", fmt.Errorf("compressor: building key prompt %q: %w", promptName, err)
	}

	opts := llmclient.Options{Temperature: keyTemperature, MaxTokens: keyMaxTokens, Model: c.cfg.DefaultModel}
	tokenCh, resultCh := c.llm.StreamComplete(ctx, promptText, opts)
	key, err := llmclient.Accumulate(tokenCh, resultCh)
	if err != nil {
		return "", fmt.Errorf("compressor: extracting key at level %d: %w", level, err)
	}

	if err := c.cache.Set(fp, key, artifactTTL, cache.Metadata{
		PromptName:        promptName,
		PromptContentHash: contentHash(promptText),
		Model:             c.cfg.DefaultModel,
		Provider:          c.llm.Provider(),
	}); err != nil {
		c.logger.Warn("compressor: cache write failed, continuing", slog.String("fingerprint", fp), slog.String("error", err.Error()))
	}

	c.sink.Trace(tracer.Event{Kind: tracer.EventKeyExtracted, Label: key})
	return key, nil
}

func numberedListing(items []string) string {
	var b []byte
	for i, s := range items {
		b = append(b, []byte(fmt.Sprintf("%d. %s\n", i+1, s))...)
	}
	return string(b)
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// sourceOf reads a symbol's source text, degrading to empty string on I/O
// error per spec §4.6/§7's documented failure policy: the LLM is still
// invoked, preserving the property that it is the sole semantic judge.
func (c *Compressor) sourceOf(sym *symbols.CodeSymbol) string {
	text, ok := c.extractor.GetCode(sym)
	if !ok {
		c.logger.Warn("compressor: source read failed, invoking LLM with empty source", slog.String("symbol", sym.Name), slog.String("file", sym.FilePath))
		return ""
	}
	return text
}

// ProcessCodebase drives spec §4.6's six-phase pipeline end to end.
//
// Description:
//
//	Crawls projectPath for language's symbols, partitions them into
//	functions and classes, runs the function phases (optimize, extract K1,
//	re-optimize) and the class phases (optimize, extract K2) bounded by
//	Config.TreeSitterDOP, assembles the resulting flat symbol list into a
//	parent/child hierarchy, and stamps the result with a fresh RunID
//	correlating it with the trace events this call emitted.
//
// Inputs:
//   - ctx: Propagated to every phase's LLM calls; cancellable mid-run.
//   - projectPath: Root directory to crawl.
//   - language: Language id passed to the extractor (see internal/ast).
//   - level: Compression level selecting the prompt family for every phase.
//
// Outputs:
//   - *SymbolHierarchy: The assembled hierarchy, with RunID and both
//     extracted keys (when functions/classes are non-empty).
//   - error: Non-nil on a crawl or LLM failure.
//
// Thread Safety: Safe for concurrent use with other Compressor calls.
func (c *Compressor) ProcessCodebase(ctx context.Context, projectPath, language string, level CompressionLevel) (*SymbolHierarchy, error) {
	symMap, err := c.extractor.CrawlDir(ctx, projectPath, language)
	if err != nil {
		return nil, fmt.Errorf("compressor: crawling %s: %w", projectPath, err)
	}

	functions, classes := partitionByKind(symMap.All())

	extractedKeys := make(map[string]string)

	k1, err := c.runFunctionPhases(ctx, functions, level, extractedKeys)
	if err != nil {
		return nil, err
	}

	s2, err := c.runPhase(ctx, 4, "optimize_class", classes, func(ctx context.Context, sym *symbols.CodeSymbol) (string, error) {
		return c.OptimizeSymbol(ctx, sym, OptimizationContext{Level: ScopeClass, AvailableKeys: keysOrEmpty(k1), CompressionLevel: level}, c.sourceOf(sym))
	})
	if err != nil {
		return nil, err
	}

	var k2 string
	if len(classes) > 0 {
		k2, err = c.ExtractCommonKey(ctx, s2, ScopeClass, level)
		if err != nil {
			return nil, err
		}
		extractedKeys["K2"] = k2
	}

	finalKeys := keysOrEmpty(k1)
	if k2 != "" {
		finalKeys = append(finalKeys, k2)
	}
	all := append(append([]*symbols.CodeSymbol{}, functions...), classes...)
	if _, err := c.runPhase(ctx, 6, "reoptimize_final", all, func(ctx context.Context, sym *symbols.CodeSymbol) (string, error) {
		return c.OptimizeSymbol(ctx, sym, OptimizationContext{Level: scopeFor(sym), AvailableKeys: finalKeys, CompressionLevel: level}, c.sourceOf(sym))
	}); err != nil {
		return nil, err
	}

	roots := c.assembler.Build(symMap.All())

	runID := uuid.NewString()
	hier := &SymbolHierarchy{
		ProjectPath:   projectPath,
		RootSymbols:   roots,
		ExtractedKeys: extractedKeys,
		BuiltAt:       time.Now(),
		RunID:         runID,
	}
	c.sink.Trace(tracer.Event{Kind: tracer.EventComplete, Count: symMap.Len(), RunID: runID})
	return hier, nil
}

// runFunctionPhases drives Phases 1-3 (optimize once to collect S1, extract
// K1, re-optimize discarding values) and returns K1 ("" if functions is
// empty, per the Open Question resolution: Phase 2 is skipped).
func (c *Compressor) runFunctionPhases(ctx context.Context, functions []*symbols.CodeSymbol, level CompressionLevel, extractedKeys map[string]string) (string, error) {
	s1, err := c.runPhase(ctx, 1, "optimize_function", functions, func(ctx context.Context, sym *symbols.CodeSymbol) (string, error) {
		return c.OptimizeSymbol(ctx, sym, OptimizationContext{Level: ScopeFunction, AvailableKeys: nil, CompressionLevel: level}, c.sourceOf(sym))
	})
	if err != nil {
		return "", err
	}
	if len(functions) == 0 {
		return "", nil
	}

	k1, err := c.ExtractCommonKey(ctx, s1, ScopeFunction, level)
	if err != nil {
		return "", err
	}
	extractedKeys["K1"] = k1

	if _, err := c.runPhase(ctx, 3, "reoptimize_function_with_k1", functions, func(ctx context.Context, sym *symbols.CodeSymbol) (string, error) {
		return c.OptimizeSymbol(ctx, sym, OptimizationContext{Level: ScopeFunction, AvailableKeys: []string{k1}, CompressionLevel: level}, c.sourceOf(sym))
	}); err != nil {
		return "", err
	}
	return k1, nil
}

func keysOrEmpty(k1 string) []string {
	if k1 == "" {
		return nil
	}
	return []string{k1}
}

// runPhase fans fn out across syms bounded by Config.TreeSitterDOP, emits
// PHASE_BEGIN/PHASE_END, and returns the per-symbol results in syms' input
// order (spec: "invocation order across symbols is unspecified" on the
// wire, but the returned slice is still positionally addressable by the
// caller since S1/S2 feed extract_common_key as an ordered listing).
func (c *Compressor) runPhase(ctx context.Context, phaseNum int, label string, syms []*symbols.CodeSymbol, fn func(context.Context, *symbols.CodeSymbol) (string, error)) ([]string, error) {
	c.sink.Trace(tracer.Event{Kind: tracer.EventPhaseBegin, Phase: phaseNum, Label: label, Total: len(syms)})

	results := make([]string, len(syms))
	if len(syms) == 0 {
		c.sink.Trace(tracer.Event{Kind: tracer.EventPhaseEnd, Phase: phaseNum, Label: label, Count: 0})
		return results, nil
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	dop := c.cfg.TreeSitterDOP
	if dop > 0 {
		grp.SetLimit(dop)
	}
	for i, sym := range syms {
		i, sym := i, sym
		grp.Go(func() error {
			if err := grpCtx.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			out, err := fn(grpCtx, sym)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		c.sink.Trace(tracer.Event{Kind: tracer.EventPhaseEnd, Phase: phaseNum, Label: label, Count: 0, Message: "aborted"})
		return nil, err
	}

	c.sink.Trace(tracer.Event{Kind: tracer.EventPhaseEnd, Phase: phaseNum, Label: label, Count: len(syms)})
	return results, nil
}

func partitionByKind(all []*symbols.CodeSymbol) (functions, classes []*symbols.CodeSymbol) {
	for _, s := range all {
		switch s.Kind {
		case symbols.KindClass:
			classes = append(classes, s)
		case symbols.KindFunction, symbols.KindMethod:
			functions = append(functions, s)
		}
	}
	return functions, classes
}

// flattenSymbols walks roots and their descendants, returning every symbol
// in the tree regardless of depth.
func flattenSymbols(roots []*symbols.CodeSymbol) []*symbols.CodeSymbol {
	var out []*symbols.CodeSymbol
	var walk func(s *symbols.CodeSymbol)
	walk = func(s *symbols.CodeSymbol) {
		out = append(out, s)
		for _, child := range s.Children {
			walk(child)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

// UpdateHierarchy re-drives the pipeline restricted to changed files.
//
// Description:
//
//	Implements SPEC_FULL.md §4's resolved Open Question: invalidate cached
//	artifacts for every prior symbol belonging to a changed file (via exact
//	per-symbol fingerprints — InvalidatePattern's trailing-"*" prefix match
//	cannot target "every symbol in file X" directly, since the fingerprint
//	format interleaves name and file path), re-crawl the project with an
//	auto-detected language and keep only the changed files' symbols,
//	re-drive Phases 1-5 restricted to that symbol set (Phase 6 is not
//	re-run), and merge the new roots into existing's root list
//	by file (a changed file's old roots are replaced wholesale; other
//	files' roots are untouched).
//
// Inputs:
//   - ctx: Propagated to the re-driven phases' LLM calls.
//   - existing: The prior SymbolHierarchy being updated.
//   - changes: The files whose content changed. Empty returns existing
//     unmodified.
//
// Outputs:
//   - *SymbolHierarchy: existing with changed files' roots replaced and a
//     fresh RunID.
//   - error: Non-nil on a crawl or LLM failure.
//
// Thread Safety: Safe for concurrent use with other Compressor calls.
func (c *Compressor) UpdateHierarchy(ctx context.Context, existing *SymbolHierarchy, changes []Change) (*SymbolHierarchy, error) {
	if len(changes) == 0 {
		return existing, nil
	}

	changedFiles := make(map[string]struct{}, len(changes))
	for _, ch := range changes {
		changedFiles[ch.FilePath] = struct{}{}
	}

	// The fingerprint format (spec §4.5) interleaves name and file_path, so
	// a single prefix-shaped InvalidatePattern call cannot target "every
	// symbol in this file" directly. Instead, invalidate each of the
	// changed file's previously known symbols by exact key.
	for _, sym := range flattenSymbols(existing.RootSymbols) {
		if _, changed := changedFiles[sym.FilePath]; !changed {
			continue
		}
		fp := cache.OptimizationFingerprint(sym.Name, sym.FilePath, sym.Start.Line, int(scopeFor(sym)))
		if err := c.cache.InvalidatePattern(fp); err != nil {
			c.logger.Warn("compressor: invalidation failed, continuing", slog.String("file", sym.FilePath), slog.String("error", err.Error()))
		}
	}

	reCrawled, err := c.extractor.CrawlDir(ctx, existing.ProjectPath, "")
	if err != nil {
		return nil, fmt.Errorf("compressor: re-crawling for update: %w", err)
	}

	var changedSymbols []*symbols.CodeSymbol
	for _, sym := range reCrawled.All() {
		if _, changed := changedFiles[sym.FilePath]; changed {
			changedSymbols = append(changedSymbols, sym)
		}
	}

	functions, classes := partitionByKind(changedSymbols)
	extractedKeys := make(map[string]string)
	for k, v := range existing.ExtractedKeys {
		extractedKeys[k] = v
	}

	k1, err := c.runFunctionPhases(ctx, functions, LevelOptimize, extractedKeys)
	if err != nil {
		return nil, err
	}
	s2, err := c.runPhase(ctx, 4, "optimize_class", classes, func(ctx context.Context, sym *symbols.CodeSymbol) (string, error) {
		return c.OptimizeSymbol(ctx, sym, OptimizationContext{Level: ScopeClass, AvailableKeys: keysOrEmpty(k1), CompressionLevel: LevelOptimize}, c.sourceOf(sym))
	})
	if err != nil {
		return nil, err
	}
	if len(classes) > 0 {
		k2, err := c.ExtractCommonKey(ctx, s2, ScopeClass, LevelOptimize)
		if err != nil {
			return nil, err
		}
		extractedKeys["K2"] = k2
	}

	newRootsForChangedFiles := c.assembler.Build(changedSymbols)

	mergedRoots := make([]*symbols.CodeSymbol, 0, len(existing.RootSymbols)+len(newRootsForChangedFiles))
	for _, root := range existing.RootSymbols {
		if _, changed := changedFiles[root.FilePath]; !changed {
			mergedRoots = append(mergedRoots, root)
		}
	}
	mergedRoots = append(mergedRoots, newRootsForChangedFiles...)
	sort.SliceStable(mergedRoots, func(i, j int) bool { return mergedRoots[i].FilePath < mergedRoots[j].FilePath })

	runID := uuid.NewString()
	c.sink.Trace(tracer.Event{Kind: tracer.EventComplete, Count: len(changedSymbols), RunID: runID})
	return &SymbolHierarchy{
		ProjectPath:   existing.ProjectPath,
		RootSymbols:   mergedRoots,
		ExtractedKeys: extractedKeys,
		BuiltAt:       time.Now(),
		RunID:         runID,
	}, nil
}

// GetOptimizedPrompt is spec §4.6's auxiliary operation: assembles a task
// prompt from a base instruction, few-shot examples, and the task text
// itself by plain concatenation; PromptStore templates are not involved.
func (c *Compressor) GetOptimizedPrompt(basePrompt string, examples []string, task string) (string, error) {
	var b []byte
	b = append(b, basePrompt...)
	b = append(b, '\n')
	for i, ex := range examples {
		b = append(b, []byte(fmt.Sprintf("\nExample %d:\n%s\n", i+1, ex))...)
	}
	b = append(b, []byte("\nTask:\n")...)
	b = append(b, task...)
	return string(b), nil
}
