// Package extractor implements SymbolExtractor (spec §4.2): a parallel
// directory walk that parses every participating file into a SymbolMap.
package extractor

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/holo-q/thaum/internal/ast"
	"github.com/holo-q/thaum/internal/symbols"
)

// universalIgnores are excluded regardless of language.
var universalIgnores = []string{".git", ".hg", ".svn", ".DS_Store"}

// languageDefaultIgnores are excluded by default for a given language, on
// top of universalIgnores and the project's own .gitignore.
var languageDefaultIgnores = map[string][]string{
	ast.LangGo:         {"vendor"},
	ast.LangPython:     {"__pycache__", ".venv", "venv"},
	ast.LangJavaScript: {"node_modules", "dist", "build"},
	ast.LangTypeScript: {"node_modules", "dist", "build"},
	ast.LangCSharp:     {"bin", "obj"},
	ast.LangRust:       {"target"},
}

// SymbolExtractor walks a project directory, parses every participating
// file in parallel, and assembles the results into a SymbolMap.
//
// Description:
//
//	Combines .gitignore rules, universal ignores, and per-language default
//	ignores to select participating files, then parses each with the
//	language's internal/ast binding, bounded by an errgroup.Group limited
//	to dop workers.
//
// Thread Safety: Safe for concurrent use; each CrawlDir call owns its own
// errgroup and result slice.
type SymbolExtractor struct {
	dop    int
	logger *slog.Logger
}

// New constructs a SymbolExtractor.
//
// Inputs:
//   - dop: Bounds parallel file parsing. <= 0 means unbounded; callers
//     should pass Config.TreeSitterDOP, which already defaults to
//     runtime.NumCPU().
//   - logger: Used for per-file skip warnings. Falls back to
//     slog.Default() if nil.
//
// Outputs:
//   - *SymbolExtractor: The constructed instance.
func New(dop int, logger *slog.Logger) *SymbolExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SymbolExtractor{dop: dop, logger: logger}
}

// CrawlDir implements spec §4.2's crawl_dir.
//
// Description:
//
//	Detects the primary language when language is empty, enumerates
//	participating files (.gitignore plus universal and per-language
//	ignores), parses each in parallel bounded by dop, and assembles a
//	SymbolMap preserving path-sorted file order and start-line order within
//	each file. An unsupported language returns an empty, non-nil
//	SymbolMap rather than an error, per spec §4.1's "log and skip" policy.
//	Unreadable or unparsable individual files are logged and skipped; they
//	do not fail the whole crawl.
//
// Inputs:
//   - ctx: Propagated to every file's parse call; cancellable mid-crawl.
//   - projectPath: Root directory to crawl.
//   - language: Language id, or "" to auto-detect the primary language.
//
// Outputs:
//   - *symbols.SymbolMap: The assembled symbols, possibly empty.
//   - error: Non-nil on language detection, .gitignore read, or file
//     enumeration failure.
//
// Thread Safety: Safe for concurrent use.
func (e *SymbolExtractor) CrawlDir(ctx context.Context, projectPath, language string) (*symbols.SymbolMap, error) {
	if language == "" {
		detected, err := detectPrimaryLanguage(projectPath)
		if err != nil {
			return nil, fmt.Errorf("extractor: detecting primary language: %w", err)
		}
		language = detected
	}

	binding, ok := ast.NewOrSkip(language, e.logger)
	if !ok {
		return symbols.NewSymbolMap(e.logger), nil
	}

	rules, err := loadGitignore(projectPath)
	if err != nil {
		return nil, fmt.Errorf("extractor: reading .gitignore: %w", err)
	}

	files, err := e.enumerateFiles(projectPath, language, rules)
	if err != nil {
		return nil, fmt.Errorf("extractor: enumerating files: %w", err)
	}
	sort.Strings(files)

	type fileResult struct {
		path string
		syms []*symbols.CodeSymbol
	}
	results := make([]fileResult, len(files))

	grp, grpCtx := errgroup.WithContext(ctx)
	if e.dop > 0 {
		grp.SetLimit(e.dop)
	}

	for i, path := range files {
		i, path := i, path
		grp.Go(func() error {
			source, err := os.ReadFile(path)
			if err != nil {
				e.logger.Warn("extractor: skipping unreadable file", slog.String("path", path), slog.String("error", err.Error()))
				return nil
			}
			syms, err := binding.Parse(grpCtx, source, path)
			if err != nil {
				e.logger.Warn("extractor: skipping file with parse error", slog.String("path", path), slog.String("error", err.Error()))
				return nil
			}
			sort.SliceStable(syms, func(a, b int) bool { return syms[a].Start.Less(syms[b].Start) })
			results[i] = fileResult{path: path, syms: syms}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	symbolMap := symbols.NewSymbolMap(e.logger)
	for _, res := range results {
		for _, s := range res.syms {
			symbolMap.Add(s)
		}
		if res.syms != nil {
			symbolMap.SetFileSymbols(res.path, res.syms)
		}
	}
	return symbolMap, nil
}

// GetCode reads sym's source file and returns its exact text span.
//
// Description:
//
//	Reads the line range [Start.Line, End.Line] and slices each boundary
//	line by rune index (CodeLocation.Character is byte-agnostic per spec
//	§3, decoded via []rune, never sliced by byte offset), clamped to each
//	line's actual length so a stale or out-of-range location degrades to a
//	best-effort span instead of panicking.
//
// Inputs:
//   - sym: The symbol whose source text to read.
//
// Outputs:
//   - string: The text in [Start,End]. Empty on I/O failure.
//   - bool: false only on I/O error; the caller (Compressor) treats that as
//     "degrade to empty string" per spec §4.6's failure policy, not a hard
//     error.
func (e *SymbolExtractor) GetCode(sym *symbols.CodeSymbol) (string, bool) {
	f, err := os.Open(sym.FilePath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", false
	}
	if len(lines) == 0 {
		return "", true
	}

	startLine := clampInt(int(sym.Start.Line), 0, len(lines)-1)
	endLine := clampInt(int(sym.End.Line), 0, len(lines)-1)

	var b strings.Builder
	for line := startLine; line <= endLine; line++ {
		runes := []rune(lines[line])
		startCol, endCol := 0, len(runes)
		if line == startLine {
			startCol = clampInt(int(sym.Start.Character), 0, len(runes))
		}
		if line == endLine {
			endCol = clampInt(int(sym.End.Character), 0, len(runes))
		}
		if startCol > endCol {
			startCol = endCol
		}
		b.WriteString(string(runes[startCol:endCol]))
		if line != endLine {
			b.WriteByte('\n')
		}
	}
	return b.String(), true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *SymbolExtractor) enumerateFiles(projectPath, language string, rules []gitignoreRule) ([]string, error) {
	exts := ast.Extensions(language)
	extSet := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extSet[ext] = struct{}{}
	}
	defaultIgnores := languageDefaultIgnores[language]

	var files []string
	var mu sync.Mutex
	err := filepath.WalkDir(projectPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			e.logger.Warn("extractor: walk error, skipping", slog.String("path", path), slog.String("error", walkErr.Error()))
			return nil
		}
		rel, err := filepath.Rel(projectPath, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		name := d.Name()
		if isUniversallyIgnored(name) || containsIgnoredSegment(rel, defaultIgnores) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if gitignoreMatches(rules, rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := extSet[filepath.Ext(name)]; !ok {
			return nil
		}

		mu.Lock()
		files = append(files, path)
		mu.Unlock()
		return nil
	})
	return files, err
}

func isUniversallyIgnored(name string) bool {
	for _, ignored := range universalIgnores {
		if name == ignored {
			return true
		}
	}
	return strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}

func containsIgnoredSegment(relPath string, ignores []string) bool {
	for _, part := range strings.Split(relPath, "/") {
		for _, ignored := range ignores {
			if part == ignored {
				return true
			}
		}
	}
	return false
}

// detectPrimaryLanguage implements the extension-majority heuristic: count
// files per registered language's extensions and return the language with
// the most matches.
func detectPrimaryLanguage(projectPath string) (string, error) {
	counts := make(map[string]int)
	err := filepath.WalkDir(projectPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if lang, ok := ast.LanguageForExtension(filepath.Ext(path)); ok {
			counts[lang]++
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	best, bestCount := "", -1
	for _, lang := range sortedKeys(counts) {
		if counts[lang] > bestCount {
			best, bestCount = lang, counts[lang]
		}
	}
	if best == "" {
		return "", fmt.Errorf("extractor: no recognized source files under %s", projectPath)
	}
	return best, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
