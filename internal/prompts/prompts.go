// Package prompts implements PromptStore (spec §4.3): named prompt
// templates with textual {key} substitution.
//
// Substitution is deliberately hand-rolled rather than text/template: the
// spec requires unknown keys to remain as literal placeholders and missing
// parameters to never raise, which text/template does not support without
// extra scaffolding that would obscure the contract. See DESIGN.md.
package prompts

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Prefix is the compression-level family a prompt belongs to.
type Prefix string

const (
	PrefixOptimize Prefix = "optimize"
	PrefixCompress Prefix = "compress"
	PrefixGolf     Prefix = "golf"
	PrefixEndgame  Prefix = "endgame"
)

// SymbolType is the prompt's target symbol shape.
type SymbolType string

const (
	SymbolTypeFunction SymbolType = "function"
	SymbolTypeClass    SymbolType = "class"
	SymbolTypeKey      SymbolType = "key"
)

// Overrider resolves a documented env-var override for a given
// prefix/symbolType pair, per spec §4.3's
// THAUM_PROMPT_<PREFIX>_<SYMBOLTYPE>. config.Config implements this.
type Overrider interface {
	PromptOverride(prefix, symbolType string) (string, bool)
}

// Store loads and formats named prompt templates.
//
// Description:
//
//	Layers three sources in priority order: a per-call Overrider (env-var
//	overrides, highest priority), an optional on-disk manifest (name
//	overrides and an alternate template directory, see ApplyManifest), and
//	the bundled embedded templates (lowest priority). Loaded template text
//	is cached by name for the Store's lifetime.
//
// Thread Safety: Name, Load, and Format are safe for concurrent use; the
// template cache is guarded by cacheMu since Compressor's phase fan-out
// calls Format from multiple goroutines against one shared Store.
// ApplyManifest is not itself synchronized and must complete before any
// concurrent use begins.
type Store struct {
	fs        embed.FS
	dir       string
	overrider Overrider

	cacheMu sync.RWMutex
	cache   map[string]string

	// manifestOverrides and manifestDir are populated by ApplyManifest,
	// layering an optional on-disk prompt pack underneath env-var
	// overrides and above the bundled defaults. ApplyManifest is intended
	// to run once during setup, before any concurrent Name/Load/Format
	// call; it is not itself synchronized against those.
	manifestOverrides map[string]string
	manifestDir       string
}

// NewStore constructs a Store backed by the bundled embedded templates.
//
// Inputs:
//   - overrider: Resolves THAUM_PROMPT_* env-var overrides. Nil means none
//     are consulted.
//
// Outputs:
//   - *Store: The constructed instance.
func NewStore(overrider Overrider) *Store {
	return &Store{fs: templateFS, dir: "templates", overrider: overrider, cache: make(map[string]string)}
}

// Name resolves the prompt name for (prefix, symbolType).
//
// Description:
//
//	Checks sources in priority order: the Overrider's env-var override,
//	then a manifest override (see ApplyManifest), then the
//	compress+function -> compress_function_v2 exception, finally falling
//	back to "<prefix>_<symbolType>".
//
// Inputs:
//   - prefix: The compression-level family.
//   - symbolType: The prompt's target symbol shape.
//
// Outputs:
//   - string: The resolved prompt name, suitable for Load/Format.
func (s *Store) Name(prefix Prefix, symbolType SymbolType) string {
	if s.overrider != nil {
		if override, ok := s.overrider.PromptOverride(string(prefix), string(symbolType)); ok {
			return override
		}
	}
	key := strings.ToUpper(string(prefix) + "_" + string(symbolType))
	if override, ok := s.manifestOverrides[key]; ok {
		return override
	}
	if prefix == PrefixCompress && symbolType == SymbolTypeFunction {
		return "compress_function_v2"
	}
	return fmt.Sprintf("%s_%s", prefix, symbolType)
}

// Load returns the raw template text for name.
//
// Description:
//
//	Prefers a manifest's on-disk template directory (if configured) over
//	the embedded default, and caches the result by name so repeat lookups
//	for the same prompt across a fan-out of phase goroutines don't re-read
//	the filesystem or embed.FS.
//
// Inputs:
//   - name: The resolved prompt name (see Name), without the ".txt" suffix.
//
// Outputs:
//   - string: The raw template text.
//   - error: Non-nil if name is not found in either the manifest directory
//     or the embedded templates.
//
// Thread Safety: Safe for concurrent use.
func (s *Store) Load(name string) (string, error) {
	s.cacheMu.RLock()
	cached, ok := s.cache[name]
	s.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	if s.manifestDir != "" {
		if data, err := os.ReadFile(filepath.Join(s.manifestDir, name+".txt")); err == nil {
			text := string(data)
			s.storeCache(name, text)
			return text, nil
		}
	}

	data, err := s.fs.ReadFile(s.dir + "/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompts: loading %q: %w", name, err)
	}
	text := string(data)
	s.storeCache(name, text)
	return text, nil
}

func (s *Store) storeCache(name, text string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[name] = text
}

// Format loads name and substitutes its "{key}" placeholders.
//
// Description:
//
//	Substitution is hand-rolled rather than text/template: unknown keys
//	are left as literal placeholders and missing parameters never raise,
//	which the spec requires and text/template does not support without
//	extra scaffolding.
//
// Inputs:
//   - name: The resolved prompt name (see Name).
//   - parameters: Values substituted for each "{key}" occurrence in the
//     template text.
//
// Outputs:
//   - string: The substituted prompt text.
//   - error: Propagated from Load if name is not found.
//
// Thread Safety: Safe for concurrent use.
func (s *Store) Format(name string, parameters map[string]string) (string, error) {
	text, err := s.Load(name)
	if err != nil {
		return "", err
	}
	return substitute(text, parameters), nil
}

func substitute(text string, parameters map[string]string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] != '{' {
			b.WriteByte(text[i])
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '}')
		if end < 0 {
			b.WriteString(text[i:])
			break
		}
		key := text[i+1 : i+1+end]
		if value, ok := parameters[key]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(text[i : i+1+end+1])
		}
		i = i + 1 + end + 1
	}
	return b.String()
}

// FormatAvailableKeys renders available_keys per spec §4.6: "-"-prefixed
// lines, or "None" if empty.
func FormatAvailableKeys(keys []string) string {
	if len(keys) == 0 {
		return "None"
	}
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(k)
	}
	return b.String()
}
