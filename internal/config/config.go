// Package config loads the explicit Config value Thaum's core is threaded
// with, read once at startup rather than re-read deep in call paths — see
// DESIGN.md's note on the teacher's global-mutable-state pattern.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingDefaultModel is returned by Load when LLM__DefaultModel is unset.
var ErrMissingDefaultModel = errors.New("config: LLM__DefaultModel is required")

// Config bundles every environment-derived setting the core consumes.
// Exactly one Config is built at startup and passed into constructors.
// Provider credentials are not part of Config: the root package's
// NewDefaultLLMClient reads them from the environment itself.
type Config struct {
	// DefaultModel is the model string passed to LLMOptions when a call site
	// does not override it. Sourced from LLM__DefaultModel.
	DefaultModel string

	// PromptOverrides maps "<PREFIX>_<SYMBOLTYPE>" (upper-cased) to a
	// replacement prompt name, populated from THAUM_PROMPT_<PREFIX>_<SYMBOLTYPE>.
	PromptOverrides map[string]string

	// TreeSitterDOP bounds parser and intra-phase fan-out parallelism.
	// Sourced from THAUM_TREESITTER_DOP; defaults to runtime.NumCPU().
	TreeSitterDOP int

	// CacheDir is the directory backing the persistent CompressionCache.
	CacheDir string
}

// Load reads the environment into a Config.
//
// Description:
//
//	Attempts a best-effort .env load via godotenv first; a missing .env
//	file is normal in production and is logged at Debug, never treated as
//	fatal, mirroring the pack's godotenv usage. LLM__DefaultModel is the
//	one required variable; everything else has a documented default.
//
// Inputs:
//   - logger: Used for the .env-load debug line. Falls back to
//     slog.Default() if nil.
//
// Outputs:
//   - *Config: The populated configuration.
//   - error: ErrMissingDefaultModel if LLM__DefaultModel is unset, or a
//     parse error for a malformed numeric override.
func Load(logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", slog.String("error", err.Error()))
	}

	model := os.Getenv("LLM__DefaultModel")
	if model == "" {
		return nil, ErrMissingDefaultModel
	}

	dop := runtime.NumCPU()
	if raw := os.Getenv("THAUM_TREESITTER_DOP"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid THAUM_TREESITTER_DOP %q: %w", raw, err)
		}
		dop = n
	}

	cacheDir := os.Getenv("THAUM_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = ".thaum-cache"
	}

	return &Config{
		DefaultModel:    model,
		PromptOverrides: collectPromptOverrides(os.Environ()),
		TreeSitterDOP:   dop,
		CacheDir:        cacheDir,
	}, nil
}

const promptOverridePrefix = "THAUM_PROMPT_"

func collectPromptOverrides(environ []string) map[string]string {
	overrides := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, promptOverridePrefix) {
			continue
		}
		name := strings.TrimPrefix(key, promptOverridePrefix)
		if name == "" || value == "" {
			continue
		}
		overrides[name] = value
	}
	return overrides
}

// PromptOverride looks up an override for "<prefix>_<symbolType>", matching
// the env var THAUM_PROMPT_<PREFIX>_<SYMBOLTYPE>.
func (c *Config) PromptOverride(prefix, symbolType string) (string, bool) {
	key := strings.ToUpper(prefix + "_" + symbolType)
	name, ok := c.PromptOverrides[key]
	return name, ok
}
