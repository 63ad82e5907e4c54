package ast

import (
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Required languages at parity per spec §4.1.
const (
	LangCSharp     = "csharp"
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangRust       = "rust"
	LangGo         = "go"
)

type languageDef struct {
	grammar func() *sitter.Language
	query   string
	exts    []string
}

var registry = map[string]languageDef{
	LangGo:         {grammar: golang.GetLanguage, query: goQuery, exts: []string{".go"}},
	LangPython:     {grammar: python.GetLanguage, query: pythonQuery, exts: []string{".py"}},
	LangJavaScript: {grammar: javascript.GetLanguage, query: javascriptQuery, exts: []string{".js", ".jsx", ".mjs", ".cjs"}},
	LangTypeScript: {grammar: typescript.GetLanguage, query: typescriptQuery, exts: []string{".ts", ".tsx"}},
	LangCSharp:     {grammar: csharp.GetLanguage, query: csharpQuery, exts: []string{".cs"}},
	LangRust:       {grammar: rust.GetLanguage, query: rustQuery, exts: []string{".rs"}},
}

// New builds the ParserBinding for language.
//
// Description:
//
//	Looks language up in the registry, compiles its capture query against
//	the registered tree-sitter grammar, and returns the bound
//	ParserBinding. Returns an error only when the language id is unknown or
//	its query fails to compile; callers that want the "no binding, skip"
//	behavior from spec §4.1 should check Supported(language) first, or use
//	NewOrSkip directly.
//
// Inputs:
//   - language: A registered language id, e.g. LangGo.
//   - opts: Construction options (currently WithLogger).
//
// Outputs:
//   - ParserBinding: The bound parser, ready for Parse.
//   - error: Non-nil if language is unregistered or its query won't compile.
func New(language string, opts ...Option) (ParserBinding, error) {
	def, ok := registry[language]
	if !ok {
		return nil, fmt.Errorf("ast: unsupported language %q", language)
	}
	return newQueryBinding(language, def.grammar(), def.query, opts...)
}

// Supported reports whether language has a registered binding.
func Supported(language string) bool {
	_, ok := registry[language]
	return ok
}

// Extensions returns the file extensions associated with language, or nil
// if the language is unknown.
func Extensions(language string) []string {
	def, ok := registry[language]
	if !ok {
		return nil
	}
	return def.exts
}

// LanguageForExtension returns the language id whose extension list
// contains ext (including the leading dot), and true if found.
func LanguageForExtension(ext string) (string, bool) {
	for lang, def := range registry {
		for _, e := range def.exts {
			if e == ext {
				return lang, true
			}
		}
	}
	return "", false
}

// Languages returns every registered language id.
func Languages() []string {
	langs := make([]string, 0, len(registry))
	for lang := range registry {
		langs = append(langs, lang)
	}
	return langs
}

// NewOrSkip builds a binding for language without ever returning an error.
//
// Description:
//
//	Wraps New for the extractor's own call site: an unsupported language or
//	a query-compile failure is logged and reported as (nil, false) rather
//	than an error, matching the "extractor logs and skips; this is not an
//	error" behavior spec §4.1 requires for unrecognized languages.
//
// Inputs:
//   - language: A language id that may or may not be registered.
//   - logger: Receives a Warn on skip. Falls back to slog.Default() if nil.
//   - opts: Construction options forwarded to New.
//
// Outputs:
//   - ParserBinding: The bound parser, or nil if skipped.
//   - bool: true if a binding was constructed, false if skipped.
func NewOrSkip(language string, logger *slog.Logger, opts ...Option) (ParserBinding, bool) {
	if logger == nil {
		logger = slog.Default()
	}
	if !Supported(language) {
		logger.Warn("ast: no parser binding for language, skipping", slog.String("language", language))
		return nil, false
	}
	binding, err := New(language, opts...)
	if err != nil {
		logger.Warn("ast: failed to construct parser binding, skipping", slog.String("language", language), slog.String("error", err.Error()))
		return nil, false
	}
	return binding, true
}
