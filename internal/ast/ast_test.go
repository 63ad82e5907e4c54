package ast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holo-q/thaum/internal/symbols"
)

func TestGoBindingExtractsFunction(t *testing.T) {
	binding, err := New(LangGo)
	require.NoError(t, err)

	src := []byte("package p\n\nfunc foo() int {\n\treturn 1\n}\n")
	syms, err := binding.Parse(context.Background(), src, "p.go")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	require.Equal(t, "foo", syms[0].Name)
	require.Equal(t, symbols.KindFunction, syms[0].Kind)
}

func TestPythonBindingExtractsClassAndMethod(t *testing.T) {
	binding, err := New(LangPython)
	require.NoError(t, err)

	src := []byte("class C:\n    def m(self):\n        pass\n")
	syms, err := binding.Parse(context.Background(), src, "c.py")
	require.NoError(t, err)

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "C")
	require.Contains(t, names, "m")
}

func TestUnsupportedLanguageIsNotAnError(t *testing.T) {
	require.False(t, Supported("cobol"))
	_, ok := NewOrSkip("cobol", nil)
	require.False(t, ok)
}

func TestLanguageForExtension(t *testing.T) {
	lang, ok := LanguageForExtension(".go")
	require.True(t, ok)
	require.Equal(t, LangGo, lang)

	_, ok = LanguageForExtension(".unknown")
	require.False(t, ok)
}

// TestGoBindingCharacterIsRuneOffsetAfterMultiByteContent guards against a
// byte/rune mismatch: a multi-byte comment before the captured name must not
// shift Start.Character, since CodeLocation is documented as byte-agnostic.
func TestGoBindingCharacterIsRuneOffsetAfterMultiByteContent(t *testing.T) {
	binding, err := New(LangGo)
	require.NoError(t, err)

	// The block comment before "bar" is 15 bytes of kana but only 5 runes;
	// Start.Character must count the latter, not the former.
	src := []byte("package p\n\n/* こんにちは */ func bar() int { return 2 }\n")
	syms, err := binding.Parse(context.Background(), src, "p.go")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	require.Equal(t, "bar", syms[0].Name)
	require.Equal(t, uint32(17), syms[0].Start.Character)
}

func TestRuneColumnConvertsByteOffsetToRuneCount(t *testing.T) {
	line := []byte("// こんにちは func")
	// "// こんにちは " is 19 bytes (3 ASCII + 5 kana * 3 bytes + 1 space) but
	// only 9 runes; byteCol must land on "func" at rune index 9, not 19.
	got := runeColumn(line, 0, 19)
	require.Equal(t, uint32(9), got)
}

func TestRuneColumnClampsOutOfRangeInput(t *testing.T) {
	require.Equal(t, uint32(0), runeColumn([]byte("abc"), 5, 2))
	require.Equal(t, uint32(3), runeColumn([]byte("abc"), 0, 100))
}
