package prompts

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeOverrider struct {
	overrides map[string]string
}

func (f *fakeOverrider) PromptOverride(prefix, symbolType string) (string, bool) {
	name, ok := f.overrides[prefix+"_"+symbolType]
	return name, ok
}

func TestNameAppliesCompressFunctionException(t *testing.T) {
	s := NewStore(nil)
	require.Equal(t, "compress_function_v2", s.Name(PrefixCompress, SymbolTypeFunction))
	require.Equal(t, "optimize_function", s.Name(PrefixOptimize, SymbolTypeFunction))
}

func TestNameHonorsOverride(t *testing.T) {
	s := NewStore(&fakeOverrider{overrides: map[string]string{"optimize_function": "custom_name"}})
	require.Equal(t, "custom_name", s.Name(PrefixOptimize, SymbolTypeFunction))
}

func TestFormatSubstitutesKnownKeysAndLeavesUnknownLiteral(t *testing.T) {
	out := substitute("hello {name}, your key is {missing}", map[string]string{"name": "foo"})
	require.Equal(t, "hello foo, your key is {missing}", out)
}

func TestFormatUnterminatedBraceIsLiteral(t *testing.T) {
	out := substitute("broken {name", map[string]string{"name": "foo"})
	require.Equal(t, "broken {name", out)
}

func TestLoadAndFormatRealTemplate(t *testing.T) {
	s := NewStore(nil)
	text, err := s.Format("optimize_function", map[string]string{
		"symbolName":    "foo",
		"availableKeys": FormatAvailableKeys(nil),
		"sourceCode":    "func foo() {}",
	})
	require.NoError(t, err)
	require.Contains(t, text, "foo")
	require.Contains(t, text, "None")
}

func TestFormatAvailableKeys(t *testing.T) {
	require.Equal(t, "None", FormatAvailableKeys(nil))
	require.Equal(t, "- K1\n- K2", FormatAvailableKeys([]string{"K1", "K2"}))
}

func TestLoadManifestRejectsEmptyOverrideTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overrides:\n  OPTIMIZE_FUNCTION: \"\"\n"), 0o644))

	_, err := LoadManifest(path)
	require.Error(t, err)
}

func TestApplyManifestOverridesNameAndTemplateDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "optimize_function.txt"), []byte("custom template body"), 0o644))

	manifestPath := filepath.Join(dir, "manifest.yaml")
	manifestBody := "overrides:\n  OPTIMIZE_FUNCTION: optimize_function\ndir: " + dir + "\n"
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestBody), 0o644))

	m, err := LoadManifest(manifestPath)
	require.NoError(t, err)

	s := NewStore(nil)
	s.ApplyManifest(m)

	require.Equal(t, "optimize_function", s.Name(PrefixOptimize, SymbolTypeFunction))
	text, err := s.Load("optimize_function")
	require.NoError(t, err)
	require.Equal(t, "custom template body", text)
}

// TestFormatIsSafeForConcurrentUse guards the template cache against a data
// race: Compressor's phase fan-out calls Format from many goroutines
// against one shared Store.
func TestFormatIsSafeForConcurrentUse(t *testing.T) {
	s := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Format("optimize_function", map[string]string{
				"symbolName":    "foo",
				"availableKeys": FormatAvailableKeys(nil),
				"sourceCode":    "func foo() {}",
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestApplyManifestIsShadowedByEnvOverride(t *testing.T) {
	manifest := &Manifest{Overrides: map[string]string{"OPTIMIZE_FUNCTION": "from_manifest"}}
	s := NewStore(&fakeOverrider{overrides: map[string]string{"optimize_function": "from_env"}})
	s.ApplyManifest(manifest)

	require.Equal(t, "from_env", s.Name(PrefixOptimize, SymbolTypeFunction))
}
