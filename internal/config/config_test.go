package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFailsFastWithoutDefaultModel(t *testing.T) {
	t.Setenv("LLM__DefaultModel", "")
	_, err := Load(nil)
	require.ErrorIs(t, err, ErrMissingDefaultModel)
}

func TestLoadReadsDefaultModelAndDOP(t *testing.T) {
	t.Setenv("LLM__DefaultModel", "claude-3-opus")
	t.Setenv("THAUM_TREESITTER_DOP", "4")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "claude-3-opus", cfg.DefaultModel)
	require.Equal(t, 4, cfg.TreeSitterDOP)
}

func TestLoadRejectsInvalidDOP(t *testing.T) {
	t.Setenv("LLM__DefaultModel", "claude-3-opus")
	t.Setenv("THAUM_TREESITTER_DOP", "not-a-number")

	_, err := Load(nil)
	require.Error(t, err)
}

func TestCollectPromptOverrides(t *testing.T) {
	overrides := collectPromptOverrides([]string{
		"THAUM_PROMPT_COMPRESS_FUNCTION=compress_function_v3",
		"THAUM_PROMPT_=ignored",
		"UNRELATED=1",
	})
	require.Equal(t, map[string]string{"COMPRESS_FUNCTION": "compress_function_v3"}, overrides)
}

func TestConfigPromptOverrideLookup(t *testing.T) {
	cfg := &Config{PromptOverrides: map[string]string{"OPTIMIZE_FUNCTION": "custom_name"}}
	name, ok := cfg.PromptOverride("optimize", "function")
	require.True(t, ok)
	require.Equal(t, "custom_name", name)

	_, ok = cfg.PromptOverride("optimize", "class")
	require.False(t, ok)
}
