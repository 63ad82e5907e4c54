package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCrawlDirDeterministicOrdering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.go", "package p\nfunc bbb() {}\n")
	writeFile(t, dir, "a.go", "package p\nfunc aaa() {}\nfunc zzz() {}\n")

	e := New(0, nil)
	first, err := e.CrawlDir(context.Background(), dir, "go")
	require.NoError(t, err)
	second, err := e.CrawlDir(context.Background(), dir, "go")
	require.NoError(t, err)

	var firstNames, secondNames []string
	for _, s := range first.All() {
		firstNames = append(firstNames, s.Name)
	}
	for _, s := range second.All() {
		secondNames = append(secondNames, s.Name)
	}
	require.Equal(t, firstNames, secondNames)
	require.Equal(t, []string{"aaa", "zzz", "bbb"}, firstNames) // a.go before b.go, sorted within file
}

func TestCrawlDirEmptyProjectReturnsEmptyMap(t *testing.T) {
	dir := t.TempDir()
	e := New(0, nil)
	m, err := e.CrawlDir(context.Background(), dir, "go")
	require.NoError(t, err)
	require.Equal(t, 0, m.Len())
}

func TestCrawlDirRespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "ignored/\n")
	writeFile(t, dir, "kept.go", "package p\nfunc kept() {}\n")
	writeFile(t, dir, "ignored/skip.go", "package p\nfunc skip() {}\n")

	e := New(0, nil)
	m, err := e.CrawlDir(context.Background(), dir, "go")
	require.NoError(t, err)

	var names []string
	for _, s := range m.All() {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"kept"}, names)
}

func TestGetCodeClampsToFileExtents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.go", "package p\nfunc foo() {\n\treturn\n}\n")

	e := New(0, nil)
	m, err := e.CrawlDir(context.Background(), dir, "go")
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	code, ok := e.GetCode(m.All()[0])
	require.True(t, ok)
	require.Contains(t, code, "foo")
}
