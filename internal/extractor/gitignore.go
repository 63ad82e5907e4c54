package extractor

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreRule is one non-comment, non-blank line of a .gitignore file.
type gitignoreRule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
}

// loadGitignore reads projectRoot/.gitignore, if present, into an ordered
// rule list. A missing .gitignore is not an error — it simply means no
// project-specific exclusions. Rules are kept in file order since
// negation semantics depend on later rules overriding earlier ones.
func loadGitignore(projectRoot string) ([]gitignoreRule, error) {
	f, err := os.Open(filepath.Join(projectRoot, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var rules []gitignoreRule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		rule := gitignoreRule{pattern: trimmed}
		if strings.HasPrefix(rule.pattern, "!") {
			rule.negate = true
			rule.pattern = rule.pattern[1:]
		}
		if strings.HasSuffix(rule.pattern, "/") {
			rule.dirOnly = true
			rule.pattern = strings.TrimSuffix(rule.pattern, "/")
		}
		if strings.Contains(rule.pattern, "/") {
			rule.anchored = true
			rule.pattern = strings.TrimPrefix(rule.pattern, "/")
		}
		rules = append(rules, rule)
	}
	return rules, scanner.Err()
}

// gitignoreMatches reports whether relPath (slash-separated, relative to
// the project root) is excluded by rules. Later rules override earlier
// ones, and a "!"-prefixed rule re-includes a path an earlier rule excluded
// — the negation semantics spec §4.2 requires be preserved.
func gitignoreMatches(rules []gitignoreRule, relPath string, isDir bool) bool {
	excluded := false
	for _, rule := range rules {
		if rule.dirOnly && !isDir && !dirPrefixMatch(rule, relPath) {
			continue
		}
		if matchesRule(rule, relPath) {
			excluded = !rule.negate
		}
	}
	return excluded
}

func dirPrefixMatch(rule gitignoreRule, relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if ok, _ := filepath.Match(rule.pattern, part); ok {
			return true
		}
	}
	return false
}

func matchesRule(rule gitignoreRule, relPath string) bool {
	if rule.anchored {
		ok, _ := filepath.Match(rule.pattern, relPath)
		if ok {
			return true
		}
		return strings.HasPrefix(relPath, rule.pattern+"/")
	}
	parts := strings.Split(relPath, "/")
	for i, part := range parts {
		if ok, _ := filepath.Match(rule.pattern, part); ok {
			return true
		}
		if ok, _ := filepath.Match(rule.pattern, strings.Join(parts[i:], "/")); ok {
			return true
		}
	}
	return false
}
