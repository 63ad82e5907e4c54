package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// OptimizationFingerprint builds spec §4.5's per-symbol compression cache key.
//
// Description:
//
//	Formats "optimization_{name}_{file_path}_{start.line}_{level}" exactly,
//	with no dependence on available_keys or compression_level beyond the
//	literal level argument — this is what lets a later phase over the same
//	symbol become an honest cache hit (see DESIGN.md's Open Question #4)
//	rather than a forced recompute. Must be reproduced exactly across
//	rewrites to preserve hit rates.
//
// Inputs:
//   - name: The symbol's name.
//   - filePath: The symbol's source file path.
//   - startLine: The symbol's start line.
//   - level: The compression level/phase scope.
//
// Outputs:
//   - string: The fingerprint key.
func OptimizationFingerprint(name, filePath string, startLine uint32, level int) string {
	return fmt.Sprintf("optimization_%s_%s_%d_%d", name, filePath, startLine, level)
}

// KeyFingerprint builds spec §4.5's per-level key-extraction cache key.
//
// Description:
//
//	Formats "key_L{level}_{first16hex of SHA-256(join("|", summaries))}".
//	Intentionally NOT invariant under reordering of summaries (spec §8
//	property 4) — only an identical concatenation in an identical order
//	produces the same key.
//
// Inputs:
//   - level: The compression level the key extraction ran at.
//   - summaries: The ordered summaries being joined and hashed.
//
// Outputs:
//   - string: The fingerprint key.
func KeyFingerprint(level int, summaries []string) string {
	joined := strings.Join(summaries, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("key_L%d_%s", level, hex.EncodeToString(sum[:])[:16])
}
