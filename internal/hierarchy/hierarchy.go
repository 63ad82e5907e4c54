// Package hierarchy implements HierarchyAssembler (spec §4.7): turning a
// flat, per-file list of symbols into a containment tree.
package hierarchy

import (
	"sort"

	"github.com/holo-q/thaum/internal/symbols"
)

// Assembler builds containment trees from flat symbol lists. It holds no
// state and is safe for concurrent use.
type Assembler struct{}

// NewAssembler constructs an Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Build turns a flat symbol list into a containment tree.
//
// Description:
//
//	Groups flatSymbols by file and, within each file, assigns each symbol
//	to the smallest other symbol in the same file whose line range
//	strictly contains it (buildForFile). Symbols with no parent become
//	roots. Roots are emitted file-by-file, files in the order first seen
//	in flatSymbols, and within a file sorted by Start position. The
//	algorithm is deterministic given a deterministic input ordering.
//
// Inputs:
//   - flatSymbols: A flat, unordered-across-files symbol list, e.g. from
//     symbols.SymbolMap.All().
//
// Outputs:
//   - []*symbols.CodeSymbol: The root symbols, each with Children populated.
func (a *Assembler) Build(flatSymbols []*symbols.CodeSymbol) []*symbols.CodeSymbol {
	byFile := make(map[string][]*symbols.CodeSymbol)
	var fileOrder []string
	for _, s := range flatSymbols {
		if _, seen := byFile[s.FilePath]; !seen {
			fileOrder = append(fileOrder, s.FilePath)
		}
		byFile[s.FilePath] = append(byFile[s.FilePath], s)
	}

	var roots []*symbols.CodeSymbol
	for _, file := range fileOrder {
		roots = append(roots, buildForFile(byFile[file])...)
	}
	return roots
}

func buildForFile(fileSymbols []*symbols.CodeSymbol) []*symbols.CodeSymbol {
	children := make(map[*symbols.CodeSymbol][]*symbols.CodeSymbol)
	parentOf := make(map[*symbols.CodeSymbol]*symbols.CodeSymbol)

	for _, s := range fileSymbols {
		var best *symbols.CodeSymbol
		for _, candidate := range fileSymbols {
			if candidate == s || !candidate.Contains(s) {
				continue
			}
			if best == nil || candidate.LineSpan() < best.LineSpan() {
				best = candidate
			}
		}
		if best != nil {
			parentOf[s] = best
			children[best] = append(children[best], s)
		}
	}

	var roots []*symbols.CodeSymbol
	for _, s := range fileSymbols {
		kids := children[s]
		if len(kids) > 0 {
			sort.SliceStable(kids, func(i, j int) bool { return kids[i].Start.Less(kids[j].Start) })
			s.Children = kids
		}
		if _, hasParent := parentOf[s]; !hasParent {
			roots = append(roots, s)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].Start.Less(roots[j].Start) })
	return roots
}
