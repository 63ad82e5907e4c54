package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holo-q/thaum/internal/symbols"
)

func loc(line uint32) symbols.CodeLocation { return symbols.CodeLocation{Line: line} }

func TestBuildSingleFunctionNoChildren(t *testing.T) {
	foo := &symbols.CodeSymbol{Name: "foo", FilePath: "a.go", Start: loc(1), End: loc(3)}

	roots := NewAssembler().Build([]*symbols.CodeSymbol{foo})
	require.Len(t, roots, 1)
	require.Same(t, foo, roots[0])
	require.Empty(t, roots[0].Children)
}

func TestBuildClassWithTwoMethodsInStartLineOrder(t *testing.T) {
	class := &symbols.CodeSymbol{Name: "C", FilePath: "a.py", Start: loc(1), End: loc(20)}
	m2 := &symbols.CodeSymbol{Name: "m2", FilePath: "a.py", Start: loc(8), End: loc(12)}
	m1 := &symbols.CodeSymbol{Name: "m1", FilePath: "a.py", Start: loc(2), End: loc(5)}

	// Deliberately out of order input to exercise the sort.
	roots := NewAssembler().Build([]*symbols.CodeSymbol{class, m2, m1})

	require.Len(t, roots, 1)
	require.Same(t, class, roots[0])
	require.Equal(t, []*symbols.CodeSymbol{m1, m2}, roots[0].Children)
}

func TestBuildNoOverlappingSiblingsAndNoSelfAncestry(t *testing.T) {
	a := &symbols.CodeSymbol{Name: "a", FilePath: "x.go", Start: loc(1), End: loc(5)}
	b := &symbols.CodeSymbol{Name: "b", FilePath: "x.go", Start: loc(6), End: loc(10)}

	roots := NewAssembler().Build([]*symbols.CodeSymbol{a, b})
	require.Len(t, roots, 2)
	for _, r := range roots {
		require.Empty(t, r.Children)
	}
}

func TestBuildGroupsPerFileInFirstSeenOrder(t *testing.T) {
	b1 := &symbols.CodeSymbol{Name: "b1", FilePath: "b.go", Start: loc(1), End: loc(2)}
	a1 := &symbols.CodeSymbol{Name: "a1", FilePath: "a.go", Start: loc(1), End: loc(2)}

	roots := NewAssembler().Build([]*symbols.CodeSymbol{b1, a1})
	require.Equal(t, []*symbols.CodeSymbol{b1, a1}, roots)
}
