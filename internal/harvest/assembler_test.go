package harvest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleOrdersVersionsAscending(t *testing.T) {
	t.Parallel()

	// Insertion order is irrelevant; assembly always sorts.
	set := map[int]string{
		9: "ninth",
		2: "second",
		5: "fifth",
		1: "first",
	}

	transcript := Assemble(set)
	require.Equal(t, []int{1, 2, 5, 9}, transcript.Versions())

	rendered := transcript.Render()
	require.Less(t, strings.Index(rendered, "<version_1>"), strings.Index(rendered, "<version_2>"))
	require.Less(t, strings.Index(rendered, "<version_2>"), strings.Index(rendered, "<version_5>"))
	require.Less(t, strings.Index(rendered, "<version_5>"), strings.Index(rendered, "<version_9>"))
}

func TestAssembleSparseSet(t *testing.T) {
	t.Parallel()

	set := map[int]string{}
	for v := 1; v <= 10; v++ {
		if v == 7 {
			continue
		}
		set[v] = "content"
	}

	transcript := Assemble(set)
	require.Len(t, transcript.Blocks, 9)
	require.NotContains(t, transcript.Versions(), 7)

	rendered := transcript.Render()
	require.NotContains(t, rendered, "<version_7>")
	require.Contains(t, rendered, "<version_6>")
	require.Contains(t, rendered, "<version_8>")
}

func TestRenderFormat(t *testing.T) {
	t.Parallel()

	transcript := Assemble(map[int]string{
		1: "alpha",
		2: "beta",
	})
	require.Equal(t, "<version_1>\nalpha\n</version_1>\n\n<version_2>\nbeta\n</version_2>", transcript.Render())
}

func TestAssembleEmpty(t *testing.T) {
	t.Parallel()

	transcript := Assemble(nil)
	require.True(t, transcript.Empty())
	require.Empty(t, transcript.Render())
}
