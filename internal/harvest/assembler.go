package harvest

import (
	"fmt"
	"sort"
	"strings"
)

// Block is one version-tagged section of a transcript.
type Block struct {
	Version int
	Content string
}

// Transcript is the ordered, version-tagged concatenation of every
// successfully fetched bulletin. It is read-only after assembly.
type Transcript struct {
	Blocks []Block
}

// Assemble builds a Transcript from a finalized result set. Present versions
// are sorted ascending; absent versions are simply omitted, with no
// placeholder for the gap.
func Assemble(set map[int]string) Transcript {
	versions := make([]int, 0, len(set))
	for v := range set {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	blocks := make([]Block, 0, len(versions))
	for _, v := range versions {
		blocks = append(blocks, Block{Version: v, Content: set[v]})
	}
	return Transcript{Blocks: blocks}
}

// Render produces the transcript text: each block wrapped in version-boundary
// markers, joined by a blank line.
func (t Transcript) Render() string {
	parts := make([]string, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		parts = append(parts, fmt.Sprintf("<version_%d>\n%s\n</version_%d>", b.Version, b.Content, b.Version))
	}
	return strings.Join(parts, "\n\n")
}

// Versions lists the block versions in order.
func (t Transcript) Versions() []int {
	versions := make([]int, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		versions = append(versions, b.Version)
	}
	return versions
}

// Empty reports whether the transcript holds no blocks.
func (t Transcript) Empty() bool {
	return len(t.Blocks) == 0
}
