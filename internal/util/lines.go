package util

import (
	"sort"
	"strings"
)

// LineTable translates byte offsets to 1-based line numbers. Built once
// per source file; lookups are a binary search over line starts.
type LineTable struct {
	starts []int
}

func NewLineTable(source string) *LineTable {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineTable{starts: starts}
}

// LineAt returns the 1-based line containing offset. Offsets past the
// end of the source map to the last line.
func (t *LineTable) LineAt(offset int) int {
	if offset < 0 {
		return 1
	}
	i := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > offset })
	return i
}

// ExtractSnippet returns up to maxLines lines of context around the
// [start,end] line region (1-based, inclusive).
func ExtractSnippet(content string, start, end, maxLines int) string {
	if maxLines <= 0 {
		maxLines = 8
	}
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end < start {
		end = start
	}
	s := start - 1
	e := end - 1
	s = max(0, s-maxLines/2)
	e = min(len(lines)-1, e+maxLines/2)
	if s > e {
		return ""
	}
	return strings.Join(lines[s:e+1], "\n")
}
