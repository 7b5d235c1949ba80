// Package wrap computes how logical lines fold into terminal rows.
package wrap

import "github.com/vburojevic/filewatch/internal/fenwick"

// Rows returns the number of display rows a line of length bytes occupies at
// the given width: max(1, ceil(length/width)). A non-positive width has no
// legal wrap and yields 0.
func Rows(length, width int) int {
	if width <= 0 {
		return 0
	}
	if length <= 0 {
		return 1
	}
	return (length + width - 1) / width
}

// Index is a prefix sum of Rows over a sequence of lines at one width. It is
// filled lazily through Sync and reset whenever the width changes.
type Index struct {
	width int
	tree  fenwick.Tree
}

// Width returns the width the index was built for (0 when never synced).
func (x *Index) Width() int {
	return x.width
}

// Len returns the number of lines indexed.
func (x *Index) Len() int {
	return x.tree.Len()
}

// Total returns the number of rows across all indexed lines.
func (x *Index) Total() int {
	return x.tree.Total()
}

// Reset drops every entry and rebinds the index to width.
func (x *Index) Reset(width int) {
	x.width = width
	x.tree.Reset()
}

// Push appends a line of the given byte length.
func (x *Index) Push(length int) {
	x.tree.Append(Rows(length, x.width))
}

// Sync brings the index up to n lines at width, asking length(i) for each
// line not yet indexed. A width change or a shorter sequence rebuilds it.
func (x *Index) Sync(width, n int, length func(i int) int) {
	if width != x.width || n < x.tree.Len() {
		x.Reset(width)
	}
	for i := x.tree.Len(); i < n; i++ {
		x.Push(length(i))
	}
}

// Start returns the first row occupied by line pos.
func (x *Index) Start(pos int) int {
	return x.tree.Prefix(pos)
}

// RowsAt returns the number of rows line pos occupies.
func (x *Index) RowsAt(pos int) int {
	return x.tree.At(pos)
}

// Locate maps a global row onto the line containing it and the row offset
// inside that line. Rows at or past Total map to (Len(), row-Total).
func (x *Index) Locate(row int) (pos, offset int) {
	return x.tree.Search(row)
}
