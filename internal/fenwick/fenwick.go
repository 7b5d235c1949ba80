// Package fenwick implements an append-only Fenwick (binary indexed) tree.
//
// The tree stores a growing sequence of non-negative integers and answers
// prefix-sum and "which element contains this offset" queries in O(log n).
// Appending is O(log n): the new node's value is assembled from the nodes it
// covers, so no rebuild is ever needed as the sequence grows.
package fenwick

import "math/bits"

// Tree is a Fenwick tree over an append-only sequence. The zero value is an
// empty tree ready to use.
type Tree struct {
	nodes []int // nodes[i-1] holds the sum of the 1-based range (i-lowbit(i), i]
	total int
}

// Len returns the number of elements appended so far.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Total returns the sum of all elements.
func (t *Tree) Total() int {
	return t.total
}

// Append adds v (which must be >= 0) as the next element.
func (t *Tree) Append(v int) {
	i := len(t.nodes) + 1
	low := i & -i
	sum := v
	for j := i - 1; j > i-low; j -= j & -j {
		sum += t.nodes[j-1]
	}
	t.nodes = append(t.nodes, sum)
	t.total += v
}

// Prefix returns the sum of the first n elements. n is clamped to [0, Len()].
func (t *Tree) Prefix(n int) int {
	if n <= 0 {
		return 0
	}
	if n >= len(t.nodes) {
		return t.total
	}
	sum := 0
	for i := n; i > 0; i -= i & -i {
		sum += t.nodes[i-1]
	}
	return sum
}

// At returns the value of element i (0-based).
func (t *Tree) At(i int) int {
	if i < 0 || i >= len(t.nodes) {
		return 0
	}
	return t.Prefix(i+1) - t.Prefix(i)
}

// Search returns the 0-based element whose span contains offset, together with
// the remaining offset inside that element. Element i spans
// [Prefix(i), Prefix(i+1)). When offset >= Total the returned index is Len().
// Elements with value 0 never contain an offset.
func (t *Tree) Search(offset int) (index, remainder int) {
	if offset < 0 {
		return 0, 0
	}
	n := len(t.nodes)
	if n == 0 {
		return 0, offset
	}
	pos := 0
	rem := offset
	for step := 1 << (bits.Len(uint(n)) - 1); step > 0; step >>= 1 {
		next := pos + step
		if next <= n && t.nodes[next-1] <= rem {
			pos = next
			rem -= t.nodes[next-1]
		}
	}
	return pos, rem
}

// Reset empties the tree, keeping its allocation.
func (t *Tree) Reset() {
	t.nodes = t.nodes[:0]
	t.total = 0
}
