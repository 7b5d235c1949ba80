package fenwick

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreePrefix(t *testing.T) {
	t.Run("empty tree", func(t *testing.T) {
		var tr Tree
		assert.Equal(t, 0, tr.Len())
		assert.Equal(t, 0, tr.Total())
		assert.Equal(t, 0, tr.Prefix(5))
	})

	t.Run("matches naive prefix sums", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		var tr Tree
		var values []int
		for i := 0; i < 1000; i++ {
			v := rng.Intn(50)
			tr.Append(v)
			values = append(values, v)
		}
		sum := 0
		for n := 0; n <= len(values); n++ {
			require.Equal(t, sum, tr.Prefix(n), "prefix(%d)", n)
			if n < len(values) {
				require.Equal(t, values[n], tr.At(n))
				sum += values[n]
			}
		}
		assert.Equal(t, sum, tr.Total())
	})
}

func TestTreeSearch(t *testing.T) {
	t.Run("scenario rows", func(t *testing.T) {
		var tr Tree
		for _, v := range []int{1, 2, 1} {
			tr.Append(v)
		}
		cases := []struct {
			offset, index, rem int
		}{
			{0, 0, 0},
			{1, 1, 0},
			{2, 1, 1},
			{3, 2, 0},
			{4, 3, 0},
		}
		for _, c := range cases {
			idx, rem := tr.Search(c.offset)
			assert.Equal(t, c.index, idx, "offset %d", c.offset)
			assert.Equal(t, c.rem, rem, "offset %d", c.offset)
		}
	})

	t.Run("matches linear scan", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		var tr Tree
		var values []int
		for i := 0; i < 300; i++ {
			v := 1 + rng.Intn(9)
			tr.Append(v)
			values = append(values, v)
		}
		offset := 0
		for i, v := range values {
			for r := 0; r < v; r++ {
				idx, rem := tr.Search(offset)
				require.Equal(t, i, idx)
				require.Equal(t, r, rem)
				offset++
			}
		}
		idx, _ := tr.Search(offset)
		assert.Equal(t, len(values), idx)
	})

	t.Run("skips zero-valued elements", func(t *testing.T) {
		var tr Tree
		for _, v := range []int{0, 3, 0, 2} {
			tr.Append(v)
		}
		idx, rem := tr.Search(3)
		assert.Equal(t, 3, idx)
		assert.Equal(t, 0, rem)
	})
}

func TestTreeReset(t *testing.T) {
	var tr Tree
	tr.Append(4)
	tr.Append(5)
	tr.Reset()
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, tr.Total())
	tr.Append(2)
	assert.Equal(t, 2, tr.Prefix(1))
}

func BenchmarkTreeAppend(b *testing.B) {
	var tr Tree
	for i := 0; i < b.N; i++ {
		tr.Append(i & 127)
	}
}
