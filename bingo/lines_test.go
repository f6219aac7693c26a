package bingo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(idx ...int) map[int]bool {
	m := make(map[int]bool, len(idx))
	for _, i := range idx {
		m[i] = true
	}
	return m
}

func TestLinesAreFixed(t *testing.T) {
	require.Len(t, Lines, 12)

	seen := make(map[Line]bool)
	for _, line := range Lines {
		assert.False(t, seen[line], "duplicate line %v", line)
		seen[line] = true
		for _, idx := range line {
			assert.True(t, idx >= 0 && idx < Cells)
		}
	}
}

func TestCheckWin(t *testing.T) {
	tests := []struct {
		name     string
		marked   map[int]bool
		hasBingo bool
		lines    []int
		squares  []int
	}{
		{
			name:     "nothing marked",
			marked:   set(),
			hasBingo: false,
			squares:  []int{},
		},
		{
			name:     "free space alone",
			marked:   set(FreeSpace),
			hasBingo: false,
			squares:  []int{},
		},
		{
			name:     "first row",
			marked:   set(0, 1, 2, 3, 4),
			hasBingo: true,
			lines:    []int{0},
			squares:  []int{0, 1, 2, 3, 4},
		},
		{
			name:     "four of a row",
			marked:   set(0, 1, 2, 3, FreeSpace),
			hasBingo: false,
			squares:  []int{},
		},
		{
			name:     "middle column through free space",
			marked:   set(2, 7, FreeSpace, 17, 22),
			hasBingo: true,
			lines:    []int{7},
			squares:  []int{2, 7, 12, 17, 22},
		},
		{
			name:     "both diagonals",
			marked:   set(0, 6, 12, 18, 24, 4, 8, 16, 20),
			hasBingo: true,
			lines:    []int{10, 11},
			squares:  []int{0, 4, 6, 8, 12, 16, 18, 20, 24},
		},
		{
			name:     "row and column share a corner",
			marked:   set(0, 1, 2, 3, 4, 5, 10, 15, 20),
			hasBingo: true,
			lines:    []int{0, 5},
			squares:  []int{0, 1, 2, 3, 4, 5, 10, 15, 20},
		},
		{
			name:     "out of range indices are ignored",
			marked:   set(-1, 25, 99),
			hasBingo: false,
			squares:  []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckWin(tt.marked)

			assert.Equal(t, tt.hasBingo, res.HasBingo)
			assert.Equal(t, tt.lines, res.Lines)
			assert.Equal(t, tt.squares, res.SortedSquares())
		})
	}
}

func TestCheckWin_EveryLineWins(t *testing.T) {
	for i, line := range Lines {
		res := CheckWin(set(line[:]...))

		require.True(t, res.HasBingo, "line %d", i)
		assert.Contains(t, res.Lines, i)
		for _, idx := range line {
			assert.True(t, res.Squares[idx])
		}
	}
}

func TestCheckWin_Idempotent(t *testing.T) {
	marked := set(0, 1, 2, 3, 4, 9, 14)

	first := CheckWin(marked)
	second := CheckWin(marked)

	assert.Equal(t, first, second)
	assert.Equal(t, set(0, 1, 2, 3, 4, 9, 14), marked)
}
