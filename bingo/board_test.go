package bingo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(n int) []string {
	pool := make([]string, n)
	for i := range pool {
		pool[i] = fmt.Sprintf("prompt %02d", i)
	}
	return pool
}

func TestNewBoard_FreeSpace(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		board, err := NewBoard(DefaultPrompts, Seeded(seed))
		require.NoError(t, err)

		free := 0
		for i, sq := range board {
			require.Equal(t, i, sq.ID)
			if sq.IsFreeSpace {
				free++
				assert.Equal(t, FreeSpace, i)
				assert.True(t, sq.IsMarked)
			} else {
				assert.False(t, sq.IsMarked, "square %d starts marked", i)
			}
		}
		require.Equal(t, 1, free)
	}
}

func TestNewBoard_PromptsAreDistinctPoolMembers(t *testing.T) {
	// Given: a pool of exactly 24 prompts
	pool := testPool(PromptsNeeded)

	// When: a board is dealt
	board, err := NewBoard(pool, Seeded(7))
	require.NoError(t, err)

	// Then: the non-center cells are a permutation of the pool
	var got []string
	for _, sq := range board {
		if sq.IsFreeSpace {
			continue
		}
		got = append(got, sq.Text)
	}
	assert.ElementsMatch(t, pool, got)
}

func TestNewBoard_LargerPoolHasNoRepeats(t *testing.T) {
	board, err := NewBoard(DefaultPrompts, Seeded(99))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, sq := range board {
		if sq.IsFreeSpace {
			continue
		}
		require.False(t, seen[sq.Text], "repeated prompt %q", sq.Text)
		seen[sq.Text] = true
		assert.Contains(t, DefaultPrompts, sq.Text)
	}
	assert.Len(t, seen, PromptsNeeded)
}

func TestNewBoard_Deterministic(t *testing.T) {
	a, err := NewBoard(DefaultPrompts, Seeded(42))
	require.NoError(t, err)
	b, err := NewBoard(DefaultPrompts, Seeded(42))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNewBoard_DoesNotMutatePool(t *testing.T) {
	pool := testPool(30)
	before := append([]string(nil), pool...)

	_, err := NewBoard(pool, Seeded(3))
	require.NoError(t, err)

	assert.Equal(t, before, pool)
}

func TestNewBoard_PoolTooSmall(t *testing.T) {
	tests := []struct {
		name string
		pool []string
	}{
		{"empty", nil},
		{"twenty three", testPool(PromptsNeeded - 1)},
		{"duplicates only count once", append(testPool(PromptsNeeded-1), "PROMPT 00")},
		{"blanks are dropped", append(testPool(PromptsNeeded-1), "   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoard(tt.pool, Seeded(1))
			require.ErrorIs(t, err, ErrPoolTooSmall)
		})
	}
}

func TestBoard_Toggle(t *testing.T) {
	board, err := NewBoard(DefaultPrompts, Seeded(1))
	require.NoError(t, err)

	t.Run("twice restores", func(t *testing.T) {
		changed, err := board.Toggle(3)
		require.NoError(t, err)
		require.True(t, changed)
		require.True(t, board[3].IsMarked)

		changed, err = board.Toggle(3)
		require.NoError(t, err)
		require.True(t, changed)
		require.False(t, board[3].IsMarked)
	})

	t.Run("free space is immutable", func(t *testing.T) {
		changed, err := board.Toggle(FreeSpace)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, board[FreeSpace].IsMarked)
	})

	t.Run("out of range", func(t *testing.T) {
		for _, id := range []int{-1, Cells, 100} {
			_, err := board.Toggle(id)
			require.ErrorIs(t, err, ErrInvalidSquare)
		}
	})
}

func TestBoard_Marked(t *testing.T) {
	board, err := NewBoard(DefaultPrompts, Seeded(1))
	require.NoError(t, err)

	assert.Equal(t, map[int]bool{FreeSpace: true}, board.Marked())

	_, _ = board.Toggle(0)
	_, _ = board.Toggle(24)
	assert.Equal(t, map[int]bool{0: true, FreeSpace: true, 24: true}, board.Marked())
}

func TestNormalizePool(t *testing.T) {
	got := NormalizePool([]string{
		"  Has a pet ",
		"has A PET",
		"",
		"Plays   guitar",
		"\t",
		"Café owner",
		"CAFÉ OWNER",
	})

	assert.Equal(t, []string{"Has a pet", "Plays guitar", "Café owner"}, got)
}

func TestLoadPrompts(t *testing.T) {
	input := strings.Join([]string{
		"# icebreakers",
		"Has a pet",
		"",
		"  Can juggle  ",
		"#Has a twin",
	}, "\n")

	got, err := LoadPrompts(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Has a pet", "Can juggle"}, got)
}

func TestDefaultPromptsFillABoard(t *testing.T) {
	assert.GreaterOrEqual(t, len(NormalizePool(DefaultPrompts)), PromptsNeeded)
}
