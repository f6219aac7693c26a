/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bingo

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

const (
	// Size is the width and height of the grid.
	Size = 5

	// Cells is the number of squares on a board.
	Cells = Size * Size

	// FreeSpace is the index of the pre-marked center square.
	FreeSpace = Cells / 2

	// PromptsNeeded is the minimum number of unique prompts required to fill a board.
	PromptsNeeded = Cells - 1

	freeSpaceText = "FREE SPACE"
)

var (
	ErrPoolTooSmall  = errors.New("prompt pool too small")
	ErrInvalidSquare = errors.New("invalid square")
)

// Square is one cell of the grid. Its identity is its index on the board.
type Square struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	IsMarked    bool   `json:"is_marked"`
	IsFreeSpace bool   `json:"is_free_space"`
}

// Board holds the 25 squares in row-major order.
type Board [Cells]Square

// NewBoard shuffles the normalized pool with rng and lays the first 24
// prompts around a marked free space at the center.
func NewBoard(pool []string, rng *rand.Rand) (Board, error) {
	var b Board

	prompts := NormalizePool(pool)
	if len(prompts) < PromptsNeeded {
		return b, fmt.Errorf("%w: have %d unique prompts, need %d", ErrPoolTooSmall, len(prompts), PromptsNeeded)
	}

	for i := len(prompts) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		prompts[i], prompts[j] = prompts[j], prompts[i]
	}

	next := 0
	for i := range b {
		if i == FreeSpace {
			b[i] = Square{
				ID:          i,
				Text:        freeSpaceText,
				IsMarked:    true,
				IsFreeSpace: true,
			}
			continue
		}

		b[i] = Square{
			ID:   i,
			Text: prompts[next],
		}
		next++
	}

	return b, nil
}

// Toggle flips the marked state of square id. The free space never
// changes; toggling it reports false.
func (b *Board) Toggle(id int) (bool, error) {
	if id < 0 || id >= Cells {
		return false, fmt.Errorf("%w: %d", ErrInvalidSquare, id)
	}

	if b[id].IsFreeSpace {
		return false, nil
	}

	b[id].IsMarked = !b[id].IsMarked

	return true, nil
}

// Marked returns the set of marked square indices.
func (b *Board) Marked() map[int]bool {
	marked := make(map[int]bool, Cells)
	for _, sq := range b {
		if sq.IsMarked {
			marked[sq.ID] = true
		}
	}
	return marked
}

func (b *Board) Winning() Result {
	return CheckWin(b.Marked())
}
