/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bingo

import "sort"

// Line is a set of five square indices that wins when fully marked.
type Line [Size]int

// Lines holds the five rows, five columns and two diagonals.
var Lines = [...]Line{
	{0, 1, 2, 3, 4},
	{5, 6, 7, 8, 9},
	{10, 11, 12, 13, 14},
	{15, 16, 17, 18, 19},
	{20, 21, 22, 23, 24},
	{0, 5, 10, 15, 20},
	{1, 6, 11, 16, 21},
	{2, 7, 12, 17, 22},
	{3, 8, 13, 18, 23},
	{4, 9, 14, 19, 24},
	{0, 6, 12, 18, 24},
	{4, 8, 12, 16, 20},
}

// Result is the outcome of a win check.
type Result struct {
	Squares  map[int]bool
	Lines    []int
	HasBingo bool
}

// CheckWin reports every line fully covered by marked, and the union of
// their squares.
func CheckWin(marked map[int]bool) Result {
	res := Result{
		Squares: make(map[int]bool),
	}

	for i, line := range Lines {
		complete := true
		for _, idx := range line {
			if !marked[idx] {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}

		res.Lines = append(res.Lines, i)
		for _, idx := range line {
			res.Squares[idx] = true
		}
	}

	res.HasBingo = len(res.Lines) > 0

	return res
}

// SortedSquares returns the winning squares in ascending order.
func (r Result) SortedSquares() []int {
	out := make([]int, 0, len(r.Squares))
	for idx := range r.Squares {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
