/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bingo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultPrompts is the built-in pool of icebreaker prompts.
var DefaultPrompts = []string{
	"Has a pet",
	"Speaks more than two languages",
	"Has run a marathon",
	"Was born in another country",
	"Plays a musical instrument",
	"Has been skydiving",
	"Is left-handed",
	"Has met a celebrity",
	"Can juggle",
	"Has a twin",
	"Loves spicy food",
	"Has never broken a bone",
	"Drinks coffee every day",
	"Has worked remotely",
	"Has visited five continents",
	"Is a night owl",
	"Has written code today",
	"Knows how to knit",
	"Has a garden",
	"Has been on TV",
	"Collects something unusual",
	"Can cook a signature dish",
	"Has ridden a motorcycle",
	"Reads before bed",
	"Has a hidden talent",
	"Learned something new this week",
	"Has climbed a mountain",
	"Prefers tea over coffee",
	"Has volunteered this year",
	"Can name every planet in order",
	"Has camped under the stars",
	"Has lived in three or more cities",
	"Owns a board game collection",
	"Has given a public talk",
	"Sings in the shower",
	"Has changed careers",
}

// NormalizePool trims every prompt, drops blanks, and removes duplicates
// that differ only by case. The first spelling of each prompt is kept, in
// order of appearance.
func NormalizePool(pool []string) []string {
	fold := cases.Fold()

	seen := make(map[string]bool, len(pool))
	out := make([]string, 0, len(pool))

	for _, p := range pool {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}

		key := fold.String(p)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, p)
	}

	return out
}

// LoadPrompts reads one prompt per line. Lines starting with # are comments.
func LoadPrompts(r io.Reader) ([]string, error) {
	var prompts []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	return prompts, nil
}
