package wallet

import (
	"fmt"
	"strings"
)

// DefaultVerifyPositions are the 0-based word positions a user is asked to
// re-enter after writing down a new mnemonic (words 3, 6 and 10).
var DefaultVerifyPositions = []int{2, 5, 9}

// VerifyWord is one challenge in the seed-phrase confirmation step.
type VerifyWord struct {
	Position int    // 0-based
	Word     string // expected answer
}

// PickVerifyWords returns the challenge words of mnemonic at positions.
func PickVerifyWords(mnemonic string, positions []int) ([]VerifyWord, error) {
	words := strings.Fields(mnemonic)
	out := make([]VerifyWord, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(words) {
			return nil, fmt.Errorf("verify position %d out of range for %d words", p, len(words))
		}
		out = append(out, VerifyWord{Position: p, Word: words[p]})
	}
	return out, nil
}

// VerifyWords checks the user's answers, keyed by 0-based position.
// Answers are compared case-insensitively after trimming, and every
// challenged position must be answered.
func VerifyWords(mnemonic string, positions []int, answers map[int]string) bool {
	challenge, err := PickVerifyWords(mnemonic, positions)
	if err != nil || len(challenge) == 0 {
		return false
	}
	for _, c := range challenge {
		got, ok := answers[c.Position]
		if !ok || !strings.EqualFold(strings.TrimSpace(got), c.Word) {
			return false
		}
	}
	return true
}
