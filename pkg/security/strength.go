// Package security provides password analysis for the vault: strength
// scoring, breach lookups against a k-anonymity service, and random
// password generation.
package security

import (
	"math"
	"unicode"
)

// Character pool sizes used for entropy estimation. Symbols covers the
// printable ASCII punctuation range; anything outside ASCII falls into the
// same bucket.
const (
	poolDigits    = 10
	poolLowercase = 26
	poolUppercase = 26
	poolSymbols   = 32
)

// maxEntropyBits is the entropy ceiling mapped to a score of 100. 128 bits
// is beyond practical brute force for any password.
const maxEntropyBits = 128

// commonScore is the fixed score assigned to passwords found in the
// embedded common-password list, regardless of their composition.
const commonScore = 4

// Score rates a password from 0 (unusable) to 100 (excellent). The score is
// deterministic and computed locally: estimated entropy from length and
// character variety, reduced for repeated characters and keyboard
// sequences. Passwords on the common-password list always score
// commonScore.
func Score(password string) int {
	runes := []rune(password)
	if len(runes) == 0 {
		return 0
	}
	if IsCommon(password) {
		return commonScore
	}

	entropy := float64(len(runes)) * math.Log2(float64(charPool(runes)))
	score := entropy / maxEntropyBits * 100

	// Repeated characters add length without adding much entropy. Scale by
	// the unique-character ratio, floored at half so long passphrases with
	// natural repetition are not punished into the weak range.
	score *= 0.5 + 0.5*uniqueRatio(runes)

	// Runs like "abc" or "1234" are the first thing guessers try.
	score -= float64(sequenceRuns(runes)) * 3

	switch {
	case score < 1:
		return 1
	case score > 100:
		return 100
	}
	return int(math.Round(score))
}

// charPool returns the size of the smallest character pool a brute-force
// attacker would need to cover the password.
func charPool(runes []rune) int {
	var lower, upper, digit, symbol bool
	for _, r := range runes {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	pool := 0
	if lower {
		pool += poolLowercase
	}
	if upper {
		pool += poolUppercase
	}
	if digit {
		pool += poolDigits
	}
	if symbol {
		pool += poolSymbols
	}
	return pool
}

// uniqueRatio returns the fraction of distinct characters, in (0, 1].
func uniqueRatio(runes []rune) float64 {
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		seen[r] = struct{}{}
	}
	return float64(len(seen)) / float64(len(runes))
}

// sequenceRuns counts maximal runs of three or more characters that ascend
// or descend by one code point, such as "abcd" or "4321". Each run counts
// once regardless of its length.
func sequenceRuns(runes []rune) int {
	if len(runes) < 3 {
		return 0
	}

	runs := 0
	runLen := 1
	dir := 0
	for i := 1; i < len(runes); i++ {
		step := int(runes[i]) - int(runes[i-1])
		if (step == 1 || step == -1) && step == dir {
			runLen++
			continue
		}
		if runLen >= 3 {
			runs++
		}
		if step == 1 || step == -1 {
			dir = step
			runLen = 2
		} else {
			dir = 0
			runLen = 1
		}
	}
	if runLen >= 3 {
		runs++
	}
	return runs
}
