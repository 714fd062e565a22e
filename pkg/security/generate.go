package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// ErrInvalidParameters is returned by GeneratePassword when the requested
// length is below 1, no character class is enabled, or the length cannot
// fit one character from every enabled class.
var ErrInvalidParameters = errors.New("security: invalid generator parameters")

const (
	digitChars     = "0123456789"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	symbolChars    = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// GeneratePassword returns a cryptographically random password of the given
// length drawn from the enabled character classes. Every enabled class is
// guaranteed at least one character.
func GeneratePassword(length int, numbers, uppercase, lowercase, symbols bool) (string, error) {
	var classes []string
	if numbers {
		classes = append(classes, digitChars)
	}
	if uppercase {
		classes = append(classes, uppercaseChars)
	}
	if lowercase {
		classes = append(classes, lowercaseChars)
	}
	if symbols {
		classes = append(classes, symbolChars)
	}

	if length < 1 || len(classes) == 0 || length < len(classes) {
		return "", ErrInvalidParameters
	}

	pool := ""
	for _, class := range classes {
		pool += class
	}

	out := make([]byte, length)

	// One character from each enabled class first, the remainder from the
	// combined pool, then shuffle so class positions are not predictable.
	for i, class := range classes {
		c, err := randomByte(class)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	for i := len(classes); i < length; i++ {
		c, err := randomByte(pool)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	if err := shuffle(out); err != nil {
		return "", err
	}

	return string(out), nil
}

func randomByte(set string) (byte, error) {
	i, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// shuffle performs a Fisher-Yates shuffle using crypto/rand.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
