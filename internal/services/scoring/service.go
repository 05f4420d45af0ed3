// Package scoring holds the pure game rules: code format validation and
// positional-match feedback. Everything here is deterministic and free of
// room state.
package scoring

// Digit length bounds for a room. Fixed at room creation.
const (
	MinDigitLength = 3
	MaxDigitLength = 7
)

// ValidDigitLength reports whether n is an allowed room digit length
func ValidDigitLength(n int) bool {
	return n >= MinDigitLength && n <= MaxDigitLength
}

// ValidCode reports whether value is a well-formed secret or guess for the
// given digit length: exactly digitLength characters, all decimal digits.
// Repeated digits are permitted; that is the game's design, not an oversight.
func ValidCode(value string, digitLength int) bool {
	if len(value) != digitLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

// CountPositionalMatches returns the number of indices where guess and
// secret hold the same digit. There is no credit for a correct digit in the
// wrong position. A count equal to the digit length is a winning guess.
// Both arguments are assumed to already be validated to the same length.
func CountPositionalMatches(guess, secret string) int {
	n := len(guess)
	if len(secret) < n {
		n = len(secret)
	}
	correct := 0
	for i := 0; i < n; i++ {
		if guess[i] == secret[i] {
			correct++
		}
	}
	return correct
}
