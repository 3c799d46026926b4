package lobby

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	codeLength         = 6
	fallbackCodeLength = 8
	codeAttempts       = 5
)

// NormalizeCode canonicalizes a user typed room code: NFKC folding, then
// only letters and digits are kept, upper-cased.
func NormalizeCode(raw string) string {
	folded := norm.NFKC.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

func randomHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// newCode draws a code not present in taken. Must be called with the store lock held.
func newCode(taken map[string]*Room) string {
	for i := 0; i < codeAttempts; i++ {
		code := NormalizeCode(randomHex(codeLength))
		if _, exists := taken[code]; !exists {
			return code
		}
	}
	return NormalizeCode(randomHex(fallbackCodeLength))
}
