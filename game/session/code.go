package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeLength is the number of digits in a session code. Six digits keeps codes
// short enough to type on a controller while leaving a million-code space.
const codeLength = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a random 6-digit numeric session code, zero-padded.
// Uniqueness among live sessions is enforced by the Registry, which retries
// generation on collision.
func GenerateCode() string {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken, at which
		// point the process has bigger problems.
		panic(fmt.Sprintf("session: generating code: %v", err))
	}
	return fmt.Sprintf("%0*d", codeLength, n)
}
