package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const sha256HexLength = 64

// Hasher is the one-way digest contract consumed by the engine.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// LooksHashed reports whether value is structurally a known digest: a
// 64-char lowercase SHA-256 hex string or an argon2id PHC string. Anything
// else is treated as legacy plaintext by the engine.
func LooksHashed(value string) bool {
	if strings.HasPrefix(value, "$"+argonAlgorithmID+"$") {
		return true
	}
	if len(value) != sha256HexLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// SHA256 is the deterministic hex hasher matching the portal's stored
// credential format.
type SHA256 struct{}

// NewSHA256 creates the legacy-compatible hasher.
func NewSHA256() *SHA256 {
	return &SHA256{}
}

// Hash returns the lowercase hex SHA-256 digest of plaintext.
func (*SHA256) Hash(plaintext string) (string, error) {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:]), nil
}

// Verify reports whether plaintext digests to digest. A mismatch is false,
// never an error.
func (*SHA256) Verify(plaintext, digest string) (bool, error) {
	sum := sha256.Sum256([]byte(plaintext))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(digest)) == 1, nil
}
