package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// SecretBytes is the entropy of every opaque token secret (256 bits).
const SecretBytes = 32

type SecretGenerator interface {
	NewSecret() (string, error)
}

type RandomSecretGenerator struct{}

func NewRandomSecretGenerator() RandomSecretGenerator { return RandomSecretGenerator{} }

func (RandomSecretGenerator) NewSecret() (string, error) {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RandomFingerprintValue returns a uniform value in [0, max).
func RandomFingerprintValue(max int64) (int64, error) {
	if max <= 0 {
		return 0, fmt.Errorf("fingerprint bound must be positive, got %d", max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, fmt.Errorf("draw fingerprint value: %w", err)
	}
	return n.Int64(), nil
}
