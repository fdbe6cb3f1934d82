package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprinter derives the stored form of an opaque token secret. It runs on
// every authenticated request, so it is a single keyed SHA-256 pass.
type Fingerprinter struct {
	key []byte
}

func NewFingerprinter(salt string) *Fingerprinter {
	return &Fingerprinter{key: []byte(salt)}
}

func (f *Fingerprinter) Fingerprint(secret string) string {
	mac := hmac.New(sha256.New, f.key)
	_, _ = mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

func (f *Fingerprinter) Matches(secret, fingerprint string) bool {
	want := f.Fingerprint(secret)
	return subtle.ConstantTimeCompare([]byte(want), []byte(fingerprint)) == 1
}
