package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordHasherCost(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, DefaultPasswordCost},
		{-1, DefaultPasswordCost},
		{1, bcrypt.MinCost},
		{5, 5},
	}
	for _, tc := range cases {
		if tc.want == DefaultPasswordCost && testing.Short() {
			continue
		}
		h, err := NewPasswordHasher(tc.in)
		if err != nil {
			t.Fatalf("cost %d: %v", tc.in, err)
		}
		if h.Cost() != tc.want {
			t.Fatalf("cost %d: got %d want %d", tc.in, h.Cost(), tc.want)
		}
	}
}

func TestHashAndVerify(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	a, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("hashes of the same password must be salted")
	}
	if !h.Verify("correct horse", a) || !h.Verify("correct horse", b) {
		t.Fatal("verify failed for correct password")
	}
	if h.Verify("wrong horse", a) {
		t.Fatal("verify accepted wrong password")
	}
	if h.Verify("correct horse", "not-a-hash") {
		t.Fatal("verify accepted malformed hash")
	}
	h.VerifyDummy("anything")

	if _, err := h.Hash(strings.Repeat("x", MaxPasswordBytes+1)); err == nil {
		t.Fatal("expected overlong password to fail")
	}
}

func TestHashesFromOtherCostsStillVerify(t *testing.T) {
	low, err := NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	high, err := NewPasswordHasher(bcrypt.MinCost + 1)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := low.Hash("longpass1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !high.Verify("longpass1", hash) {
		t.Fatal("hash from a lower cost must still verify")
	}
}
