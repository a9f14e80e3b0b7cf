package docstore

import (
	"errors"

	"github.com/alexedwards/argon2id"
)

// Hasher turns a plaintext credential into a storable hash.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encodedHash string) (bool, error)
}

// Argon2Hasher hashes credentials with argon2id.
type Argon2Hasher struct {
	params *argon2id.Params
}

// NewArgon2Hasher returns a hasher using p, or argon2id.DefaultParams when
// p is nil.
func NewArgon2Hasher(p *argon2id.Params) *Argon2Hasher {
	if p == nil {
		p = argon2id.DefaultParams
	}
	return &Argon2Hasher{params: p}
}

// Hash returns an encoded $argon2id$v=19$m=... string.
func (h *Argon2Hasher) Hash(plain string) (string, error) {
	if h == nil || h.params == nil {
		return "", errors.New("argon2id params not set")
	}
	return argon2id.CreateHash(plain, h.params)
}

// Verify compares a plaintext credential against an encoded hash.
func (h *Argon2Hasher) Verify(plain, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain, encodedHash)
}
