package auth

import "golang.org/x/crypto/bcrypt"

// KeyHasher defines hashing strategy for actor access keys.
type KeyHasher interface {
	Hash(key string) (string, error)
	Compare(hash string, key string) error
}

// BcryptHasher uses bcrypt to hash access keys.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates BcryptHasher with provided cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns bcrypt hash for provided key.
func (h *BcryptHasher) Hash(key string) (string, error) {
	encoded, err := bcrypt.GenerateFromPassword([]byte(key), h.cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Compare checks key against stored hash.
func (h *BcryptHasher) Compare(hash string, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}

// KeyVerifier checks access keys against a single hashed secret. The
// plaintext key is discarded once hashed.
type KeyVerifier struct {
	hasher KeyHasher
	hash   string
}

// NewKeyVerifier hashes key with hasher.
func NewKeyVerifier(hasher KeyHasher, key string) (*KeyVerifier, error) {
	hash, err := hasher.Hash(key)
	if err != nil {
		return nil, err
	}
	return &KeyVerifier{hasher: hasher, hash: hash}, nil
}

// Verify reports whether key matches the configured secret.
func (v *KeyVerifier) Verify(key string) bool {
	return v.hasher.Compare(v.hash, key) == nil
}
