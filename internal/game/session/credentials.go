package session

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialStore maps usernames to bcrypt password hashes.
// It is not safe for concurrent use; the owning Registry serializes access.
//
// Invariant: at most one hash per username, and a stored hash is never replaced.
type CredentialStore struct {
	cost   int
	hashes map[string][]byte
}

// NewCredentialStore creates an empty store hashing with the given bcrypt cost.
// A cost outside [bcrypt.MinCost, bcrypt.MaxCost] falls back to bcrypt.DefaultCost.
func NewCredentialStore(cost int) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialStore{
		cost:   cost,
		hashes: make(map[string][]byte),
	}
}

// SetOrVerify stores a salted hash of password for a new username, or checks
// password against the stored hash for a known one.
//
// Postcondition: Returns nil when the username was new or the password matches.
// Returns ErrWrongPassword on mismatch, leaving the store unchanged.
func (c *CredentialStore) SetOrVerify(username, password string) error {
	if hashed, ok := c.hashes[username]; ok {
		err := bcrypt.CompareHashAndPassword(hashed, bcryptInput(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrWrongPassword
		default:
			return fmt.Errorf("verifying password for %q: %w", username, err)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword(bcryptInput(password), c.cost)
	if err != nil {
		return fmt.Errorf("hashing password for %q: %w", username, err)
	}
	c.hashes[username] = hashed
	return nil
}

// bcryptInput maps a password of any length to the 44-byte base64 SHA-256
// digest, below bcrypt's 72-byte input limit, so every password hashes and
// no two passwords collide by sharing a 72-byte prefix.
func bcryptInput(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// Has reports whether a credential record exists for username.
func (c *CredentialStore) Has(username string) bool {
	_, ok := c.hashes[username]
	return ok
}

// Len returns the number of credential records.
func (c *CredentialStore) Len() int {
	return len(c.hashes)
}

// hash returns the stored hash for username.
func (c *CredentialStore) hash(username string) ([]byte, bool) {
	h, ok := c.hashes[username]
	return h, ok
}
