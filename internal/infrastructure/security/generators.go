// Package security provides id generation and surface token utilities
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// ElementIDGenerator issues lowercase ULIDs that sort in creation order,
// even when many are minted within one millisecond.
type ElementIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewElementIDGenerator() *ElementIDGenerator {
	return &ElementIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID returns the next element id
func (g *ElementIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Now(), g.entropy)
	if err != nil {
		// monotonic entropy overflowed within this millisecond
		id = ulid.Make()
	}
	return "el_" + strings.ToLower(id.String())
}

// GenerateSessionID returns a random session id
func GenerateSessionID() string {
	return uuid.NewString()
}

// GenerateSecureKey creates a cryptographically secure random key and returns it as a hex string.
// This is ideal for generating JWT secrets.
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length/2) // Each byte becomes two hex characters
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
