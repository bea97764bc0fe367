package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"staurox/internal/domain"
)

// GuardianSet verifies attestation payloads against a fixed set of guardian
// ed25519 keys. Signatures are computed over the sha256 of the payload bytes.
// Verification is pure: no I/O, safe to call repeatedly for the same payload.
type GuardianSet struct {
	keys   []ed25519.PublicKey
	quorum int
}

// NewGuardianSet builds a verifier over the given keys. A quorum of 0 picks
// the 2/3+1 default.
func NewGuardianSet(keys []ed25519.PublicKey, quorum int) (*GuardianSet, error) {
	if len(keys) == 0 {
		return nil, errors.New("guardian set requires at least one key")
	}
	for i, key := range keys {
		if len(key) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("guardian key %d has size %d, want %d", i, len(key), ed25519.PublicKeySize)
		}
	}
	if quorum <= 0 {
		quorum = (2*len(keys))/3 + 1
	}
	if quorum > len(keys) {
		return nil, fmt.Errorf("quorum %d exceeds guardian set size %d", quorum, len(keys))
	}
	return &GuardianSet{keys: keys, quorum: quorum}, nil
}

// NewGuardianSetFromHex parses comma-separated hex-encoded public keys, the
// form carried in configuration.
func NewGuardianSetFromHex(keysHex string, quorum int) (*GuardianSet, error) {
	parts := strings.Split(keysHex, ",")
	keys := make([]ed25519.PublicKey, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		raw, err := hex.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("decode guardian key: %w", err)
		}
		keys = append(keys, ed25519.PublicKey(raw))
	}
	return NewGuardianSet(keys, quorum)
}

func (g *GuardianSet) Size() int   { return len(g.keys) }
func (g *GuardianSet) Quorum() int { return g.quorum }

// VerifySignedMessage reports whether at least a quorum of distinct guardians
// signed the payload digest. Unknown indices and repeated indices do not count.
func (g *GuardianSet) VerifySignedMessage(payload []byte, signatures []domain.GuardianSignature) bool {
	digest := sha256.Sum256(payload)
	seen := make(map[uint8]bool, len(signatures))
	valid := 0
	for _, sig := range signatures {
		if int(sig.GuardianIndex) >= len(g.keys) || seen[sig.GuardianIndex] {
			continue
		}
		if len(sig.Signature) != ed25519.SignatureSize {
			continue
		}
		if ed25519.Verify(g.keys[sig.GuardianIndex], digest[:], sig.Signature) {
			seen[sig.GuardianIndex] = true
			valid++
		}
	}
	return valid >= g.quorum
}
