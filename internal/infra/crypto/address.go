package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

const logAddressSeed = "verification-log"

// DeriveLogAddress maps a bridge id to its log's address. The derivation is a
// pure keyed hash: any caller can locate a bridge's log without a registry.
func DeriveLogAddress(bridgeID string) string {
	h := sha256.New()
	h.Write([]byte(logAddressSeed))
	h.Write([]byte(bridgeID))
	return hex.EncodeToString(h.Sum(nil))
}
