package domain

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Attestation actions carried in the payload. The values match the source
// chain's instruction discriminators.
const (
	ActionTransferNative  uint8 = 0x01
	ActionTransferWrapped uint8 = 0x04
)

// Attestation is the canonical in-memory form of a decoded payload. It is
// transient: only its digest and a bounded summary survive admission.
type Attestation struct {
	Version         uint8
	EmitterChain    uint16
	EmitterAddress  [32]byte
	Nonce           uint32
	SourceTimestamp time.Time
	Action          uint8
	Amount          uint64
	TargetChain     uint16
	Recipient       [32]byte

	// Digest is the sha256 of the canonical encoding, attached by the codec.
	Digest []byte
}

// BridgeID returns the stable external identifier of the source chain /
// emitter pair this attestation claims to come from.
func (a Attestation) BridgeID() string {
	return fmt.Sprintf("%d:%s", a.EmitterChain, hex.EncodeToString(a.EmitterAddress[:]))
}

// GuardianSignature is one guardian's signature over the attestation digest.
type GuardianSignature struct {
	GuardianIndex uint8
	Signature     []byte
}

// PayloadSummary is the bounded-size extract retained per entry instead of the
// raw payload, keeping slots fixed-size.
type PayloadSummary struct {
	EmitterChain uint16 `json:"emitter_chain"`
	Nonce        uint32 `json:"nonce"`
	Action       uint8  `json:"action"`
	Amount       uint64 `json:"amount"`
	TargetChain  uint16 `json:"target_chain"`
}

// VerificationEntry is one admitted attestation in a bridge's log.
type VerificationEntry struct {
	Sequence        uint64
	Digest          []byte
	SourceTimestamp time.Time
	AdmittedAt      time.Time
	Summary         PayloadSummary
	RiskScore       float64
	Confirmation    ConfirmationLevel
}

// LogInfo is the fixed-size header of a bridge's verification log.
type LogInfo struct {
	BridgeID      string
	Address       string
	Capacity      int
	WriteCursor   int
	TotalAdmitted uint64
	CreatedAt     time.Time
}
