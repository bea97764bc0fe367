// Package attest implements the wire codec for bridge attestation payloads:
// parsing raw bytes into the canonical form, re-encoding, and the content
// digest used for duplicate detection. It performs structural validation only;
// authenticity is checked elsewhere.
package attest

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"staurox/internal/domain"
)

const (
	// Version is the only payload version this codec recognizes.
	Version uint8 = 1

	// PayloadSize is the exact length of an encoded attestation payload.
	PayloadSize = 90
)

// Decode parses a raw attestation payload, validates it structurally and
// attaches the content digest. No state is touched on any error path.
func Decode(raw []byte) (domain.Attestation, error) {
	if len(raw) != PayloadSize {
		return domain.Attestation{}, fmt.Errorf("%w: payload is %d bytes, want %d", domain.ErrMalformedPayload, len(raw), PayloadSize)
	}
	if raw[0] != Version {
		return domain.Attestation{}, fmt.Errorf("%w: version %d", domain.ErrUnsupportedVersion, raw[0])
	}

	a := domain.Attestation{
		Version:      raw[0],
		EmitterChain: binary.BigEndian.Uint16(raw[1:3]),
		Nonce:        binary.BigEndian.Uint32(raw[35:39]),
		Action:       raw[47],
		Amount:       binary.BigEndian.Uint64(raw[48:56]),
		TargetChain:  binary.BigEndian.Uint16(raw[56:58]),
	}
	copy(a.EmitterAddress[:], raw[3:35])
	copy(a.Recipient[:], raw[58:90])

	ts := int64(binary.BigEndian.Uint64(raw[39:47]))
	if ts <= 0 {
		return domain.Attestation{}, fmt.Errorf("%w: source timestamp %d", domain.ErrFieldOutOfRange, ts)
	}
	a.SourceTimestamp = time.Unix(ts, 0).UTC()

	if a.EmitterChain == 0 {
		return domain.Attestation{}, fmt.Errorf("%w: emitter chain 0", domain.ErrFieldOutOfRange)
	}
	if a.TargetChain == 0 {
		return domain.Attestation{}, fmt.Errorf("%w: target chain 0", domain.ErrFieldOutOfRange)
	}
	switch a.Action {
	case domain.ActionTransferNative, domain.ActionTransferWrapped:
	default:
		return domain.Attestation{}, fmt.Errorf("%w: action 0x%02x", domain.ErrFieldOutOfRange, a.Action)
	}

	a.Digest = Digest(a)
	return a, nil
}

// Encode produces the canonical encoding of an attestation. Decode(Encode(a))
// round-trips for any structurally valid attestation.
func Encode(a domain.Attestation) []byte {
	out := make([]byte, PayloadSize)
	out[0] = Version
	binary.BigEndian.PutUint16(out[1:3], a.EmitterChain)
	copy(out[3:35], a.EmitterAddress[:])
	binary.BigEndian.PutUint32(out[35:39], a.Nonce)
	binary.BigEndian.PutUint64(out[39:47], uint64(a.SourceTimestamp.Unix()))
	out[47] = a.Action
	binary.BigEndian.PutUint64(out[48:56], a.Amount)
	binary.BigEndian.PutUint16(out[56:58], a.TargetChain)
	copy(out[58:90], a.Recipient[:])
	return out
}

// Digest hashes the canonical encoding, not the raw submitted bytes, so
// semantically identical re-encodings produce the same digest.
func Digest(a domain.Attestation) []byte {
	sum := sha256.Sum256(Encode(a))
	return sum[:]
}

// Summary extracts the bounded per-entry summary retained in log slots.
func Summary(a domain.Attestation) domain.PayloadSummary {
	return domain.PayloadSummary{
		EmitterChain: a.EmitterChain,
		Nonce:        a.Nonce,
		Action:       a.Action,
		Amount:       a.Amount,
		TargetChain:  a.TargetChain,
	}
}
