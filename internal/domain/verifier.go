package domain

// MessageVerifier is the authenticity capability supplied by the host
// environment. It is authoritative: the state machine does not re-derive the
// result locally. Implementations must be side-effect free and safe to invoke
// repeatedly for the same payload.
type MessageVerifier interface {
	VerifySignedMessage(payload []byte, signatures []GuardianSignature) bool
}
