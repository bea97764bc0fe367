package domain

// SubmissionStatus is the terminal classification of one submission. Every
// submission lands on exactly one of these in a single step; there are no
// retries at this layer.
type SubmissionStatus string

const (
	StatusAdmitted  SubmissionStatus = "admitted"
	StatusDuplicate SubmissionStatus = "duplicate"
	StatusRejected  SubmissionStatus = "rejected"
)

// RejectReason classifies a rejected submission. A duplicate is not a
// rejection: resubmitting an already-retained attestation is a safe no-op.
type RejectReason string

const (
	ReasonStale              RejectReason = "stale"
	ReasonFutureTimestamp    RejectReason = "future_timestamp"
	ReasonInvalidAttestation RejectReason = "invalid_attestation"
	ReasonPolicyDenied       RejectReason = "policy_denied"
)

// SubmissionResult is the outcome of verify-and-admit. Sequence is set only
// for admitted submissions, Reason only for rejected ones.
type SubmissionResult struct {
	Status   SubmissionStatus
	Sequence uint64
	Reason   RejectReason
	Digest   []byte
}
