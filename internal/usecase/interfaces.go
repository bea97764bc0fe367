package usecase

import (
	"context"

	"staurox/internal/domain"
)

// LogStore owns the per-bridge verification log. Mutating calls for one bridge
// are linearizable with respect to each other; reads may run concurrently and
// observe any consistent snapshot. Bridges are fully independent.
type LogStore interface {
	// CreateIfMissing is idempotent. A capacity mismatch against an existing
	// log returns *domain.ConfigurationConflictError.
	CreateIfMissing(ctx context.Context, bridgeID string, capacity int) (domain.LogInfo, error)

	// Append writes the entry at the write cursor, overwriting the oldest
	// entry once the ring is full, and returns the assigned sequence. If the
	// entry's digest is already retained it reports duplicate instead and
	// leaves the log untouched; the check and the write happen under the same
	// lock, so concurrent submissions of one payload admit exactly once. It
	// never fails for a validated entry on an existing log.
	Append(ctx context.Context, bridgeID string, entry domain.VerificationEntry) (sequence uint64, duplicate bool, err error)

	// Recent returns retained entries newest first. A non-nil before restricts
	// the result to sequences strictly below it.
	Recent(ctx context.Context, bridgeID string, limit int, before *uint64) ([]domain.VerificationEntry, error)

	// GetBySequence returns domain.ErrNotFound both for sequences never
	// admitted and for ones rotated out; the log keeps no tombstones.
	GetBySequence(ctx context.Context, bridgeID string, sequence uint64) (domain.VerificationEntry, error)

	// Info returns the log header, or domain.ErrNotFound if no log exists.
	Info(ctx context.Context, bridgeID string) (domain.LogInfo, error)
}

// PolicyEngine is the optional admission policy gate.
type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}
