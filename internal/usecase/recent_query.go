package usecase

import (
	"context"

	"staurox/internal/domain"
)

// RecentVerifications is the read-only query surface over a bridge's log.
type RecentVerifications struct {
	Logs     LogStore
	MaxLimit int
}

const defaultMaxLimit = 100

// Recent returns retained entries newest first. The limit is clamped to
// MaxLimit; zero or negative limits fall back to MaxLimit.
func (q *RecentVerifications) Recent(ctx context.Context, bridgeID string, limit int, before *uint64) ([]domain.VerificationEntry, error) {
	max := q.MaxLimit
	if max <= 0 {
		max = defaultMaxLimit
	}
	if limit <= 0 || limit > max {
		limit = max
	}
	return q.Logs.Recent(ctx, bridgeID, limit, before)
}

// GetBySequence returns domain.ErrNotFound for sequences that were never
// admitted and for ones that have been overwritten; callers cannot tell the
// two apart and must read NotFound as "not currently retained".
func (q *RecentVerifications) GetBySequence(ctx context.Context, bridgeID string, sequence uint64) (domain.VerificationEntry, error) {
	return q.Logs.GetBySequence(ctx, bridgeID, sequence)
}

// Info exposes the log header for a bridge.
func (q *RecentVerifications) Info(ctx context.Context, bridgeID string) (domain.LogInfo, error) {
	return q.Logs.Info(ctx, bridgeID)
}
