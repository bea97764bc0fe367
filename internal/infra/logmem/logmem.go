// Package logmem is the in-memory verification log store: a fixed ring of
// entry slots plus a digest set per bridge, kept strictly in sync on every
// overwrite. It backs tests and no-db deployments; logdb is the durable twin.
package logmem

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"staurox/internal/domain"
	"staurox/internal/infra/crypto"
)

type Store struct {
	mu      sync.RWMutex
	bridges map[string]*ringState
	clock   func() time.Time
}

type ringState struct {
	info  domain.LogInfo
	slots []slot
	seen  map[string]struct{}
}

type slot struct {
	occupied bool
	entry    domain.VerificationEntry
}

func New() *Store {
	return NewWithClock(nil)
}

func NewWithClock(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		bridges: make(map[string]*ringState),
		clock:   clock,
	}
}

func (s *Store) CreateIfMissing(ctx context.Context, bridgeID string, capacity int) (domain.LogInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.LogInfo{}, err
	}
	if bridgeID == "" {
		return domain.LogInfo{}, domain.ErrBridgeRequired
	}
	if capacity <= 0 {
		return domain.LogInfo{}, errors.New("capacity must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.bridges[bridgeID]; ok {
		if state.info.Capacity != capacity {
			return domain.LogInfo{}, &domain.ConfigurationConflictError{
				BridgeID: bridgeID,
				Expected: state.info.Capacity,
				Actual:   capacity,
			}
		}
		return state.info, nil
	}

	state := &ringState{
		info: domain.LogInfo{
			BridgeID:  bridgeID,
			Address:   crypto.DeriveLogAddress(bridgeID),
			Capacity:  capacity,
			CreatedAt: s.clock().UTC(),
		},
		slots: make([]slot, capacity),
		seen:  make(map[string]struct{}, capacity),
	}
	s.bridges[bridgeID] = state
	return state.info, nil
}

func (s *Store) Append(ctx context.Context, bridgeID string, entry domain.VerificationEntry) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.bridges[bridgeID]
	if !ok {
		return 0, false, domain.ErrNotFound
	}

	// Duplicate detection happens under the same lock as the write, so two
	// concurrent submissions of one payload admit exactly once.
	if _, seen := state.seen[hex.EncodeToString(entry.Digest)]; seen {
		return 0, true, nil
	}

	cursor := state.info.WriteCursor
	// Remove-before-insert: the evicted digest leaves the seen set before the
	// new one enters, so the set always mirrors the retained slots exactly.
	if state.slots[cursor].occupied {
		delete(state.seen, hex.EncodeToString(state.slots[cursor].entry.Digest))
	}

	entry.Sequence = state.info.TotalAdmitted
	entry.Digest = cloneDigest(entry.Digest)
	state.slots[cursor] = slot{occupied: true, entry: entry}
	state.seen[hex.EncodeToString(entry.Digest)] = struct{}{}

	state.info.TotalAdmitted++
	state.info.WriteCursor = (cursor + 1) % state.info.Capacity
	return entry.Sequence, false, nil
}

func (s *Store) ContainsDigest(ctx context.Context, bridgeID string, digest []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.bridges[bridgeID]
	if !ok {
		return false, domain.ErrNotFound
	}
	_, seen := state.seen[hex.EncodeToString(digest)]
	return seen, nil
}

func (s *Store) Recent(ctx context.Context, bridgeID string, limit int, before *uint64) ([]domain.VerificationEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.bridges[bridgeID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	out := make([]domain.VerificationEntry, 0, limit)
	// Walk backwards from the most recently written slot; sequences in the
	// ring are contiguous, so descending slot order is descending sequence.
	capacity := state.info.Capacity
	for i := 1; i <= capacity && len(out) < limit; i++ {
		idx := ((state.info.WriteCursor - i) % capacity + capacity) % capacity
		sl := state.slots[idx]
		if !sl.occupied {
			break
		}
		if before != nil && sl.entry.Sequence >= *before {
			continue
		}
		out = append(out, cloneEntry(sl.entry))
	}
	return out, nil
}

func (s *Store) GetBySequence(ctx context.Context, bridgeID string, sequence uint64) (domain.VerificationEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.VerificationEntry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.bridges[bridgeID]
	if !ok {
		return domain.VerificationEntry{}, domain.ErrNotFound
	}
	if sequence >= state.info.TotalAdmitted {
		return domain.VerificationEntry{}, domain.ErrNotFound
	}
	idx := int(sequence % uint64(state.info.Capacity))
	sl := state.slots[idx]
	if !sl.occupied || sl.entry.Sequence != sequence {
		return domain.VerificationEntry{}, domain.ErrNotFound
	}
	return cloneEntry(sl.entry), nil
}

func (s *Store) Info(ctx context.Context, bridgeID string) (domain.LogInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.LogInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.bridges[bridgeID]
	if !ok {
		return domain.LogInfo{}, domain.ErrNotFound
	}
	return state.info, nil
}

func cloneDigest(digest []byte) []byte {
	if digest == nil {
		return nil
	}
	out := make([]byte, len(digest))
	copy(out, digest)
	return out
}

func cloneEntry(entry domain.VerificationEntry) domain.VerificationEntry {
	entry.Digest = cloneDigest(entry.Digest)
	return entry
}
