// Package logdb is the Postgres-backed verification log store. Appends run in
// a transaction holding a row lock on the log header, so conflicting writes to
// one bridge's log serialize and either commit whole or leave nothing behind.
package logdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"staurox/internal/domain"
	"staurox/internal/infra/crypto"
	"staurox/internal/infra/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db    *gorm.DB
	clock func() time.Time
}

func New(store *db.Store) *Store {
	return NewWithClock(store, nil)
}

func NewWithClock(store *db.Store, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	var gdb *gorm.DB
	if store != nil {
		gdb = store.DB
	}
	return &Store{db: gdb, clock: clock}
}

var errDBUnavailable = errors.New("db unavailable")

func (s *Store) CreateIfMissing(ctx context.Context, bridgeID string, capacity int) (domain.LogInfo, error) {
	if s.db == nil {
		return domain.LogInfo{}, errDBUnavailable
	}
	if bridgeID == "" {
		return domain.LogInfo{}, domain.ErrBridgeRequired
	}
	if capacity <= 0 {
		return domain.LogInfo{}, errors.New("capacity must be positive")
	}

	address := crypto.DeriveLogAddress(bridgeID)
	header := db.BridgeLogModel{
		Address:   address,
		BridgeID:  bridgeID,
		Capacity:  capacity,
		CreatedAt: s.clock().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&header)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race or the log already existed; re-read below.
			return nil
		}
		slots := make([]db.LogSlotModel, capacity)
		for i := range slots {
			slots[i] = db.LogSlotModel{Address: address, SlotIndex: i}
		}
		return tx.CreateInBatches(&slots, 500).Error
	})
	if err != nil {
		return domain.LogInfo{}, err
	}

	var existing db.BridgeLogModel
	if err := s.db.WithContext(ctx).Take(&existing, "address = ?", address).Error; err != nil {
		return domain.LogInfo{}, err
	}
	if existing.Capacity != capacity {
		return domain.LogInfo{}, &domain.ConfigurationConflictError{
			BridgeID: bridgeID,
			Expected: existing.Capacity,
			Actual:   capacity,
		}
	}
	return infoFromModel(existing), nil
}

func (s *Store) Append(ctx context.Context, bridgeID string, entry domain.VerificationEntry) (uint64, bool, error) {
	if s.db == nil {
		return 0, false, errDBUnavailable
	}

	address := crypto.DeriveLogAddress(bridgeID)
	var sequence uint64
	var duplicate bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var header db.BridgeLogModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&header, "address = ?", address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		// The header row lock serializes appends per bridge, so checking the
		// digest here makes duplicate detection atomic with the write.
		var seen int64
		if err := tx.Model(&db.LogSlotModel{}).
			Where("address = ? AND occupied AND digest = ?", address, entry.Digest).
			Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			duplicate = true
			return nil
		}

		summaryJSON, err := json.Marshal(entry.Summary)
		if err != nil {
			return err
		}

		sequence = uint64(header.TotalAdmitted)
		slot := db.LogSlotModel{
			Address:         address,
			SlotIndex:       header.WriteCursor,
			Occupied:        true,
			Sequence:        header.TotalAdmitted,
			Digest:          entry.Digest,
			SourceTimestamp: entry.SourceTimestamp.UTC(),
			AdmittedAt:      entry.AdmittedAt.UTC(),
			SummaryJSON:     summaryJSON,
			RiskScore:       entry.RiskScore,
			Confirmation:    string(entry.Confirmation),
		}
		// Updating the slot row in place both evicts the overwritten digest
		// and inserts the new one in the same statement.
		if err := tx.Model(&db.LogSlotModel{}).
			Where("address = ? AND slot_index = ?", address, header.WriteCursor).
			Select("*").Omit("address", "slot_index").
			Updates(slot).Error; err != nil {
			return err
		}

		header.TotalAdmitted++
		header.WriteCursor = (header.WriteCursor + 1) % header.Capacity
		return tx.Model(&db.BridgeLogModel{}).
			Where("address = ?", address).
			Updates(map[string]any{
				"total_admitted": header.TotalAdmitted,
				"write_cursor":   header.WriteCursor,
			}).Error
	})
	if err != nil {
		return 0, false, err
	}
	return sequence, duplicate, nil
}

func (s *Store) ContainsDigest(ctx context.Context, bridgeID string, digest []byte) (bool, error) {
	if s.db == nil {
		return false, errDBUnavailable
	}

	address := crypto.DeriveLogAddress(bridgeID)
	var header db.BridgeLogModel
	if err := s.db.WithContext(ctx).Select("address").Take(&header, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.ErrNotFound
		}
		return false, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&db.LogSlotModel{}).
		Where("address = ? AND occupied AND digest = ?", address, digest).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) Recent(ctx context.Context, bridgeID string, limit int, before *uint64) ([]domain.VerificationEntry, error) {
	if s.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		return nil, nil
	}
	if _, err := s.Info(ctx, bridgeID); err != nil {
		return nil, err
	}

	address := crypto.DeriveLogAddress(bridgeID)
	q := s.db.WithContext(ctx).
		Where("address = ? AND occupied", address).
		Order("sequence DESC").
		Limit(limit)
	if before != nil {
		q = q.Where("sequence < ?", int64(*before))
	}
	var models []db.LogSlotModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domain.VerificationEntry, 0, len(models))
	for _, model := range models {
		entry, err := entryFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) GetBySequence(ctx context.Context, bridgeID string, sequence uint64) (domain.VerificationEntry, error) {
	if s.db == nil {
		return domain.VerificationEntry{}, errDBUnavailable
	}

	address := crypto.DeriveLogAddress(bridgeID)
	var model db.LogSlotModel
	err := s.db.WithContext(ctx).
		Take(&model, "address = ? AND occupied AND sequence = ?", address, int64(sequence)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.VerificationEntry{}, domain.ErrNotFound
		}
		return domain.VerificationEntry{}, err
	}
	return entryFromModel(model)
}

func (s *Store) Info(ctx context.Context, bridgeID string) (domain.LogInfo, error) {
	if s.db == nil {
		return domain.LogInfo{}, errDBUnavailable
	}

	address := crypto.DeriveLogAddress(bridgeID)
	var header db.BridgeLogModel
	if err := s.db.WithContext(ctx).Take(&header, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LogInfo{}, domain.ErrNotFound
		}
		return domain.LogInfo{}, err
	}
	return infoFromModel(header), nil
}

func infoFromModel(model db.BridgeLogModel) domain.LogInfo {
	return domain.LogInfo{
		BridgeID:      model.BridgeID,
		Address:       model.Address,
		Capacity:      model.Capacity,
		WriteCursor:   model.WriteCursor,
		TotalAdmitted: uint64(model.TotalAdmitted),
		CreatedAt:     model.CreatedAt.UTC(),
	}
}

func entryFromModel(model db.LogSlotModel) (domain.VerificationEntry, error) {
	var summary domain.PayloadSummary
	if len(model.SummaryJSON) > 0 {
		if err := json.Unmarshal(model.SummaryJSON, &summary); err != nil {
			return domain.VerificationEntry{}, err
		}
	}
	return domain.VerificationEntry{
		Sequence:        uint64(model.Sequence),
		Digest:          model.Digest,
		SourceTimestamp: model.SourceTimestamp.UTC(),
		AdmittedAt:      model.AdmittedAt.UTC(),
		Summary:         summary,
		RiskScore:       model.RiskScore,
		Confirmation:    domain.ConfirmationLevel(model.Confirmation),
	}, nil
}
