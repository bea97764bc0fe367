package db

import "time"

// BridgeLogModel is the fixed-size log header, keyed by the derived address.
type BridgeLogModel struct {
	Address       string    `gorm:"primaryKey;size:64"`
	BridgeID      string    `gorm:"uniqueIndex;not null"`
	Capacity      int       `gorm:"not null"`
	WriteCursor   int       `gorm:"not null"`
	TotalAdmitted int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (BridgeLogModel) TableName() string { return "bridge_logs" }

// LogSlotModel is one ring slot. All capacity rows are created with the
// header and only ever updated in place, so the structure never grows.
type LogSlotModel struct {
	Address         string `gorm:"primaryKey;size:64"`
	SlotIndex       int    `gorm:"primaryKey;autoIncrement:false"`
	Occupied        bool   `gorm:"not null"`
	Sequence        int64  `gorm:"index"`
	Digest          []byte `gorm:"type:bytea;index"`
	SourceTimestamp time.Time
	AdmittedAt      time.Time
	SummaryJSON     []byte `gorm:"type:jsonb"`
	RiskScore       float64
	Confirmation    string
}

func (LogSlotModel) TableName() string { return "log_slots" }
