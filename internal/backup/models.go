package backup

import (
	"time"

	"github.com/shopspring/decimal"
)

// BackupSnapshot is one account's balance inside a snapshot batch. All
// rows of a batch share the same snapshot_id, memo and created_at.
type BackupSnapshot struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SnapshotID string          `gorm:"column:snapshot_id;type:varchar(36);not null;index:idx_backup_snapshot"`
	PlayerUUID string          `gorm:"column:player_uuid;type:varchar(36)"`
	PlayerName string          `gorm:"column:player_name;type:varchar(64);not null"`
	CurrencyID uint            `gorm:"column:currency_id;not null"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,8);not null"`
	Memo       string          `gorm:"column:memo;type:varchar(256)"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null"`
}

func (BackupSnapshot) TableName() string {
	return "backup_snapshot"
}

// SnapshotInfo is the per-batch listing row shown to administrators.
type SnapshotInfo struct {
	SnapshotID   string    `json:"snapshot_id"`
	Memo         string    `json:"memo"`
	CreatedAt    time.Time `json:"created_at"`
	AccountCount int64     `json:"account_count"`
}
