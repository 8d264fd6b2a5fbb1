package audit

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeDeposit  = "DEPOSIT"
	TypeWithdraw = "WITHDRAW"
	TypeSet      = "SET"
	TypeRollback = "ROLLBACK"
)

// TransactionLog rows are append-only; nothing ever updates or deletes them.
type TransactionLog struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerUUID    string          `gorm:"column:player_uuid;type:varchar(36)"`
	PlayerName    string          `gorm:"column:player_name;type:varchar(64);not null;index:idx_txlog_player_currency"`
	CurrencyID    uint            `gorm:"column:currency_id;not null;index:idx_txlog_player_currency"`
	Type          string          `gorm:"column:type;type:varchar(32);not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,8);not null"`
	BalanceBefore decimal.Decimal `gorm:"column:balance_before;type:numeric(20,8);not null"`
	BalanceAfter  decimal.Decimal `gorm:"column:balance_after;type:numeric(20,8);not null"`
	Reason        string          `gorm:"column:reason;type:varchar(512);not null"`
	Operator      string          `gorm:"column:operator;type:varchar(64);not null"`
	OccurredAt    time.Time       `gorm:"column:occurred_at;not null;index:idx_txlog_occurred"`
}

func (TransactionLog) TableName() string {
	return "transaction_log"
}

type Page struct {
	Records  []TransactionLog `json:"records"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}
