package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// InheritCurrencyMax marks a per-account max_balance that defers to the
// currency's default_max_balance.
const InheritCurrencyMax int64 = -1

type Account struct {
	ID         uint            `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerUUID string          `gorm:"column:player_uuid;type:varchar(36)"`
	PlayerName string          `gorm:"column:player_name;type:varchar(64);not null;uniqueIndex:idx_account_player_currency"`
	CurrencyID uint            `gorm:"column:currency_id;not null;uniqueIndex:idx_account_player_currency;index:idx_account_currency"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,8);not null;default:0"`
	MaxBalance int64           `gorm:"column:max_balance;not null;default:-1"`
	Version    int64           `gorm:"column:version;not null;default:1"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;not null"`
}

func (Account) TableName() string {
	return "account"
}

// BalanceSnapshot is the read-only view handed to external callers.
type BalanceSnapshot struct {
	PlayerName string          `json:"player_name"`
	Currency   string          `json:"currency"`
	CurrencyID uint            `json:"currency_id"`
	Balance    decimal.Decimal `json:"balance"`
	MaxBalance int64           `json:"max_balance"`
}

// Result codes for user-visible mutations. Administrators map these to
// external error handling; the message is a short human string.
const (
	CodeSuccess           = "SUCCESS"
	CodeNotReady          = "NOT_READY"
	CodeUnknownCurrency   = "UNKNOWN_CURRENCY"
	CodeCurrencyDisabled  = "CURRENCY_DISABLED"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeLimitExceeded     = "LIMIT_EXCEEDED"
	CodeCancelled         = "CANCELLED"
	CodeConflict          = "CONFLICT"
	CodeGenericFailure    = "GENERIC_FAILURE"
)

// TxResult is returned by every mutation instead of an error. Balance is
// the resulting balance on success. On failure it is the unchanged balance
// the check was made against, or zero when the failure comes before any
// balance is read (not ready, unknown currency, direct-path validation).
type TxResult struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Balance decimal.Decimal `json:"balance"`
	Message string          `json:"message"`
}

func Success(balance decimal.Decimal) TxResult {
	return TxResult{Success: true, Code: CodeSuccess, Balance: balance}
}

func Failure(code string, balance decimal.Decimal, message string) TxResult {
	return TxResult{Success: false, Code: code, Balance: balance, Message: message}
}
