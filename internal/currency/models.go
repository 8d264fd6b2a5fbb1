package currency

import (
	"time"
)

const (
	MinPrecision int32 = 0
	MaxPrecision int32 = 8
)

// UnlimitedBalance marks a default_max_balance with no cap.
const UnlimitedBalance int64 = -1

type Currency struct {
	ID                uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Identifier        string    `gorm:"column:identifier;type:varchar(64);not null;index"`
	Name              string    `gorm:"column:name;type:varchar(128);not null"`
	Symbol            string    `gorm:"column:symbol;type:varchar(16);not null"`
	Precision         int32     `gorm:"column:precision;not null;default:0"`
	DefaultMaxBalance int64     `gorm:"column:default_max_balance;not null;default:-1"`
	IsPrimary         bool      `gorm:"column:is_primary;not null;default:false"`
	Enabled           bool      `gorm:"column:enabled;not null;default:true"`
	Deleted           bool      `gorm:"column:deleted;not null;default:false"`
	ConsoleLog        bool      `gorm:"column:console_log;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null"`
}

func (Currency) TableName() string {
	return "currency"
}

// Unlimited reports whether deposits into this currency have no cap by default.
func (c *Currency) Unlimited() bool {
	return c.DefaultMaxBalance < 0
}

// Seed describes the currency created on start when the store holds no
// non-deleted currency. It becomes the primary currency.
type Seed struct {
	Identifier        string
	Name              string
	Symbol            string
	Precision         int32
	DefaultMaxBalance int64
	ConsoleLog        bool
}

func DefaultSeed() Seed {
	return Seed{
		Identifier:        "coin",
		Name:              "Coin",
		Symbol:            "$",
		Precision:         2,
		DefaultMaxBalance: UnlimitedBalance,
		ConsoleLog:        false,
	}
}
