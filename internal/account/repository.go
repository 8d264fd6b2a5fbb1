package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrOptimisticLock  = errors.New("optimistic lock error")
)

const forceUpdateRetries = 5

type AccountRepository interface {
	FindByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint) (*Account, error)
	ListByPlayer(ctx context.Context, playerName string) ([]Account, error)
	ListByCurrency(ctx context.Context, currencyID uint) ([]Account, error)
	ListAll(ctx context.Context) ([]Account, error)
	Create(ctx context.Context, a *Account) error
	// UpdateWithVersion performs the optimistic write: WHERE version =
	// a.Version, SET version = version + 1. RowsAffected 0 means another
	// writer won and the caller must re-read.
	UpdateWithVersion(ctx context.Context, a *Account, balance decimal.Decimal) error
	// ForceUpdate re-reads the current version and retries the versioned
	// update until it lands. It never bypasses the version column.
	ForceUpdate(ctx context.Context, playerName string, currencyID uint, balance decimal.Decimal) (*Account, error)
	// GetOrCreate returns the row, inserting a zero-balance one if absent.
	// A non-empty playerUUID differing from the stored one refreshes it.
	GetOrCreate(ctx context.Context, playerName, playerUUID string, currencyID uint) (*Account, error)
	UpdateMaxBalance(ctx context.Context, playerName string, currencyID uint, max int64) error
}

type AccountRepositoryImpl struct {
	db *gorm.DB
}

func NewAccountRepositoryImpl(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

func (r *AccountRepositoryImpl) FindByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint) (*Account, error) {
	var a Account
	err := r.db.WithContext(ctx).
		Where("player_name = ? AND currency_id = ?", playerName, currencyID).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepositoryImpl) ListByPlayer(ctx context.Context, playerName string) ([]Account, error) {
	var out []Account
	err := r.db.WithContext(ctx).Where("player_name = ?", playerName).Order("currency_id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by player: %w", err)
	}
	return out, nil
}

func (r *AccountRepositoryImpl) ListByCurrency(ctx context.Context, currencyID uint) ([]Account, error) {
	var out []Account
	err := r.db.WithContext(ctx).Where("currency_id = ?", currencyID).Order("player_name").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by currency: %w", err)
	}
	return out, nil
}

func (r *AccountRepositoryImpl) ListAll(ctx context.Context) ([]Account, error) {
	var out []Account
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return out, nil
}

func (r *AccountRepositoryImpl) Create(ctx context.Context, a *Account) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepositoryImpl) UpdateWithVersion(ctx context.Context, a *Account, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&Account{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]interface{}{
			"balance":    balance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	a.Balance = balance
	a.Version++
	return nil
}

func (r *AccountRepositoryImpl) ForceUpdate(ctx context.Context, playerName string, currencyID uint, balance decimal.Decimal) (*Account, error) {
	var lastErr error
	for i := 0; i < forceUpdateRetries; i++ {
		a, err := r.FindByPlayerAndCurrency(ctx, playerName, currencyID)
		if err != nil {
			return nil, err
		}
		err = r.UpdateWithVersion(ctx, a, balance)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (r *AccountRepositoryImpl) GetOrCreate(ctx context.Context, playerName, playerUUID string, currencyID uint) (*Account, error) {
	a, err := r.FindByPlayerAndCurrency(ctx, playerName, currencyID)
	if err == nil {
		if playerUUID != "" && a.PlayerUUID != playerUUID {
			update := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", a.ID).
				Updates(map[string]interface{}{
					"player_uuid": playerUUID,
					"updated_at":  time.Now(),
				})
			if update.Error == nil {
				a.PlayerUUID = playerUUID
			}
		}
		return a, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	fresh := &Account{
		PlayerUUID: playerUUID,
		PlayerName: playerName,
		CurrencyID: currencyID,
		Balance:    decimal.Zero,
		MaxBalance: InheritCurrencyMax,
		Version:    1,
	}
	if err := r.Create(ctx, fresh); err != nil {
		// lost a create race against a concurrent caller; the row exists now
		if a, ferr := r.FindByPlayerAndCurrency(ctx, playerName, currencyID); ferr == nil {
			return a, nil
		}
		return nil, err
	}
	return fresh, nil
}

func (r *AccountRepositoryImpl) UpdateMaxBalance(ctx context.Context, playerName string, currencyID uint, max int64) error {
	result := r.db.WithContext(ctx).Model(&Account{}).
		Where("player_name = ? AND currency_id = ?", playerName, currencyID).
		Updates(map[string]interface{}{
			"max_balance": max,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update max balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
