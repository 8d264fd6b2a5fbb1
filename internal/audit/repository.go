package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Insert(ctx context.Context, rec *TransactionLog) error
	FindByPlayer(ctx context.Context, playerName string, offset, limit int) ([]TransactionLog, error)
	FindByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint, offset, limit int) ([]TransactionLog, error)
	CountByPlayer(ctx context.Context, playerName string) (int64, error)
	CountByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint) (int64, error)
}

type AuditRepositoryImpl struct {
	db *gorm.DB
}

func NewAuditRepositoryImpl(db *gorm.DB) AuditRepository {
	return &AuditRepositoryImpl{db: db}
}

func (r *AuditRepositoryImpl) Insert(ctx context.Context, rec *TransactionLog) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert transaction log: %w", err)
	}
	return nil
}

func (r *AuditRepositoryImpl) FindByPlayer(ctx context.Context, playerName string, offset, limit int) ([]TransactionLog, error) {
	var out []TransactionLog
	err := r.db.WithContext(ctx).
		Where("player_name = ?", playerName).
		Order("occurred_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction logs: %w", err)
	}
	return out, nil
}

func (r *AuditRepositoryImpl) FindByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint, offset, limit int) ([]TransactionLog, error) {
	var out []TransactionLog
	err := r.db.WithContext(ctx).
		Where("player_name = ? AND currency_id = ?", playerName, currencyID).
		Order("occurred_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction logs: %w", err)
	}
	return out, nil
}

func (r *AuditRepositoryImpl) CountByPlayer(ctx context.Context, playerName string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&TransactionLog{}).
		Where("player_name = ?", playerName).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transaction logs: %w", err)
	}
	return n, nil
}

func (r *AuditRepositoryImpl) CountByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&TransactionLog{}).
		Where("player_name = ? AND currency_id = ?", playerName, currencyID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transaction logs: %w", err)
	}
	return n, nil
}
