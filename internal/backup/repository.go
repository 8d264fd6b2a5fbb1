package backup

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type SnapshotRepository interface {
	BatchInsert(ctx context.Context, rows []BackupSnapshot) error
	ListBySnapshot(ctx context.Context, snapshotID string) ([]BackupSnapshot, error)
	ListBySnapshotAndPlayer(ctx context.Context, snapshotID, playerName string) ([]BackupSnapshot, error)
	ListDistinct(ctx context.Context) ([]SnapshotInfo, error)
	CountDistinct(ctx context.Context) (int64, error)
	DeleteSnapshot(ctx context.Context, snapshotID string) error
}

type SnapshotRepositoryImpl struct {
	db *gorm.DB
}

func NewSnapshotRepositoryImpl(db *gorm.DB) SnapshotRepository {
	return &SnapshotRepositoryImpl{db: db}
}

func (r *SnapshotRepositoryImpl) BatchInsert(ctx context.Context, rows []BackupSnapshot) error {
	if err := r.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("failed to insert snapshot rows: %w", err)
	}
	return nil
}

func (r *SnapshotRepositoryImpl) ListBySnapshot(ctx context.Context, snapshotID string) ([]BackupSnapshot, error) {
	var out []BackupSnapshot
	err := r.db.WithContext(ctx).Where("snapshot_id = ?", snapshotID).Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot rows: %w", err)
	}
	return out, nil
}

func (r *SnapshotRepositoryImpl) ListBySnapshotAndPlayer(ctx context.Context, snapshotID, playerName string) ([]BackupSnapshot, error) {
	var out []BackupSnapshot
	err := r.db.WithContext(ctx).
		Where("snapshot_id = ? AND player_name = ?", snapshotID, playerName).
		Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot rows: %w", err)
	}
	return out, nil
}

func (r *SnapshotRepositoryImpl) ListDistinct(ctx context.Context) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	err := r.db.WithContext(ctx).Model(&BackupSnapshot{}).
		Select("snapshot_id, max(memo) AS memo, max(created_at) AS created_at, count(*) AS account_count").
		Group("snapshot_id").
		Order("max(created_at) DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}

func (r *SnapshotRepositoryImpl) CountDistinct(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&BackupSnapshot{}).
		Distinct("snapshot_id").Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

func (r *SnapshotRepositoryImpl) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	err := r.db.WithContext(ctx).Where("snapshot_id = ?", snapshotID).Delete(&BackupSnapshot{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
