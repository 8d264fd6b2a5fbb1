package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ledger_service/internal/account"
	"ledger_service/internal/audit"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotEmpty    = errors.New("no accounts to snapshot")
)

const DefaultMaxSnapshots = 50

const rollbackOperator = "SYSTEM"

// Engine batches full-state snapshots of every account and restores them.
// Restores go through the versioned account update path so a rollback
// never bypasses optimistic concurrency against live mutations.
type Engine struct {
	repo         SnapshotRepository
	accounts     account.AccountRepository
	store        *account.Store
	auditor      *audit.Writer
	maxSnapshots int
}

func NewEngine(repo SnapshotRepository, accounts account.AccountRepository, store *account.Store, auditor *audit.Writer, maxSnapshots int) *Engine {
	if maxSnapshots <= 0 {
		maxSnapshots = DefaultMaxSnapshots
	}
	return &Engine{
		repo:         repo,
		accounts:     accounts,
		store:        store,
		auditor:      auditor,
		maxSnapshots: maxSnapshots,
	}
}

// CreateSnapshot copies every account, zero balances included, under a
// fresh batch id and then garbage-collects the oldest batches beyond the
// retention cap.
func (e *Engine) CreateSnapshot(ctx context.Context, memo string) (string, error) {
	accts, err := e.accounts.ListAll(ctx)
	if err != nil {
		return "", err
	}
	if len(accts) == 0 {
		return "", ErrSnapshotEmpty
	}

	snapshotID := uuid.NewString()
	now := time.Now()
	rows := make([]BackupSnapshot, 0, len(accts))
	for _, a := range accts {
		rows = append(rows, BackupSnapshot{
			SnapshotID: snapshotID,
			PlayerUUID: a.PlayerUUID,
			PlayerName: a.PlayerName,
			CurrencyID: a.CurrencyID,
			Balance:    a.Balance,
			Memo:       memo,
			CreatedAt:  now,
		})
	}
	if err := e.repo.BatchInsert(ctx, rows); err != nil {
		return "", err
	}
	log.Printf("snapshot %s created with %d accounts", snapshotID, len(rows))

	if err := e.enforceRetention(ctx); err != nil {
		log.Printf("snapshot retention sweep failed: %v", err)
	}
	return snapshotID, nil
}

// Rollback restores every row in the snapshot.
func (e *Engine) Rollback(ctx context.Context, snapshotID string) (int, error) {
	rows, err := e.repo.ListBySnapshot(ctx, snapshotID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ErrSnapshotNotFound
	}
	return e.restore(ctx, snapshotID, rows)
}

// RollbackPlayer restores only the named player's rows in the snapshot.
func (e *Engine) RollbackPlayer(ctx context.Context, snapshotID, playerName string) (int, error) {
	rows, err := e.repo.ListBySnapshotAndPlayer(ctx, snapshotID, playerName)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ErrSnapshotNotFound
	}
	return e.restore(ctx, snapshotID, rows)
}

func (e *Engine) restore(ctx context.Context, snapshotID string, rows []BackupSnapshot) (int, error) {
	reason := "rollback:" + snapshotID
	restored := 0
	for _, row := range rows {
		acct, err := e.accounts.GetOrCreate(ctx, row.PlayerName, row.PlayerUUID, row.CurrencyID)
		if err != nil {
			return restored, fmt.Errorf("failed to restore %s/%d: %w", row.PlayerName, row.CurrencyID, err)
		}
		before := acct.Balance
		if _, err := e.accounts.ForceUpdate(ctx, row.PlayerName, row.CurrencyID, row.Balance); err != nil {
			return restored, fmt.Errorf("failed to restore %s/%d: %w", row.PlayerName, row.CurrencyID, err)
		}
		e.auditor.WriteLog(ctx, row.PlayerName, row.PlayerUUID, row.CurrencyID,
			audit.TypeRollback, row.Balance.Sub(before).Abs(), before, row.Balance,
			reason, rollbackOperator)
		e.store.RefreshCache(ctx, row.PlayerName, row.CurrencyID)
		restored++
	}
	log.Printf("snapshot %s restored %d accounts", snapshotID, restored)
	return restored, nil
}

// ListSnapshots returns one row per batch, newest first.
func (e *Engine) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	return e.repo.ListDistinct(ctx)
}

func (e *Engine) enforceRetention(ctx context.Context) error {
	n, err := e.repo.CountDistinct(ctx)
	if err != nil {
		return err
	}
	if n <= int64(e.maxSnapshots) {
		return nil
	}
	list, err := e.repo.ListDistinct(ctx)
	if err != nil {
		return err
	}
	for _, info := range list[e.maxSnapshots:] {
		if err := e.repo.DeleteSnapshot(ctx, info.SnapshotID); err != nil {
			return err
		}
		log.Printf("snapshot %s garbage-collected", info.SnapshotID)
	}
	return nil
}
