package audit

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// Writer appends transaction records. An append failure never rolls back
// the mutation it describes; it is logged and the mutation stays committed.
type Writer struct {
	repo AuditRepository
}

func NewWriter(repo AuditRepository) *Writer {
	return &Writer{repo: repo}
}

func (w *Writer) WriteLog(ctx context.Context, playerName, playerUUID string, currencyID uint, logType string, amount, balanceBefore, balanceAfter decimal.Decimal, reason, operator string) {
	rec := &TransactionLog{
		PlayerUUID:    playerUUID,
		PlayerName:    playerName,
		CurrencyID:    currencyID,
		Type:          logType,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Reason:        reason,
		Operator:      operator,
		OccurredAt:    time.Now(),
	}
	if err := w.repo.Insert(ctx, rec); err != nil {
		log.Printf("audit append failed: player=%s currency=%d type=%s amount=%s: %v",
			playerName, currencyID, logType, amount.String(), err)
	}
}

func (w *Writer) QueryLogs(ctx context.Context, playerName string, page, pageSize int) (*Page, error) {
	offset, limit := pageBounds(page, pageSize)
	records, err := w.repo.FindByPlayer(ctx, playerName, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := w.repo.CountByPlayer(ctx, playerName)
	if err != nil {
		return nil, err
	}
	return &Page{Records: records, Total: total, Page: page, PageSize: limit}, nil
}

func (w *Writer) QueryLogsByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint, page, pageSize int) (*Page, error) {
	offset, limit := pageBounds(page, pageSize)
	records, err := w.repo.FindByPlayerAndCurrency(ctx, playerName, currencyID, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := w.repo.CountByPlayerAndCurrency(ctx, playerName, currencyID)
	if err != nil {
		return nil, err
	}
	return &Page{Records: records, Total: total, Page: page, PageSize: limit}, nil
}

func (w *Writer) CountLogs(ctx context.Context, playerName string) (int64, error) {
	return w.repo.CountByPlayer(ctx, playerName)
}

func (w *Writer) CountLogsByPlayerAndCurrency(ctx context.Context, playerName string, currencyID uint) (int64, error) {
	return w.repo.CountByPlayerAndCurrency(ctx, playerName, currencyID)
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return (page - 1) * pageSize, pageSize
}
