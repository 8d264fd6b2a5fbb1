package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledger_service/internal/account"
	"ledger_service/internal/async"
	"ledger_service/internal/audit"
	"ledger_service/internal/backup"
	"ledger_service/internal/currency"
)

// ErrNotReady is returned by query operations before the durable store is
// online and the schema synchronized. Mutations report the same condition
// through their result code.
var ErrNotReady = errors.New("ledger core is not ready")

// Ledger is the single entry point external collaborators hold. The
// bridge to a single-currency interface, administrative tooling and any
// other consumer depend on this interface, never on the implementation.
type Ledger interface {
	IsReady() bool

	GetBalance(playerName, currencyIdentifier string) decimal.Decimal
	GetBalanceDirect(ctx context.Context, playerName, currencyIdentifier string) (decimal.Decimal, error)
	ListAccounts(ctx context.Context, playerName string) ([]account.BalanceSnapshot, error)
	ListAccountsCached(playerName string) []account.BalanceSnapshot

	Deposit(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult
	Withdraw(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult
	SetBalance(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult
	DepositDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult
	WithdrawDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult
	SetBalanceDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult
	SetMaxBalance(ctx context.Context, playerName, currencyIdentifier string, max int64) error

	CreateCurrency(ctx context.Context, identifier, name string, precision int32, symbol string, defaultMaxBalance int64, consoleLog bool) (*currency.Currency, error)
	DeleteCurrency(ctx context.Context, identifier string) error
	EnableCurrency(ctx context.Context, identifier string) error
	DisableCurrency(ctx context.Context, identifier string) error
	SetPrimaryCurrency(ctx context.Context, identifier string) error
	GetCurrency(identifier string) (*currency.Currency, bool)
	GetPrimaryCurrency() (*currency.Currency, bool)
	ListCurrencies() []currency.Currency
	ListEnabledCurrencies() []currency.Currency

	QueryLogs(ctx context.Context, playerName string, page, pageSize int) (*audit.Page, error)
	QueryLogsByCurrency(ctx context.Context, playerName, currencyIdentifier string, page, pageSize int) (*audit.Page, error)

	CreateSnapshot(ctx context.Context, memo string) (string, error)
	ListSnapshots(ctx context.Context) ([]backup.SnapshotInfo, error)
	Rollback(ctx context.Context, snapshotID string) (int, error)
	RollbackPlayer(ctx context.Context, snapshotID, playerName string) (int, error)

	LoadPlayerBalances(ctx context.Context, playerName, playerUUID string) error
	UnloadPlayer(playerName string)
	ClearCache()

	SubscribePre(fn account.PreHook)
	SubscribePost(fn account.PostHook)
}

// Service wires the registry, account store, audit writer, backup engine
// and executor into one long-lived instance owned by the process
// entrypoint.
type Service struct {
	db    *gorm.DB
	cfg   Config
	ready atomic.Bool

	registry *currency.Registry
	accounts *account.Store
	auditor  *audit.Writer
	backups  *backup.Engine
	exec     *async.Executor
}

var _ Ledger = (*Service)(nil)

// New synchronizes the schema, loads the currency registry, seeds the
// default currency when the store is empty and flips readiness. A failure
// here is fatal to the core; the instance never becomes ready.
func New(db *gorm.DB, cfg Config) (*Service, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&currency.Currency{},
			&account.Account{},
			&audit.TransactionLog{},
			&backup.BackupSnapshot{},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("schema sync failed: %w", err)
	}

	registry := currency.NewRegistry(currency.NewCurrencyRepositoryImpl(db))
	ctx := context.Background()
	if err := registry.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load currency registry: %w", err)
	}
	if err := registry.Bootstrap(ctx, cfg.DefaultCurrency); err != nil {
		return nil, fmt.Errorf("failed to bootstrap default currency: %w", err)
	}

	auditor := audit.NewWriter(audit.NewAuditRepositoryImpl(db))
	exec := async.NewExecutor(cfg.AsyncQueueSize)
	accountRepo := account.NewAccountRepositoryImpl(db)
	accounts := account.NewStore(accountRepo, registry, auditor, exec, cfg.RoundingMode)
	backups := backup.NewEngine(backup.NewSnapshotRepositoryImpl(db), accountRepo, accounts, auditor, cfg.MaxSnapshots)

	s := &Service{
		db:       db,
		cfg:      cfg,
		registry: registry,
		accounts: accounts,
		auditor:  auditor,
		backups:  backups,
		exec:     exec,
	}
	s.ready.Store(true)
	return s, nil
}

// Shutdown stops accepting work and drains in-flight persists.
func (s *Service) Shutdown() {
	s.ready.Store(false)
	s.exec.Shutdown(s.cfg.ShutdownWait)
}

func (s *Service) IsReady() bool {
	return s.ready.Load()
}

func (s *Service) notReady() account.TxResult {
	return account.Failure(account.CodeNotReady, decimal.Zero, "ledger core is not ready")
}

func (s *Service) GetBalance(playerName, currencyIdentifier string) decimal.Decimal {
	if !s.IsReady() {
		return decimal.Zero
	}
	return s.accounts.GetBalance(playerName, currencyIdentifier)
}

func (s *Service) GetBalanceDirect(ctx context.Context, playerName, currencyIdentifier string) (decimal.Decimal, error) {
	if !s.IsReady() {
		return decimal.Zero, ErrNotReady
	}
	return s.accounts.GetBalanceDirect(ctx, playerName, currencyIdentifier)
}

func (s *Service) ListAccounts(ctx context.Context, playerName string) ([]account.BalanceSnapshot, error) {
	if !s.IsReady() {
		return nil, ErrNotReady
	}
	return s.accounts.ListAccounts(ctx, playerName)
}

func (s *Service) ListAccountsCached(playerName string) []account.BalanceSnapshot {
	if !s.IsReady() {
		return nil
	}
	return s.accounts.ListAccountsCached(playerName)
}

func (s *Service) Deposit(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult {
	if !s.IsReady() {
		return s.notReady()
	}
	return s.accounts.Deposit(ctx, playerName, playerUUID, currencyIdentifier, amount, reason, operator)
}

func (s *Service) Withdraw(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult {
	if !s.IsReady() {
		return s.notReady()
	}
	return s.accounts.Withdraw(ctx, playerName, playerUUID, currencyIdentifier, amount, reason, operator)
}

func (s *Service) SetBalance(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult {
	if !s.IsReady() {
		return s.notReady()
	}
	return s.accounts.SetBalance(ctx, playerName, playerUUID, currencyIdentifier, amount, reason, operator)
}

func (s *Service) DepositDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult {
	if !s.IsReady() {
		return s.notReady()
	}
	return s.accounts.DepositDirect(ctx, playerName, playerUUID, currencyIdentifier, amount, reason, operator)
}

func (s *Service) WithdrawDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult {
	if !s.IsReady() {
		return s.notReady()
	}
	return s.accounts.WithdrawDirect(ctx, playerName, playerUUID, currencyIdentifier, amount, reason, operator)
}

func (s *Service) SetBalanceDirect(ctx context.Context, playerName, playerUUID, currencyIdentifier string, amount decimal.Decimal, reason, operator string) account.TxResult {
	if !s.IsReady() {
		return s.notReady()
	}
	return s.accounts.SetBalanceDirect(ctx, playerName, playerUUID, currencyIdentifier, amount, reason, operator)
}

func (s *Service) SetMaxBalance(ctx context.Context, playerName, currencyIdentifier string, max int64) error {
	if !s.IsReady() {
		return ErrNotReady
	}
	return s.accounts.SetMaxBalance(ctx, playerName, currencyIdentifier, max)
}

func (s *Service) CreateCurrency(ctx context.Context, identifier, name string, precision int32, symbol string, defaultMaxBalance int64, consoleLog bool) (*currency.Currency, error) {
	if !s.IsReady() {
		return nil, ErrNotReady
	}
	return s.registry.Create(ctx, identifier, name, precision, symbol, defaultMaxBalance, consoleLog)
}

func (s *Service) DeleteCurrency(ctx context.Context, identifier string) error {
	if !s.IsReady() {
		return ErrNotReady
	}
	return s.registry.Delete(ctx, identifier)
}

func (s *Service) EnableCurrency(ctx context.Context, identifier string) error {
	if !s.IsReady() {
		return ErrNotReady
	}
	return s.registry.Enable(ctx, identifier)
}

func (s *Service) DisableCurrency(ctx context.Context, identifier string) error {
	if !s.IsReady() {
		return ErrNotReady
	}
	return s.registry.Disable(ctx, identifier)
}

func (s *Service) SetPrimaryCurrency(ctx context.Context, identifier string) error {
	if !s.IsReady() {
		return ErrNotReady
	}
	return s.registry.SetPrimary(ctx, identifier)
}

func (s *Service) GetCurrency(identifier string) (*currency.Currency, bool) {
	if !s.IsReady() {
		return nil, false
	}
	return s.registry.GetByIdentifier(identifier)
}

func (s *Service) GetPrimaryCurrency() (*currency.Currency, bool) {
	if !s.IsReady() {
		return nil, false
	}
	return s.registry.GetPrimary()
}

func (s *Service) ListCurrencies() []currency.Currency {
	if !s.IsReady() {
		return nil
	}
	return s.registry.ListActive()
}

func (s *Service) ListEnabledCurrencies() []currency.Currency {
	if !s.IsReady() {
		return nil
	}
	return s.registry.ListEnabled()
}

func (s *Service) QueryLogs(ctx context.Context, playerName string, page, pageSize int) (*audit.Page, error) {
	if !s.IsReady() {
		return nil, ErrNotReady
	}
	return s.auditor.QueryLogs(ctx, playerName, page, pageSize)
}

func (s *Service) QueryLogsByCurrency(ctx context.Context, playerName, currencyIdentifier string, page, pageSize int) (*audit.Page, error) {
	if !s.IsReady() {
		return nil, ErrNotReady
	}
	cur, ok := s.registry.GetByIdentifier(currencyIdentifier)
	if !ok {
		return nil, currency.ErrCurrencyNotFound
	}
	return s.auditor.QueryLogsByPlayerAndCurrency(ctx, playerName, cur.ID, page, pageSize)
}

func (s *Service) CreateSnapshot(ctx context.Context, memo string) (string, error) {
	if !s.IsReady() {
		return "", ErrNotReady
	}
	return s.backups.CreateSnapshot(ctx, memo)
}

func (s *Service) ListSnapshots(ctx context.Context) ([]backup.SnapshotInfo, error) {
	if !s.IsReady() {
		return nil, ErrNotReady
	}
	return s.backups.ListSnapshots(ctx)
}

func (s *Service) Rollback(ctx context.Context, snapshotID string) (int, error) {
	if !s.IsReady() {
		return 0, ErrNotReady
	}
	return s.backups.Rollback(ctx, snapshotID)
}

func (s *Service) RollbackPlayer(ctx context.Context, snapshotID, playerName string) (int, error) {
	if !s.IsReady() {
		return 0, ErrNotReady
	}
	return s.backups.RollbackPlayer(ctx, snapshotID, playerName)
}

func (s *Service) LoadPlayerBalances(ctx context.Context, playerName, playerUUID string) error {
	if !s.IsReady() {
		return ErrNotReady
	}
	return s.accounts.LoadPlayerBalances(ctx, playerName, playerUUID)
}

func (s *Service) UnloadPlayer(playerName string) {
	s.accounts.UnloadPlayer(playerName)
}

func (s *Service) ClearCache() {
	s.accounts.ClearCache()
}

func (s *Service) SubscribePre(fn account.PreHook) {
	s.accounts.SubscribePre(fn)
}

func (s *Service) SubscribePost(fn account.PostHook) {
	s.accounts.SubscribePost(fn)
}
