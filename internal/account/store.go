package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledger_service/internal/async"
	"ledger_service/internal/audit"
	"ledger_service/internal/currency"
	"ledger_service/internal/money"
)

const (
	MaxVersionRetries = 3
	RetryDelay        = 10 * time.Millisecond
)

type cacheKey struct {
	playerName string
	currencyID uint
}

// Store owns the per-(player, currency) balance cache and every write
// path to accounts. The cached path mutates the cache and persists
// asynchronously; the direct path is a bounded CAS loop against the
// store's version column. Persistence is the source of truth: on any
// conflict the cache is resynced from it, never the other way around.
type Store struct {
	repo     AccountRepository
	registry *currency.Registry
	auditor  *audit.Writer
	exec     *async.Executor
	rounding money.RoundingMode

	hooks hookHub
	cache sync.Map // cacheKey -> decimal.Decimal
}

func NewStore(repo AccountRepository, registry *currency.Registry, auditor *audit.Writer, exec *async.Executor, rounding money.RoundingMode) *Store {
	return &Store{
		repo:     repo,
		registry: registry,
		auditor:  auditor,
		exec:     exec,
		rounding: rounding,
	}
}

func (s *Store) SubscribePre(fn PreHook) {
	s.hooks.SubscribePre(fn)
}

func (s *Store) SubscribePost(fn PostHook) {
	s.hooks.SubscribePost(fn)
}

// Deposit adds amount on the cached path. The caller observes success as
// soon as the cache entry is swapped; persistence and the audit row
// follow asynchronously.
func (s *Store) Deposit(ctx context.Context, playerName, playerUUID, identifier string, amount decimal.Decimal, reason, operator string) TxResult {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return Failure(CodeUnknownCurrency, decimal.Zero, fmt.Sprintf("unknown currency %q", identifier))
	}
	key := cacheKey{playerName, cur.ID}
	before := s.cachedBalance(key)
	if !cur.Enabled {
		return Failure(CodeCurrencyDisabled, before, fmt.Sprintf("currency %q is disabled", cur.Identifier))
	}
	amt := money.Scale(amount, cur.Precision, s.rounding)
	if !money.IsPositive(amt) {
		return Failure(CodeInvalidAmount, before, "deposit amount must be positive")
	}

	after := money.Scale(before.Add(amt), cur.Precision, s.rounding)
	if !cur.Unlimited() && after.GreaterThan(decimal.NewFromInt(cur.DefaultMaxBalance)) {
		return Failure(CodeLimitExceeded, before,
			fmt.Sprintf("balance may not exceed %d %s", cur.DefaultMaxBalance, cur.Identifier))
	}

	pre := &PreTransactionEvent{
		PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
		Type: audit.TypeDeposit, Amount: amt,
		BalanceBefore: before, BalanceAfter: after,
		Reason: reason, Operator: operator,
	}
	if s.hooks.dispatchPre(pre) {
		return Failure(CodeCancelled, before, "cancelled by subscriber")
	}

	s.cache.Store(key, after)
	s.schedulePersist(cur, audit.TypeDeposit, playerName, playerUUID, amt, before, after, reason, operator)
	return Success(after)
}

// Withdraw removes amount on the cached path.
func (s *Store) Withdraw(ctx context.Context, playerName, playerUUID, identifier string, amount decimal.Decimal, reason, operator string) TxResult {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return Failure(CodeUnknownCurrency, decimal.Zero, fmt.Sprintf("unknown currency %q", identifier))
	}
	key := cacheKey{playerName, cur.ID}
	before := s.cachedBalance(key)
	if !cur.Enabled {
		return Failure(CodeCurrencyDisabled, before, fmt.Sprintf("currency %q is disabled", cur.Identifier))
	}
	amt := money.Scale(amount, cur.Precision, s.rounding)
	if !money.IsPositive(amt) {
		return Failure(CodeInvalidAmount, before, "withdraw amount must be positive")
	}
	if before.LessThan(amt) {
		return Failure(CodeInsufficientFunds, before, "insufficient funds")
	}

	after := money.Scale(before.Sub(amt), cur.Precision, s.rounding)
	pre := &PreTransactionEvent{
		PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
		Type: audit.TypeWithdraw, Amount: amt,
		BalanceBefore: before, BalanceAfter: after,
		Reason: reason, Operator: operator,
	}
	if s.hooks.dispatchPre(pre) {
		return Failure(CodeCancelled, before, "cancelled by subscriber")
	}

	s.cache.Store(key, after)
	s.schedulePersist(cur, audit.TypeWithdraw, playerName, playerUUID, amt, before, after, reason, operator)
	return Success(after)
}

// SetBalance overwrites the balance on the cached path. The audit amount
// is the absolute size of the change.
func (s *Store) SetBalance(ctx context.Context, playerName, playerUUID, identifier string, amount decimal.Decimal, reason, operator string) TxResult {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return Failure(CodeUnknownCurrency, decimal.Zero, fmt.Sprintf("unknown currency %q", identifier))
	}
	key := cacheKey{playerName, cur.ID}
	before := s.cachedBalance(key)
	target := money.Scale(amount, cur.Precision, s.rounding)
	if !money.IsNonNegative(target) {
		return Failure(CodeInvalidAmount, before, "balance may not be negative")
	}

	pre := &PreTransactionEvent{
		PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
		Type: audit.TypeSet, Amount: target.Sub(before).Abs(),
		BalanceBefore: before, BalanceAfter: target,
		Reason: reason, Operator: operator,
	}
	if s.hooks.dispatchPre(pre) {
		return Failure(CodeCancelled, before, "cancelled by subscriber")
	}

	s.cache.Store(key, target)
	s.schedulePersist(cur, audit.TypeSet, playerName, playerUUID, target.Sub(before).Abs(), before, target, reason, operator)
	return Success(target)
}

// DepositDirect bypasses the cache: bounded retry loop against the
// version column, recomputing from the persisted balance each attempt.
func (s *Store) DepositDirect(ctx context.Context, playerName, playerUUID, identifier string, amount decimal.Decimal, reason, operator string) TxResult {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return Failure(CodeUnknownCurrency, decimal.Zero, fmt.Sprintf("unknown currency %q", identifier))
	}
	if !cur.Enabled {
		return Failure(CodeCurrencyDisabled, decimal.Zero, fmt.Sprintf("currency %q is disabled", cur.Identifier))
	}
	amt := money.Scale(amount, cur.Precision, s.rounding)
	if !money.IsPositive(amt) {
		return Failure(CodeInvalidAmount, decimal.Zero, "deposit amount must be positive")
	}

	var before decimal.Decimal
	dispatchedPre := false
	for i := 0; i < MaxVersionRetries; i++ {
		acct, err := s.repo.GetOrCreate(ctx, playerName, playerUUID, cur.ID)
		if err != nil {
			return Failure(CodeGenericFailure, decimal.Zero, err.Error())
		}
		before = acct.Balance
		after := money.Scale(before.Add(amt), cur.Precision, s.rounding)
		if max := effectiveMax(acct, cur); max >= 0 && after.GreaterThan(decimal.NewFromInt(max)) {
			return Failure(CodeLimitExceeded, before,
				fmt.Sprintf("balance may not exceed %d %s", max, cur.Identifier))
		}
		if !dispatchedPre {
			pre := &PreTransactionEvent{
				PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
				Type: audit.TypeDeposit, Amount: amt,
				BalanceBefore: before, BalanceAfter: after,
				Reason: reason, Operator: operator,
			}
			if s.hooks.dispatchPre(pre) {
				return Failure(CodeCancelled, before, "cancelled by subscriber")
			}
			dispatchedPre = true
		}

		err = s.repo.UpdateWithVersion(ctx, acct, after)
		if err == nil {
			s.finishDirect(ctx, cur, audit.TypeDeposit, playerName, playerUUID, amt, before, after, reason, operator)
			return Success(after)
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return Failure(CodeGenericFailure, before, err.Error())
		}
		log.Printf("version conflict on direct deposit %s/%s, retrying", playerName, cur.Identifier)
		time.Sleep(RetryDelay)
	}
	return Failure(CodeConflict, before, "version conflict retries exhausted")
}

// WithdrawDirect bypasses the cache; sufficiency is re-checked against
// the persisted balance on every attempt.
func (s *Store) WithdrawDirect(ctx context.Context, playerName, playerUUID, identifier string, amount decimal.Decimal, reason, operator string) TxResult {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return Failure(CodeUnknownCurrency, decimal.Zero, fmt.Sprintf("unknown currency %q", identifier))
	}
	if !cur.Enabled {
		return Failure(CodeCurrencyDisabled, decimal.Zero, fmt.Sprintf("currency %q is disabled", cur.Identifier))
	}
	amt := money.Scale(amount, cur.Precision, s.rounding)
	if !money.IsPositive(amt) {
		return Failure(CodeInvalidAmount, decimal.Zero, "withdraw amount must be positive")
	}

	var before decimal.Decimal
	dispatchedPre := false
	for i := 0; i < MaxVersionRetries; i++ {
		acct, err := s.repo.GetOrCreate(ctx, playerName, playerUUID, cur.ID)
		if err != nil {
			return Failure(CodeGenericFailure, decimal.Zero, err.Error())
		}
		before = acct.Balance
		if before.LessThan(amt) {
			return Failure(CodeInsufficientFunds, before, "insufficient funds")
		}
		after := money.Scale(before.Sub(amt), cur.Precision, s.rounding)
		if !dispatchedPre {
			pre := &PreTransactionEvent{
				PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
				Type: audit.TypeWithdraw, Amount: amt,
				BalanceBefore: before, BalanceAfter: after,
				Reason: reason, Operator: operator,
			}
			if s.hooks.dispatchPre(pre) {
				return Failure(CodeCancelled, before, "cancelled by subscriber")
			}
			dispatchedPre = true
		}

		err = s.repo.UpdateWithVersion(ctx, acct, after)
		if err == nil {
			s.finishDirect(ctx, cur, audit.TypeWithdraw, playerName, playerUUID, amt, before, after, reason, operator)
			return Success(after)
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return Failure(CodeGenericFailure, before, err.Error())
		}
		log.Printf("version conflict on direct withdraw %s/%s, retrying", playerName, cur.Identifier)
		time.Sleep(RetryDelay)
	}
	return Failure(CodeConflict, before, "version conflict retries exhausted")
}

// SetBalanceDirect overwrites the persisted balance via the version column.
func (s *Store) SetBalanceDirect(ctx context.Context, playerName, playerUUID, identifier string, amount decimal.Decimal, reason, operator string) TxResult {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return Failure(CodeUnknownCurrency, decimal.Zero, fmt.Sprintf("unknown currency %q", identifier))
	}
	target := money.Scale(amount, cur.Precision, s.rounding)
	if !money.IsNonNegative(target) {
		return Failure(CodeInvalidAmount, decimal.Zero, "balance may not be negative")
	}

	var before decimal.Decimal
	dispatchedPre := false
	for i := 0; i < MaxVersionRetries; i++ {
		acct, err := s.repo.GetOrCreate(ctx, playerName, playerUUID, cur.ID)
		if err != nil {
			return Failure(CodeGenericFailure, decimal.Zero, err.Error())
		}
		before = acct.Balance
		if !dispatchedPre {
			pre := &PreTransactionEvent{
				PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
				Type: audit.TypeSet, Amount: target.Sub(before).Abs(),
				BalanceBefore: before, BalanceAfter: target,
				Reason: reason, Operator: operator,
			}
			if s.hooks.dispatchPre(pre) {
				return Failure(CodeCancelled, before, "cancelled by subscriber")
			}
			dispatchedPre = true
		}

		err = s.repo.UpdateWithVersion(ctx, acct, target)
		if err == nil {
			s.finishDirect(ctx, cur, audit.TypeSet, playerName, playerUUID, target.Sub(before).Abs(), before, target, reason, operator)
			return Success(target)
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return Failure(CodeGenericFailure, before, err.Error())
		}
		log.Printf("version conflict on direct set %s/%s, retrying", playerName, cur.Identifier)
		time.Sleep(RetryDelay)
	}
	return Failure(CodeConflict, before, "version conflict retries exhausted")
}

// GetBalance reads the cache; an absent entry reads as zero.
func (s *Store) GetBalance(playerName, identifier string) decimal.Decimal {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return decimal.Zero
	}
	return s.cachedBalance(cacheKey{playerName, cur.ID})
}

// GetBalanceDirect reads persistence; a missing account reads as zero.
func (s *Store) GetBalanceDirect(ctx context.Context, playerName, identifier string) (decimal.Decimal, error) {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return decimal.Zero, currency.ErrCurrencyNotFound
	}
	acct, err := s.repo.FindByPlayerAndCurrency(ctx, playerName, cur.ID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// ListAccounts reads every persisted account of the player.
func (s *Store) ListAccounts(ctx context.Context, playerName string) ([]BalanceSnapshot, error) {
	accts, err := s.repo.ListByPlayer(ctx, playerName)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceSnapshot, 0, len(accts))
	for _, a := range accts {
		snap := BalanceSnapshot{
			PlayerName: a.PlayerName,
			CurrencyID: a.CurrencyID,
			Balance:    a.Balance,
			MaxBalance: a.MaxBalance,
		}
		if cur, ok := s.registry.GetByID(a.CurrencyID); ok {
			snap.Currency = cur.Identifier
		}
		out = append(out, snap)
	}
	return out, nil
}

// ListAccountsCached reads only the entries currently loaded in the cache.
func (s *Store) ListAccountsCached(playerName string) []BalanceSnapshot {
	var out []BalanceSnapshot
	s.cache.Range(func(k, v any) bool {
		key := k.(cacheKey)
		if key.playerName != playerName {
			return true
		}
		snap := BalanceSnapshot{
			PlayerName: playerName,
			CurrencyID: key.currencyID,
			Balance:    v.(decimal.Decimal),
			MaxBalance: InheritCurrencyMax,
		}
		if cur, ok := s.registry.GetByID(key.currencyID); ok {
			snap.Currency = cur.Identifier
		}
		out = append(out, snap)
		return true
	})
	return out
}

// SetMaxBalance sets the per-account override; InheritCurrencyMax removes it.
func (s *Store) SetMaxBalance(ctx context.Context, playerName, identifier string, max int64) error {
	cur, ok := s.registry.GetByIdentifier(identifier)
	if !ok {
		return currency.ErrCurrencyNotFound
	}
	if _, err := s.repo.GetOrCreate(ctx, playerName, "", cur.ID); err != nil {
		return err
	}
	return s.repo.UpdateMaxBalance(ctx, playerName, cur.ID, max)
}

// LoadPlayerBalances populates cache entries for every enabled currency,
// creating missing zero-balance accounts along the way.
func (s *Store) LoadPlayerBalances(ctx context.Context, playerName, playerUUID string) error {
	for _, cur := range s.registry.ListEnabled() {
		acct, err := s.repo.GetOrCreate(ctx, playerName, playerUUID, cur.ID)
		if err != nil {
			return fmt.Errorf("failed to load balances for %s: %w", playerName, err)
		}
		s.cache.Store(cacheKey{playerName, cur.ID}, acct.Balance)
	}
	return nil
}

// UnloadPlayer drops every cache entry of the player.
func (s *Store) UnloadPlayer(playerName string) {
	s.cache.Range(func(k, v any) bool {
		if k.(cacheKey).playerName == playerName {
			s.cache.Delete(k)
		}
		return true
	})
}

func (s *Store) ClearCache() {
	s.cache.Range(func(k, v any) bool {
		s.cache.Delete(k)
		return true
	})
}

// RefreshCache overwrites one cache entry with the persisted balance.
// Entries for rows that no longer exist are dropped.
func (s *Store) RefreshCache(ctx context.Context, playerName string, currencyID uint) {
	key := cacheKey{playerName, currencyID}
	if _, loaded := s.cache.Load(key); !loaded {
		return
	}
	acct, err := s.repo.FindByPlayerAndCurrency(ctx, playerName, currencyID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.cache.Delete(key)
		}
		return
	}
	s.cache.Store(key, acct.Balance)
}

func (s *Store) cachedBalance(key cacheKey) decimal.Decimal {
	if v, ok := s.cache.Load(key); ok {
		return v.(decimal.Decimal)
	}
	return decimal.Zero
}

func (s *Store) schedulePersist(cur *currency.Currency, logType, playerName, playerUUID string, amount, before, after decimal.Decimal, reason, operator string) {
	task := func() {
		s.persist(cur, logType, playerName, playerUUID, amount, before, after, reason, operator)
	}
	if !s.exec.TrySubmit(task) {
		// queue saturated or shutting down; persist on the caller rather
		// than dropping durability
		task()
	}
}

// persist runs on an executor worker, or on the caller's goroutine when
// the queue is saturated or shut down. Success appends the audit row
// and fires the post-hook; a version conflict resyncs the cache entry
// from persistence; any other failure rolls the entry back to the
// pre-mutation balance.
func (s *Store) persist(cur *currency.Currency, logType, playerName, playerUUID string, amount, before, after decimal.Decimal, reason, operator string) {
	ctx := context.Background()
	key := cacheKey{playerName, cur.ID}

	acct, err := s.repo.GetOrCreate(ctx, playerName, playerUUID, cur.ID)
	if err != nil {
		log.Printf("persist failed for %s/%s: %v, rolling cache back", playerName, cur.Identifier, err)
		s.cache.Store(key, before)
		return
	}
	if err := s.repo.UpdateWithVersion(ctx, acct, after); err != nil {
		if errors.Is(err, ErrOptimisticLock) {
			log.Printf("version conflict persisting %s/%s, resyncing cache from store", playerName, cur.Identifier)
			if fresh, ferr := s.repo.FindByPlayerAndCurrency(ctx, playerName, cur.ID); ferr == nil {
				s.cache.Store(key, fresh.Balance)
			}
			return
		}
		log.Printf("persist failed for %s/%s: %v, rolling cache back", playerName, cur.Identifier, err)
		s.cache.Store(key, before)
		return
	}

	s.auditor.WriteLog(ctx, playerName, playerUUID, cur.ID, logType, amount, before, after, reason, operator)
	s.logConsole(cur, logType, playerName, amount, before, after, reason, operator)
	s.hooks.dispatchPost(PostTransactionEvent{
		PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
		Type: logType, Amount: amount,
		BalanceBefore: before, BalanceAfter: after,
		Reason: reason, Operator: operator,
	})
}

func (s *Store) finishDirect(ctx context.Context, cur *currency.Currency, logType, playerName, playerUUID string, amount, before, after decimal.Decimal, reason, operator string) {
	s.auditor.WriteLog(ctx, playerName, playerUUID, cur.ID, logType, amount, before, after, reason, operator)
	s.logConsole(cur, logType, playerName, amount, before, after, reason, operator)

	// refresh the cache entry only when the player is loaded on this node
	key := cacheKey{playerName, cur.ID}
	if _, loaded := s.cache.Load(key); loaded {
		s.cache.Store(key, after)
	}

	post := PostTransactionEvent{
		PlayerName: playerName, PlayerUUID: playerUUID, Currency: cur.Identifier,
		Type: logType, Amount: amount,
		BalanceBefore: before, BalanceAfter: after,
		Reason: reason, Operator: operator,
	}
	if !s.exec.TrySubmit(func() { s.hooks.dispatchPost(post) }) {
		s.hooks.dispatchPost(post)
	}
}

func (s *Store) logConsole(cur *currency.Currency, action, playerName string, amount, before, after decimal.Decimal, reason, operator string) {
	if !cur.ConsoleLog {
		return
	}
	log.Printf("[economy] %s %s %s %s (%s -> %s) reason=%q operator=%s",
		action, playerName, cur.Identifier,
		money.Format(amount, cur.Precision),
		money.Format(before, cur.Precision),
		money.Format(after, cur.Precision),
		reason, operator)
}

func effectiveMax(a *Account, cur *currency.Currency) int64 {
	if a.MaxBalance > 0 {
		return a.MaxBalance
	}
	return cur.DefaultMaxBalance
}
