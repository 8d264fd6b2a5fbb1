package account

import (
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

// PreTransactionEvent is offered to every pre-change subscriber before a
// mutation commits. Any subscriber may Cancel; the store reads the flag
// only after all subscribers have seen the event.
type PreTransactionEvent struct {
	PlayerName    string
	PlayerUUID    string
	Currency      string
	Type          string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Reason        string
	Operator      string

	cancelled bool
}

func (e *PreTransactionEvent) Cancel() {
	e.cancelled = true
}

func (e *PreTransactionEvent) Cancelled() bool {
	return e.cancelled
}

// PostTransactionEvent reflects the committed balances of a successful
// mutation. It cannot be cancelled.
type PostTransactionEvent struct {
	PlayerName    string
	PlayerUUID    string
	Currency      string
	Type          string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Reason        string
	Operator      string
}

type PreHook func(*PreTransactionEvent)

type PostHook func(PostTransactionEvent)

// hookHub holds the two subscriber lists. Dispatch copies the list under
// the read lock and releases it before calling anyone, so subscribers
// never run while a store lock is held.
type hookHub struct {
	mu   sync.RWMutex
	pre  []PreHook
	post []PostHook
}

func (h *hookHub) SubscribePre(fn PreHook) {
	h.mu.Lock()
	h.pre = append(h.pre, fn)
	h.mu.Unlock()
}

func (h *hookHub) SubscribePost(fn PostHook) {
	h.mu.Lock()
	h.post = append(h.post, fn)
	h.mu.Unlock()
}

func (h *hookHub) dispatchPre(e *PreTransactionEvent) bool {
	h.mu.RLock()
	subs := make([]PreHook, len(h.pre))
	copy(subs, h.pre)
	h.mu.RUnlock()

	for _, fn := range subs {
		offer(e, fn)
	}
	return e.Cancelled()
}

func (h *hookHub) dispatchPost(e PostTransactionEvent) {
	h.mu.RLock()
	subs := make([]PostHook, len(h.post))
	copy(subs, h.post)
	h.mu.RUnlock()

	for _, fn := range subs {
		notify(e, fn)
	}
}

// one failing subscriber must not break the mutation or starve the rest

func offer(e *PreTransactionEvent, fn PreHook) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pre-transaction subscriber panic: %v", r)
		}
	}()
	fn(e)
}

func notify(e PostTransactionEvent, fn PostHook) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("post-transaction subscriber panic: %v", r)
		}
	}()
	fn(e)
}
