package account

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPreHookCancellation(t *testing.T) {
	var hub hookHub
	offered := 0
	hub.SubscribePre(func(e *PreTransactionEvent) {
		offered++
		e.Cancel()
	})
	hub.SubscribePre(func(e *PreTransactionEvent) {
		// still offered even after an earlier subscriber cancelled
		offered++
	})

	e := &PreTransactionEvent{PlayerName: "alice", Amount: decimal.NewFromInt(5)}
	cancelled := hub.dispatchPre(e)
	assert.True(t, cancelled)
	assert.Equal(t, 2, offered)
}

func TestPreHookNoCancellation(t *testing.T) {
	var hub hookHub
	hub.SubscribePre(func(e *PreTransactionEvent) {})
	e := &PreTransactionEvent{PlayerName: "alice"}
	assert.False(t, hub.dispatchPre(e))
}

func TestSubscriberPanicIsolated(t *testing.T) {
	var hub hookHub
	reached := false
	hub.SubscribePre(func(e *PreTransactionEvent) { panic("bad subscriber") })
	hub.SubscribePre(func(e *PreTransactionEvent) { reached = true })

	cancelled := hub.dispatchPre(&PreTransactionEvent{})
	assert.False(t, cancelled)
	assert.True(t, reached)

	hub.SubscribePost(func(e PostTransactionEvent) { panic("bad subscriber") })
	postReached := false
	hub.SubscribePost(func(e PostTransactionEvent) { postReached = true })
	hub.dispatchPost(PostTransactionEvent{})
	assert.True(t, postReached)
}

func TestPostHookCarriesCommittedBalances(t *testing.T) {
	var hub hookHub
	var got PostTransactionEvent
	hub.SubscribePost(func(e PostTransactionEvent) { got = e })

	hub.dispatchPost(PostTransactionEvent{
		PlayerName:    "bob",
		Currency:      "coin",
		Type:          "DEPOSIT",
		Amount:        decimal.NewFromInt(10),
		BalanceBefore: decimal.NewFromInt(1),
		BalanceAfter:  decimal.NewFromInt(11),
		Reason:        "test",
		Operator:      "ADMIN",
	})
	assert.Equal(t, "bob", got.PlayerName)
	assert.True(t, got.BalanceAfter.Equal(decimal.NewFromInt(11)))
}
