package events

import (
	"testing"

	db "github.com/tendermint/tm-db"
)

func TestStoreEvents(t *testing.T) {
	store := NewEventsStore(db.NewMemDB())

	store.AddEvent(&AccountUpgradeEvent{
		Account: 42,
		From:    "annual",
		To:      "basic",
	})
	store.AddEvent(&OrderFilledEvent{
		ID:       7,
		Maker:    1,
		Taker:    2,
		Paid:     "100",
		Received: "200",
	})
	if err := store.CommitEvents(12); err != nil {
		t.Fatalf("commit events: %s", err)
	}

	store.AddEvent(&BudgetEvent{
		Time:        86400,
		SupplyDelta: "-5",
	})
	if err := store.CommitEvents(13); err != nil {
		t.Fatalf("commit events: %s", err)
	}

	loaded := store.LoadEvents(12)
	if len(loaded) != 2 {
		t.Fatalf("loaded %d events, expected 2", len(loaded))
	}

	upgrade, ok := loaded[0].(*AccountUpgradeEvent)
	if !ok {
		t.Fatalf("wrong event type %s", loaded[0].Type())
	}
	if upgrade.Account != 42 || upgrade.From != "annual" || upgrade.To != "basic" {
		t.Fatalf("wrong event payload: %+v", upgrade)
	}

	fill, ok := loaded[1].(*OrderFilledEvent)
	if !ok {
		t.Fatalf("wrong event type %s", loaded[1].Type())
	}
	if fill.Paid != "100" || fill.Received != "200" {
		t.Fatalf("wrong event payload: %+v", fill)
	}

	budget := store.LoadEvents(13)
	if len(budget) != 1 {
		t.Fatalf("loaded %d events, expected 1", len(budget))
	}
	if event, ok := budget[0].(*BudgetEvent); !ok || event.SupplyDelta != "-5" {
		t.Fatalf("wrong event payload: %+v", budget[0])
	}
}

func TestLoadEventsEmptyVersion(t *testing.T) {
	store := NewEventsStore(db.NewMemDB())

	if loaded := store.LoadEvents(99); len(loaded) != 0 {
		t.Fatalf("loaded %d events for an empty version", len(loaded))
	}
}

func TestResetPendingDropsBufferedEvents(t *testing.T) {
	store := NewEventsStore(db.NewMemDB())

	store.AddEvent(&OrderCanceledEvent{ID: 1, Seller: 2, Refund: "10"})
	store.ResetPending()

	if err := store.CommitEvents(1); err != nil {
		t.Fatalf("commit events: %s", err)
	}
	if loaded := store.LoadEvents(1); len(loaded) != 0 {
		t.Fatalf("loaded %d events after reset", len(loaded))
	}
}
