package bus

import (
	"github.com/meridian-chain/meridian-go-node/core/events"
)

// Bus wires the state concerns together without direct package
// dependencies between them.
type Bus struct {
	checker  Checker
	accounts Accounts
	assets   Assets
	events   events.IEventsDB
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SetChecker(checker Checker) {
	b.checker = checker
}

func (b *Bus) Checker() Checker {
	return b.checker
}

func (b *Bus) SetAccounts(accounts Accounts) {
	b.accounts = accounts
}

func (b *Bus) Accounts() Accounts {
	return b.accounts
}

func (b *Bus) SetAssets(assets Assets) {
	b.assets = assets
}

func (b *Bus) Assets() Assets {
	return b.assets
}

func (b *Bus) SetEvents(events events.IEventsDB) {
	b.events = events
}

func (b *Bus) Events() events.IEventsDB {
	return b.events
}
