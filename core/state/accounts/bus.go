package accounts

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

type Bus struct {
	accounts *Accounts
}

func NewBus(accounts *Accounts) *Bus {
	return &Bus{accounts: accounts}
}

func (b *Bus) AddBalance(id types.AccountID, asset types.AssetID, amount *big.Int) {
	b.accounts.AddBalance(id, asset, amount)
}

func (b *Bus) SubBalance(id types.AccountID, asset types.AssetID, amount *big.Int) error {
	return b.accounts.SubBalance(id, asset, amount)
}

func (b *Bus) GetBalance(id types.AccountID, asset types.AssetID) *big.Int {
	return b.accounts.GetBalance(id, asset)
}

func (b *Bus) AddOrdersLocked(id types.AccountID, delta *big.Int) {
	b.accounts.AddOrdersLocked(id, delta)
}
