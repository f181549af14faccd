package bus

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

type Accounts interface {
	AddBalance(types.AccountID, types.AssetID, *big.Int)
	SubBalance(types.AccountID, types.AssetID, *big.Int) error
	GetBalance(types.AccountID, types.AssetID) *big.Int
	AddOrdersLocked(types.AccountID, *big.Int)
}
