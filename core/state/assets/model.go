package assets

import (
	"math/big"
	"sync"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

// Model is an asset record. Issuer and buyback account are what the FBA
// distribution needs to resolve its designated-asset shares.
type Model struct {
	Symbol         string
	Issuer         uint64
	BuybackAccount uint64

	id        types.AssetID
	markDirty func(types.AssetID)
	lock      sync.RWMutex
}

func (model *Model) ID() types.AssetID {
	return model.id
}

func (model *Model) GetSymbol() string {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Symbol
}

func (model *Model) GetIssuer() types.AccountID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AccountID(model.Issuer)
}

func (model *Model) GetBuybackAccount() types.AccountID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AccountID(model.BuybackAccount)
}

// dynamicData is the core-asset supply bookkeeping mutated by the budget
// and fee distribution. Supply changes go through checker volume deltas;
// accumulated fees are a holder bucket; fee burnt is a pure counter.
type dynamicData struct {
	CurrentSupply   *big.Int
	AccumulatedFees *big.Int
	FeeBurnt        *big.Int
}
