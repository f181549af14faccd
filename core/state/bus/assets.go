package bus

import (
	"github.com/meridian-chain/meridian-go-node/core/types"
)

type Asset struct {
	ID             types.AssetID
	Symbol         string
	Issuer         types.AccountID
	BuybackAccount types.AccountID
}

type Assets interface {
	GetAsset(types.AssetID) *Asset
}
