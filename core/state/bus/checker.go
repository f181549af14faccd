package bus

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

type Checker interface {
	AddAsset(types.AssetID, *big.Int, ...string)
	AddAssetVolume(types.AssetID, *big.Int)
}
