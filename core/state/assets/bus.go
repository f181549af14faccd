package assets

import (
	"github.com/meridian-chain/meridian-go-node/core/state/bus"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

type Bus struct {
	assets *Assets
}

func NewBus(assets *Assets) *Bus {
	return &Bus{assets: assets}
}

func (b *Bus) GetAsset(id types.AssetID) *bus.Asset {
	asset := b.assets.GetAsset(id)
	if asset == nil {
		return nil
	}

	return &bus.Asset{
		ID:             asset.ID(),
		Symbol:         asset.GetSymbol(),
		Issuer:         asset.GetIssuer(),
		BuybackAccount: asset.GetBuybackAccount(),
	}
}
