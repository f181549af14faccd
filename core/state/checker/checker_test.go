package checker

import (
	"math/big"
	"testing"

	"github.com/meridian-chain/meridian-go-node/core/state/bus"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

func TestCheckerBalanced(t *testing.T) {
	t.Parallel()
	c := NewChecker(bus.NewBus())

	core := types.GetCoreAssetID()
	c.AddAsset(core, big.NewInt(100))
	c.AddAsset(core, big.NewInt(-30))
	c.AddAssetVolume(core, big.NewInt(70))

	if err := c.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestCheckerMismatch(t *testing.T) {
	t.Parallel()
	c := NewChecker(bus.NewBus())

	core := types.GetCoreAssetID()
	c.AddAsset(core, big.NewInt(100))
	c.AddAssetVolume(core, big.NewInt(99))

	if err := c.Check(); err == nil {
		t.Fatal("expected invariants error")
	}
}

func TestCheckerVolumeWithoutHolders(t *testing.T) {
	t.Parallel()
	c := NewChecker(bus.NewBus())

	c.AddAssetVolume(types.AssetID(7), big.NewInt(1))

	if err := c.Check(); err == nil {
		t.Fatal("expected invariants error")
	}

	c.Reset()

	if err := c.Check(); err != nil {
		t.Fatal(err)
	}
}
