package checker

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/meridian-chain/meridian-go-node/core/state/bus"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

// Checker accumulates, per asset, the holder-side deltas (balances, fee
// buckets, order book, carried budgets) and the supply-side volume deltas
// of everything the current pass mutated. Both sums must match exactly
// before the pass is allowed to commit.
type Checker struct {
	delta       map[types.AssetID]*big.Int
	volumeDelta map[types.AssetID]*big.Int

	lock sync.RWMutex
}

func NewChecker(bus *bus.Bus) *Checker {
	checker := &Checker{
		delta:       map[types.AssetID]*big.Int{},
		volumeDelta: map[types.AssetID]*big.Int{},
	}
	bus.SetChecker(checker)

	return checker
}

func (c *Checker) AddAsset(asset types.AssetID, value *big.Int, msg ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	cValue, exists := c.delta[asset]

	if !exists {
		cValue = big.NewInt(0)
		c.delta[asset] = cValue
	}

	cValue.Add(cValue, value)
}

func (c *Checker) AddAssetVolume(asset types.AssetID, value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	cValue, exists := c.volumeDelta[asset]

	if !exists {
		cValue = big.NewInt(0)
		c.volumeDelta[asset] = cValue
	}

	cValue.Add(cValue, value)
}

// Reset resets checker asset data
func (c *Checker) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.delta = map[types.AssetID]*big.Int{}
	c.volumeDelta = map[types.AssetID]*big.Int{}
}

func (c *Checker) Check() error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for asset, delta := range c.delta {
		volume := c.volumeDelta[asset]
		if volume == nil {
			volume = big.NewInt(0)
		}

		if delta.Cmp(volume) != 0 {
			return fmt.Errorf("invariants error on asset %d: %s", asset, big.NewInt(0).Sub(volume, delta).String())
		}
	}

	for asset, volume := range c.volumeDelta {
		if _, exists := c.delta[asset]; exists {
			continue
		}

		if volume.Sign() != 0 {
			return fmt.Errorf("invariants error on asset %d: %s", asset, volume.String())
		}
	}

	return nil
}
