package maintenance

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/state/accounts"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

// processBuybacks liquidates the allowed non-target holdings of every
// buyback account into its target asset through the order book. A failure
// on one account or asset is logged and never aborts the rest of the
// pass.
func (e *Engine) processBuybacks() {
	e.state.Accounts.Iterate(func(account *accounts.Model) bool {
		config := account.GetBuyback()
		if config == nil {
			return false
		}

		// Ascending asset-id order guarantees progress even while fills
		// reshuffle the balance list.
		for _, balance := range account.GetBalances() {
			if err := e.liquidate(account.ID(), config, types.AssetID(balance.Asset), balance.Value); err != nil {
				if err.Kind == Recoverable {
					e.logger.Error("buyback liquidation skipped",
						"account", account.ID(),
						"asset", balance.Asset,
						"err", err,
					)
					continue
				}

				e.logger.Error("buyback liquidation failed",
					"account", account.ID(),
					"asset", balance.Asset,
					"err", err,
				)
			}
		}

		return false
	})
}

// liquidate sells one holding for the target asset: the whole balance is
// offered for a minimal counter-amount so the order crosses anything on
// the book, and whatever the book could not absorb is cancelled straight
// away.
func (e *Engine) liquidate(account types.AccountID, config *accounts.BuybackConfig, asset types.AssetID, balance *big.Int) *Error {
	target := types.AssetID(config.AssetToBuy)
	if asset == target || balance.Sign() != 1 {
		return nil
	}

	if !config.IsAllowed(asset) {
		return recoverablef("asset %d is not in the allowed set", asset)
	}

	id, remaining, err := e.state.Orders.Create(account, asset, balance, target, big.NewInt(1))
	if err != nil {
		return recoverablef("placing order: %v", err)
	}

	if remaining.Sign() == 1 {
		if err := e.state.Orders.Cancel(id); err != nil {
			return recoverablef("cancelling unfilled remainder of order %d: %v", id, err)
		}
	}

	return nil
}
