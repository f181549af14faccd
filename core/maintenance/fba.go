package maintenance

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/state/fba"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

// distributeFees splits every non-empty fee bucket into buyback, issuer
// and network shares. The network share absorbs the rounding remainder so
// the three parts always sum to the pre-split balance exactly. Buckets
// without a usable configuration burn their whole balance.
func (e *Engine) distributeFees() *Error {
	for _, bucket := range e.state.FeeBuckets.GetBuckets() {
		balance := bucket.GetBalance()
		if balance.Sign() != 1 {
			continue
		}

		if bucket.GetBuybackPct()+bucket.GetIssuerPct() > types.Unit100Percent {
			return fatalf("fee bucket %d shares exceed 100%%: buyback %d, issuer %d",
				bucket.ID(), bucket.GetBuybackPct(), bucket.GetIssuerPct())
		}

		asset := e.state.Assets.GetAsset(bucket.GetDesignatedAsset())
		if !bucket.HasValidConfig() || asset == nil || asset.GetIssuer() == 0 || asset.GetBuybackAccount() == 0 {
			e.burnBucket(bucket, balance)
			continue
		}

		buybackAmount := big.NewInt(0).Mul(balance, big.NewInt(int64(bucket.GetBuybackPct())))
		buybackAmount.Div(buybackAmount, big.NewInt(types.Unit100Percent))

		issuerAmount := big.NewInt(0).Mul(balance, big.NewInt(int64(bucket.GetIssuerPct())))
		issuerAmount.Div(issuerAmount, big.NewInt(types.Unit100Percent))

		networkAmount := big.NewInt(0).Sub(balance, buybackAmount)
		networkAmount.Sub(networkAmount, issuerAmount)

		e.state.FeeBuckets.WithdrawAll(bucket.ID())

		if buybackAmount.Sign() == 1 {
			e.state.Accounts.AddBalance(asset.GetBuybackAccount(), e.cfg.CoreAsset, buybackAmount)
		}
		if issuerAmount.Sign() == 1 {
			e.state.Accounts.AddBalance(asset.GetIssuer(), e.cfg.CoreAsset, issuerAmount)
		}
		if networkAmount.Sign() == 1 {
			e.state.Assets.ApplySupplyDelta(big.NewInt(0).Neg(networkAmount))
			e.state.Assets.AddFeeBurnt(networkAmount)
		}

		e.addEvent(&events.FBADistributeEvent{
			Bucket:         uint32(bucket.ID()),
			BuybackAccount: uint64(asset.GetBuybackAccount()),
			BuybackAmount:  buybackAmount.String(),
			IssuerAccount:  uint64(asset.GetIssuer()),
			IssuerAmount:   issuerAmount.String(),
			NetworkAmount:  networkAmount.String(),
		})

		e.logger.Info("fee bucket distributed",
			"bucket", bucket.ID(),
			"buyback", buybackAmount.String(),
			"issuer", issuerAmount.String(),
			"network", networkAmount.String(),
		)
	}

	return nil
}

// burnBucket destroys the entire bucket balance to the network.
func (e *Engine) burnBucket(bucket *fba.Model, balance *big.Int) {
	e.state.FeeBuckets.WithdrawAll(bucket.ID())
	e.state.Assets.ApplySupplyDelta(big.NewInt(0).Neg(balance))
	e.state.Assets.AddFeeBurnt(balance)

	e.addEvent(&events.FBADistributeEvent{
		Bucket:        uint32(bucket.ID()),
		BuybackAmount: "0",
		IssuerAmount:  "0",
		NetworkAmount: balance.String(),
	})

	e.logger.Info("fee bucket burnt", "bucket", bucket.ID(), "amount", balance.String())
}
