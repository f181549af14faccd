package types

import "math/big"

// Unit100Percent is the basis-point denominator used by all percentage
// parameters (fee splits, thresholds).
const Unit100Percent = 10000

// PerDaySeconds is the number of seconds the per-day economic parameters
// (worker budget, worker pay) are quoted against.
const PerDaySeconds = 86400

// ProxyToSelf marks an account that votes with its own opinions instead of
// delegating them to another account.
const ProxyToSelf = AccountID(0)

// GetCoreAssetID returns the id of the chain's core asset. All stake, fees
// and budgets are denominated in it.
func GetCoreAssetID() AssetID {
	return AssetID(0)
}

var maxCoreSupply = big.NewInt(1000000000000000)

// MaxCoreSupply returns the hard cap of the core asset in base units. The
// difference between it and the current supply is the reserve the budget is
// released from.
func MaxCoreSupply() *big.Int {
	return new(big.Int).Set(maxCoreSupply)
}
