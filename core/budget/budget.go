package budget

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/types"
	"github.com/meridian-chain/meridian-go-node/helpers"
)

// TotalBudget computes the amount released from the reserve over dt
// seconds. The release rate is decayNumerator/2^decayBits of the reserve
// per second, rounded up, and never exceeds the reserve itself.
func TotalBudget(reserve *big.Int, dt uint64, decayNumerator uint64, decayBits uint) *big.Int {
	if reserve.Sign() != 1 || dt == 0 || decayNumerator == 0 {
		return big.NewInt(0)
	}

	numerator := big.NewInt(0).Mul(reserve, big.NewInt(0).SetUint64(dt))
	numerator.Mul(numerator, big.NewInt(0).SetUint64(decayNumerator))

	denominator := big.NewInt(0).Lsh(big.NewInt(1), decayBits)

	total := helpers.CeilDiv(numerator, denominator)
	if total.Cmp(reserve) == 1 {
		return big.NewInt(0).Set(reserve)
	}

	return total
}

// RequestedWitnessBudget is the pay for every block expected until the
// upcoming maintenance: payPerBlock times the block count, rounded up so
// a partial trailing interval still pays a full block.
func RequestedWitnessBudget(payPerBlock *big.Int, secsToMaintenance, blockInterval uint64) *big.Int {
	if payPerBlock.Sign() != 1 || secsToMaintenance == 0 || blockInterval == 0 {
		return big.NewInt(0)
	}

	blocks := secsToMaintenance / blockInterval
	if secsToMaintenance%blockInterval != 0 {
		blocks++
	}

	return big.NewInt(0).Mul(payPerBlock, big.NewInt(0).SetUint64(blocks))
}

// RequestedWorkerBudget scales the per-day worker allowance to the dt
// seconds since the last budget, rounding down.
func RequestedWorkerBudget(perDay *big.Int, dt uint64) *big.Int {
	if perDay.Sign() != 1 || dt == 0 {
		return big.NewInt(0)
	}

	requested := big.NewInt(0).Mul(perDay, big.NewInt(0).SetUint64(dt))

	return requested.Div(requested, big.NewInt(types.PerDaySeconds))
}

// ProRatedPay scales a worker's daily pay to dt seconds, rounding down.
func ProRatedPay(dailyPay *big.Int, dt uint64) *big.Int {
	if dailyPay.Sign() != 1 || dt == 0 {
		return big.NewInt(0)
	}

	pay := big.NewInt(0).Mul(dailyPay, big.NewInt(0).SetUint64(dt))

	return pay.Div(pay, big.NewInt(types.PerDaySeconds))
}

// Min returns the smaller of a and b as a fresh value.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) == 1 {
		return big.NewInt(0).Set(b)
	}

	return big.NewInt(0).Set(a)
}
