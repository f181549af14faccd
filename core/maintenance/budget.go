package maintenance

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/budget"
	"github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/state/app"
)

// processBudget releases funds from the reserve for the elapsed interval,
// allocates them between witness pay and worker pay, disburses the worker
// share and records the whole computation. The previous witness budget and
// the fee accumulator were folded into the reserve, so the recorded supply
// delta subtracts them back out.
func (e *Engine) processBudget(now, newNextMaintenance uint64, tally *Tally) *Error {
	params := e.state.App.Params()

	last := e.state.App.LastBudgetTime()
	if last == 0 || now == last {
		// First interval, or no time elapsed: nothing to release.
		e.state.App.SetLastBudgetTime(now)
		e.logger.Info("budget pass skipped", "time", now, "last_budget_time", last)
		return nil
	}
	if now < last {
		return fatalf("budget time %d precedes last budget time %d", now, last)
	}
	dt := now - last

	secsToMaintenance := newNextMaintenance - now

	fromInitialReserve := e.state.Assets.Reserved()
	fromAccumulatedFees := e.state.Assets.AccumulatedFees()
	fromUnusedWitnessBudget := e.state.App.WitnessBudget()

	reserve := big.NewInt(0).Add(fromInitialReserve, fromAccumulatedFees)
	reserve.Add(reserve, fromUnusedWitnessBudget)

	totalBudget := budget.TotalBudget(reserve, dt, params.BudgetDecayNumerator, uint(params.BudgetDecayBits))

	requestedWitnessBudget := budget.RequestedWitnessBudget(params.WitnessPayPerBlock, secsToMaintenance, params.BlockInterval)
	available := big.NewInt(0).Set(totalBudget)
	witnessBudget := budget.Min(requestedWitnessBudget, available)
	available.Sub(available, witnessBudget)

	requestedWorkerBudget := budget.RequestedWorkerBudget(params.WorkerBudgetPerDay, dt)
	workerBudget := budget.Min(requestedWorkerBudget, available)

	leftover, err := e.payWorkers(now, dt, workerBudget, tally)
	if err != nil {
		return err
	}

	supplyDelta := big.NewInt(0).Add(witnessBudget, workerBudget)
	supplyDelta.Sub(supplyDelta, leftover)
	supplyDelta.Sub(supplyDelta, fromAccumulatedFees)
	supplyDelta.Sub(supplyDelta, fromUnusedWitnessBudget)

	e.state.Assets.ApplySupplyDelta(supplyDelta)
	e.state.Assets.ZeroAccumulatedFees()
	e.state.App.SetWitnessBudget(witnessBudget)
	e.state.App.SetLastBudgetTime(now)

	record := &app.BudgetRecord{
		Time:                    now,
		TimeSinceLastBudget:     dt,
		FromInitialReserve:      fromInitialReserve,
		FromAccumulatedFees:     fromAccumulatedFees,
		FromUnusedWitnessBudget: fromUnusedWitnessBudget,
		RequestedWitnessBudget:  requestedWitnessBudget,
		TotalBudget:             totalBudget,
		WitnessBudget:           witnessBudget,
		WorkerBudget:            workerBudget,
		LeftoverWorkerFunds:     leftover,
		SupplyDelta:             supplyDelta,
	}
	e.state.App.AddBudgetRecord(record)

	e.addEvent(&events.BudgetEvent{
		Time:                    now,
		TimeSinceLastBudget:     dt,
		FromInitialReserve:      fromInitialReserve.String(),
		FromAccumulatedFees:     fromAccumulatedFees.String(),
		FromUnusedWitnessBudget: fromUnusedWitnessBudget.String(),
		RequestedWitnessBudget:  requestedWitnessBudget.String(),
		TotalBudget:             totalBudget.String(),
		WitnessBudget:           witnessBudget.String(),
		WorkerBudget:            workerBudget.String(),
		LeftoverWorkerFunds:     leftover.String(),
		SupplyDelta:             supplyDelta.String(),
	})

	return nil
}
