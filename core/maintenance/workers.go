package maintenance

import (
	"math/big"
	"sort"

	"github.com/meridian-chain/meridian-go-node/core/budget"
	"github.com/meridian-chain/meridian-go-node/core/state/workers"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

type rankedWorker struct {
	worker    *workers.Model
	approving *big.Int
}

// payWorkers disburses the worker budget to the active, approved workers
// in descending approval-stake order and returns what was left unspent.
// Inactive workers and workers without positive approval are never listed,
// not even with a zero payment.
func (e *Engine) payWorkers(now, dt uint64, funds *big.Int, tally *Tally) (*big.Int, *Error) {
	remaining := big.NewInt(0).Set(funds)

	var ranked []rankedWorker
	for _, worker := range e.state.Workers.GetWorkers() {
		if !worker.IsActive(now) {
			continue
		}

		approving := big.NewInt(0).Sub(tally.VotesFor(worker.GetVoteFor()), tally.VotesFor(worker.GetVoteAgainst()))
		if approving.Sign() != 1 {
			continue
		}

		ranked = append(ranked, rankedWorker{worker: worker, approving: approving})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if cmp := ranked[i].approving.Cmp(ranked[j].approving); cmp != 0 {
			return cmp == 1
		}
		return ranked[i].worker.ID() < ranked[j].worker.ID()
	})

	for _, candidate := range ranked {
		if remaining.Sign() != 1 {
			break
		}

		requested := budget.ProRatedPay(candidate.worker.GetDailyPay(), dt)
		pay := budget.Min(remaining, requested)
		if pay.Sign() != 1 {
			continue
		}

		if err := e.payWorker(candidate.worker, pay); err != nil {
			return nil, err
		}

		remaining.Sub(remaining, pay)
	}

	return remaining, nil
}

// payWorker applies one payment through the worker's strategy. The kind
// set is closed; an unknown kind is a programmer bug and aborts the pass.
func (e *Engine) payWorker(worker *workers.Model, pay *big.Int) *Error {
	switch worker.GetKind() {
	case types.WorkerRefund:
		e.state.Assets.ApplySupplyDelta(big.NewInt(0).Neg(pay))
	case types.WorkerBurn:
		e.state.Assets.ApplySupplyDelta(big.NewInt(0).Neg(pay))
		e.state.Assets.AddFeeBurnt(pay)
	case types.WorkerVesting:
		e.state.Accounts.AddVesting(worker.GetAccount(), pay)
	default:
		return fatalf("worker %d has unknown kind %d", worker.ID(), worker.GetKind())
	}

	e.logger.Debug("worker paid",
		"worker", worker.ID(),
		"kind", worker.GetKind().String(),
		"pay", pay.String(),
	)

	return nil
}
