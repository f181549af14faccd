package app

import (
	"math/big"
)

// Params are the committee-governed chain parameters. The maintenance
// engine reads them and only ever writes them through the scheduled
// pending-parameter swap.
type Params struct {
	MaintenanceInterval  uint64
	BlockInterval        uint64
	MinWitnessCount      uint16
	MaxWitnessCount      uint16
	MinCommitteeCount    uint16
	MaxCommitteeCount    uint16
	WitnessPayPerBlock   *big.Int
	WorkerBudgetPerDay   *big.Int
	CountNonMemberVotes  bool
	BudgetDecayNumerator uint64
	BudgetDecayBits      uint64
}

func (p *Params) copy() *Params {
	params := *p
	params.WitnessPayPerBlock = big.NewInt(0).Set(p.WitnessPayPerBlock)
	params.WorkerBudgetPerDay = big.NewInt(0).Set(p.WorkerBudgetPerDay)

	return &params
}

type globalsModel struct {
	Params          Params
	PendingParams   *Params `rlp:"nil"`
	NextVoteID      uint32
	ActiveWitnesses []uint32
	ActiveCommittee []uint32
}

type dynamicModel struct {
	NextMaintenanceTime uint64
	LastBudgetTime      uint64
	WitnessBudget       *big.Int
	AccountsRegistered  uint32
}

// BudgetRecord is the immutable per-interval snapshot of the budget
// computation.
type BudgetRecord struct {
	Time                    uint64
	TimeSinceLastBudget     uint64
	FromInitialReserve      *big.Int
	FromAccumulatedFees     *big.Int
	FromUnusedWitnessBudget *big.Int
	RequestedWitnessBudget  *big.Int
	TotalBudget             *big.Int
	WitnessBudget           *big.Int
	WorkerBudget            *big.Int
	LeftoverWorkerFunds     *big.Int
	SupplyDelta             *big.Int
}

// budgetRecordData is the rlp form: the supply delta may be negative, so
// it is stored as magnitude plus sign.
type budgetRecordData struct {
	TimeSinceLastBudget     uint64
	FromInitialReserve      *big.Int
	FromAccumulatedFees     *big.Int
	FromUnusedWitnessBudget *big.Int
	RequestedWitnessBudget  *big.Int
	TotalBudget             *big.Int
	WitnessBudget           *big.Int
	WorkerBudget            *big.Int
	LeftoverWorkerFunds     *big.Int
	SupplyDeltaAbs          *big.Int
	SupplyDeltaNeg          bool
}

func (rec *BudgetRecord) data() *budgetRecordData {
	return &budgetRecordData{
		TimeSinceLastBudget:     rec.TimeSinceLastBudget,
		FromInitialReserve:      rec.FromInitialReserve,
		FromAccumulatedFees:     rec.FromAccumulatedFees,
		FromUnusedWitnessBudget: rec.FromUnusedWitnessBudget,
		RequestedWitnessBudget:  rec.RequestedWitnessBudget,
		TotalBudget:             rec.TotalBudget,
		WitnessBudget:           rec.WitnessBudget,
		WorkerBudget:            rec.WorkerBudget,
		LeftoverWorkerFunds:     rec.LeftoverWorkerFunds,
		SupplyDeltaAbs:          big.NewInt(0).Abs(rec.SupplyDelta),
		SupplyDeltaNeg:          rec.SupplyDelta.Sign() == -1,
	}
}

func (data *budgetRecordData) record(time uint64) *BudgetRecord {
	supplyDelta := big.NewInt(0).Set(data.SupplyDeltaAbs)
	if data.SupplyDeltaNeg {
		supplyDelta.Neg(supplyDelta)
	}

	return &BudgetRecord{
		Time:                    time,
		TimeSinceLastBudget:     data.TimeSinceLastBudget,
		FromInitialReserve:      data.FromInitialReserve,
		FromAccumulatedFees:     data.FromAccumulatedFees,
		FromUnusedWitnessBudget: data.FromUnusedWitnessBudget,
		RequestedWitnessBudget:  data.RequestedWitnessBudget,
		TotalBudget:             data.TotalBudget,
		WitnessBudget:           data.WitnessBudget,
		WorkerBudget:            data.WorkerBudget,
		LeftoverWorkerFunds:     data.LeftoverWorkerFunds,
		SupplyDelta:             supplyDelta,
	}
}
