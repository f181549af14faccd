package app

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/meridian-chain/meridian-go-node/core/state/bus"
	"github.com/meridian-chain/meridian-go-node/core/types"
	"github.com/meridian-chain/meridian-go-node/helpers"
)

const globalsPrefix = byte('g')
const dynamicPrefix = byte('d')
const budgetPrefix = byte('b')

// RApp interface represents the global-properties state
type RApp interface {
	Export(state *types.AppState)
	Params() *Params
	NextVoteID() types.VoteID
	ActiveWitnesses() []types.WitnessID
	ActiveCommittee() []types.CommitteeID
	NextMaintenanceTime() uint64
	LastBudgetTime() uint64
	WitnessBudget() *big.Int
	AccountsRegistered() uint32
	GetBudgetRecord(time uint64) *BudgetRecord
}

// App is a store of the chain's global and dynamic global properties plus
// the per-interval budget record history.
type App struct {
	globals       *globalsModel
	globalsDirty  bool
	dynamic       *dynamicModel
	dynamicDirty  bool
	budgetRecords map[uint64]*BudgetRecord
	budgetDirty   map[uint64]struct{}

	db  atomic.Value
	bus *bus.Bus
	mx  sync.Mutex
}

func NewApp(stateBus *bus.Bus, db *iavl.ImmutableTree) *App {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &App{
		bus:           stateBus,
		db:            immutableTree,
		budgetRecords: map[uint64]*BudgetRecord{},
		budgetDirty:   map[uint64]struct{}{},
	}
}

func (a *App) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *App) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *App) Commit(db *iavl.MutableTree, version int64) error {
	a.mx.Lock()
	defer a.mx.Unlock()

	if a.globalsDirty {
		a.globalsDirty = false

		data, err := rlp.EncodeToBytes(a.globals)
		if err != nil {
			return fmt.Errorf("can't encode global properties: %v", err)
		}
		db.Set([]byte{globalsPrefix}, data)
	}

	if a.dynamicDirty {
		a.dynamicDirty = false

		data, err := rlp.EncodeToBytes(a.dynamic)
		if err != nil {
			return fmt.Errorf("can't encode dynamic global properties: %v", err)
		}
		db.Set([]byte{dynamicPrefix}, data)
	}

	times := make([]uint64, 0, len(a.budgetDirty))
	for time := range a.budgetDirty {
		times = append(times, time)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	for _, time := range times {
		delete(a.budgetDirty, time)

		data, err := rlp.EncodeToBytes(a.budgetRecords[time].data())
		if err != nil {
			return fmt.Errorf("can't encode budget record at %d: %v", time, err)
		}
		db.Set(getBudgetPath(time), data)
	}

	return nil
}

// Params returns a copy of the current chain parameters.
func (a *App) Params() *Params {
	return a.getGlobals().Params.copy()
}

func (a *App) SetParams(params *Params) {
	globals := a.getGlobals()

	a.mx.Lock()
	globals.Params = *params.copy()
	a.globalsDirty = true
	a.mx.Unlock()
}

// SetPendingParams schedules a parameter set to replace the current one at
// the next maintenance.
func (a *App) SetPendingParams(params *Params) {
	globals := a.getGlobals()

	a.mx.Lock()
	globals.PendingParams = params.copy()
	a.globalsDirty = true
	a.mx.Unlock()
}

// ApplyPendingParams swaps scheduled parameters in, if any. Reports
// whether a swap happened.
func (a *App) ApplyPendingParams() bool {
	globals := a.getGlobals()

	a.mx.Lock()
	defer a.mx.Unlock()

	if globals.PendingParams == nil {
		return false
	}

	globals.Params = *globals.PendingParams
	globals.PendingParams = nil
	a.globalsDirty = true

	return true
}

func (a *App) NextVoteID() types.VoteID {
	return types.VoteID(a.getGlobals().NextVoteID)
}

// AllocateVoteID hands out the next dense vote id.
func (a *App) AllocateVoteID() types.VoteID {
	globals := a.getGlobals()

	a.mx.Lock()
	defer a.mx.Unlock()

	id := globals.NextVoteID
	globals.NextVoteID++
	a.globalsDirty = true

	return types.VoteID(id)
}

func (a *App) ActiveWitnesses() []types.WitnessID {
	globals := a.getGlobals()

	active := make([]types.WitnessID, 0, len(globals.ActiveWitnesses))
	for _, id := range globals.ActiveWitnesses {
		active = append(active, types.WitnessID(id))
	}

	return active
}

func (a *App) SetActiveWitnesses(ids []types.WitnessID) {
	globals := a.getGlobals()

	active := make([]uint32, 0, len(ids))
	for _, id := range ids {
		active = append(active, uint32(id))
	}

	a.mx.Lock()
	globals.ActiveWitnesses = active
	a.globalsDirty = true
	a.mx.Unlock()
}

func (a *App) ActiveCommittee() []types.CommitteeID {
	globals := a.getGlobals()

	active := make([]types.CommitteeID, 0, len(globals.ActiveCommittee))
	for _, id := range globals.ActiveCommittee {
		active = append(active, types.CommitteeID(id))
	}

	return active
}

func (a *App) SetActiveCommittee(ids []types.CommitteeID) {
	globals := a.getGlobals()

	active := make([]uint32, 0, len(ids))
	for _, id := range ids {
		active = append(active, uint32(id))
	}

	a.mx.Lock()
	globals.ActiveCommittee = active
	a.globalsDirty = true
	a.mx.Unlock()
}

func (a *App) NextMaintenanceTime() uint64 {
	return a.getDynamic().NextMaintenanceTime
}

func (a *App) SetNextMaintenanceTime(time uint64) {
	dynamic := a.getDynamic()

	a.mx.Lock()
	dynamic.NextMaintenanceTime = time
	a.dynamicDirty = true
	a.mx.Unlock()
}

func (a *App) LastBudgetTime() uint64 {
	return a.getDynamic().LastBudgetTime
}

func (a *App) SetLastBudgetTime(time uint64) {
	dynamic := a.getDynamic()

	a.mx.Lock()
	dynamic.LastBudgetTime = time
	a.dynamicDirty = true
	a.mx.Unlock()
}

func (a *App) WitnessBudget() *big.Int {
	return big.NewInt(0).Set(a.getDynamic().WitnessBudget)
}

// SetWitnessBudget overwrites the carried witness budget. The old value
// was folded into the reserve by the budget computation, so this is a
// replacement, never an addition.
func (a *App) SetWitnessBudget(budget *big.Int) {
	dynamic := a.getDynamic()

	a.mx.Lock()
	old := dynamic.WitnessBudget
	dynamic.WitnessBudget = big.NewInt(0).Set(budget)
	a.dynamicDirty = true
	a.mx.Unlock()

	delta := big.NewInt(0).Sub(budget, old)
	if delta.Sign() != 0 {
		a.bus.Checker().AddAsset(types.GetCoreAssetID(), delta)
	}
}

func (a *App) AccountsRegistered() uint32 {
	return a.getDynamic().AccountsRegistered
}

func (a *App) IncAccountsRegistered() {
	dynamic := a.getDynamic()

	a.mx.Lock()
	dynamic.AccountsRegistered++
	a.dynamicDirty = true
	a.mx.Unlock()
}

func (a *App) ResetAccountsRegistered() {
	dynamic := a.getDynamic()

	a.mx.Lock()
	dynamic.AccountsRegistered = 0
	a.dynamicDirty = true
	a.mx.Unlock()
}

// AddBudgetRecord appends the interval's budget record to history.
func (a *App) AddBudgetRecord(rec *BudgetRecord) {
	a.mx.Lock()
	defer a.mx.Unlock()

	a.budgetRecords[rec.Time] = rec
	a.budgetDirty[rec.Time] = struct{}{}
}

func (a *App) GetBudgetRecord(time uint64) *BudgetRecord {
	a.mx.Lock()
	if rec, exists := a.budgetRecords[time]; exists {
		a.mx.Unlock()
		return rec
	}
	a.mx.Unlock()

	_, enc := a.immutableTree().Get(getBudgetPath(time))
	if len(enc) == 0 {
		return nil
	}

	data := &budgetRecordData{}
	if err := rlp.DecodeBytes(enc, data); err != nil {
		panic(fmt.Sprintf("failed to decode budget record at %d: %s", time, err))
	}

	rec := data.record(time)

	a.mx.Lock()
	a.budgetRecords[time] = rec
	a.mx.Unlock()

	return rec
}

func (a *App) getGlobals() *globalsModel {
	a.mx.Lock()
	defer a.mx.Unlock()

	if a.globals != nil {
		return a.globals
	}

	_, enc := a.immutableTree().Get([]byte{globalsPrefix})
	if len(enc) == 0 {
		a.globals = &globalsModel{
			Params: Params{
				WitnessPayPerBlock: big.NewInt(0),
				WorkerBudgetPerDay: big.NewInt(0),
			},
		}
		return a.globals
	}

	globals := &globalsModel{}
	if err := rlp.DecodeBytes(enc, globals); err != nil {
		panic(fmt.Sprintf("failed to decode global properties: %s", err))
	}

	a.globals = globals

	return a.globals
}

func (a *App) getDynamic() *dynamicModel {
	a.mx.Lock()
	defer a.mx.Unlock()

	if a.dynamic != nil {
		return a.dynamic
	}

	_, enc := a.immutableTree().Get([]byte{dynamicPrefix})
	if len(enc) == 0 {
		a.dynamic = &dynamicModel{WitnessBudget: big.NewInt(0)}
		return a.dynamic
	}

	dynamic := &dynamicModel{}
	if err := rlp.DecodeBytes(enc, dynamic); err != nil {
		panic(fmt.Sprintf("failed to decode dynamic global properties: %s", err))
	}

	a.dynamic = dynamic

	return a.dynamic
}

func (a *App) Export(state *types.AppState) {
	globals := a.getGlobals()
	dynamic := a.getDynamic()

	state.Params = exportParams(&globals.Params)
	if globals.PendingParams != nil {
		pending := exportParams(globals.PendingParams)
		state.PendingParams = &pending
	}
	state.NextVoteID = globals.NextVoteID
	state.ActiveWitnesses = globals.ActiveWitnesses
	state.ActiveCommittee = globals.ActiveCommittee
	state.NextMaintenance = dynamic.NextMaintenanceTime
	state.LastBudgetTime = dynamic.LastBudgetTime
	state.WitnessBudget = dynamic.WitnessBudget.String()
}

// Import loads global properties from exported state.
func (a *App) Import(state *types.AppState) {
	a.mx.Lock()
	a.globals = &globalsModel{
		Params:          importParams(&state.Params),
		NextVoteID:      state.NextVoteID,
		ActiveWitnesses: state.ActiveWitnesses,
		ActiveCommittee: state.ActiveCommittee,
	}
	if state.PendingParams != nil {
		pending := importParams(state.PendingParams)
		a.globals.PendingParams = &pending
	}
	a.dynamic = &dynamicModel{
		NextMaintenanceTime: state.NextMaintenance,
		LastBudgetTime:      state.LastBudgetTime,
		WitnessBudget:       helpers.StringToBigInt(state.WitnessBudget),
	}
	a.globalsDirty = true
	a.dynamicDirty = true
	a.mx.Unlock()
}

func exportParams(params *Params) types.Params {
	return types.Params{
		MaintenanceInterval:  int64(params.MaintenanceInterval),
		BlockInterval:        int64(params.BlockInterval),
		MinWitnessCount:      params.MinWitnessCount,
		MaxWitnessCount:      params.MaxWitnessCount,
		MinCommitteeCount:    params.MinCommitteeCount,
		MaxCommitteeCount:    params.MaxCommitteeCount,
		WitnessPayPerBlock:   params.WitnessPayPerBlock.String(),
		WorkerBudgetPerDay:   params.WorkerBudgetPerDay.String(),
		CountNonMemberVotes:  params.CountNonMemberVotes,
		BudgetDecayNumerator: params.BudgetDecayNumerator,
		BudgetDecayBits:      uint(params.BudgetDecayBits),
	}
}

func importParams(params *types.Params) Params {
	return Params{
		MaintenanceInterval:  uint64(params.MaintenanceInterval),
		BlockInterval:        uint64(params.BlockInterval),
		MinWitnessCount:      params.MinWitnessCount,
		MaxWitnessCount:      params.MaxWitnessCount,
		MinCommitteeCount:    params.MinCommitteeCount,
		MaxCommitteeCount:    params.MaxCommitteeCount,
		WitnessPayPerBlock:   helpers.StringToBigInt(params.WitnessPayPerBlock),
		WorkerBudgetPerDay:   helpers.StringToBigInt(params.WorkerBudgetPerDay),
		CountNonMemberVotes:  params.CountNonMemberVotes,
		BudgetDecayNumerator: params.BudgetDecayNumerator,
		BudgetDecayBits:      uint64(params.BudgetDecayBits),
	}
}

func getBudgetPath(time uint64) []byte {
	path := make([]byte, 9)
	path[0] = budgetPrefix
	binary.BigEndian.PutUint64(path[1:], time)

	return path
}
