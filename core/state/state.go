package state

import (
	"log"
	"sync"

	"github.com/cosmos/iavl"
	db "github.com/tendermint/tm-db"

	eventsdb "github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/state/accounts"
	"github.com/meridian-chain/meridian-go-node/core/state/app"
	"github.com/meridian-chain/meridian-go-node/core/state/assets"
	"github.com/meridian-chain/meridian-go-node/core/state/bus"
	"github.com/meridian-chain/meridian-go-node/core/state/checker"
	"github.com/meridian-chain/meridian-go-node/core/state/committee"
	"github.com/meridian-chain/meridian-go-node/core/state/fba"
	"github.com/meridian-chain/meridian-go-node/core/state/orders"
	"github.com/meridian-chain/meridian-go-node/core/state/witnesses"
	"github.com/meridian-chain/meridian-go-node/core/state/workers"
	"github.com/meridian-chain/meridian-go-node/core/types"
	"github.com/meridian-chain/meridian-go-node/tree"
)

// CheckState is a read-only view over a State.
type CheckState struct {
	state *State
}

func NewCheckState(state *State) *CheckState {
	return &CheckState{state: state}
}

func (cs *CheckState) Export() types.AppState {
	appState := new(types.AppState)
	cs.App().Export(appState)
	cs.Accounts().Export(appState)
	cs.Assets().Export(appState)
	cs.Witnesses().Export(appState)
	cs.Committee().Export(appState)
	cs.Workers().Export(appState)
	cs.FeeBuckets().Export(appState)
	cs.Orders().Export(appState)

	return *appState
}

func (cs *CheckState) App() app.RApp {
	return cs.state.App
}
func (cs *CheckState) Accounts() accounts.RAccounts {
	return cs.state.Accounts
}
func (cs *CheckState) Assets() assets.RAssets {
	return cs.state.Assets
}
func (cs *CheckState) Witnesses() witnesses.RWitnesses {
	return cs.state.Witnesses
}
func (cs *CheckState) Committee() committee.RCommittee {
	return cs.state.Committee
}
func (cs *CheckState) Workers() workers.RWorkers {
	return cs.state.Workers
}
func (cs *CheckState) FeeBuckets() fba.RFeeBuckets {
	return cs.state.FeeBuckets
}
func (cs *CheckState) Orders() orders.ROrders {
	return cs.state.Orders
}

// State aggregates every state concern over one versioned tree. A saved
// tree version is the single commit point: mutations that were never
// saved do not exist in the next loaded version.
type State struct {
	App        *app.App
	Accounts   *accounts.Accounts
	Assets     *assets.Assets
	Witnesses  *witnesses.Witnesses
	Committee  *committee.Committee
	Workers    *workers.Workers
	FeeBuckets *fba.FeeBuckets
	Orders     *orders.Orders
	Checker    *checker.Checker

	db             db.DB
	events         eventsdb.IEventsDB
	tree           tree.MTree
	keepLastStates int64

	bus            *bus.Bus
	lock           sync.RWMutex
	height         int64
	initialVersion int64
}

func NewState(height uint64, stateDB db.DB, events eventsdb.IEventsDB, cacheSize int, keepLastStates int64, initialVersion uint64) (*State, error) {
	iavlTree, err := tree.NewMutableTree(height, stateDB, cacheSize, initialVersion)
	if err != nil {
		return nil, err
	}

	state := newStateForTree(iavlTree.GetLastImmutable(), events, stateDB, keepLastStates)
	state.tree = iavlTree
	state.height = int64(height)
	state.initialVersion = int64(initialVersion)

	return state, nil
}

func NewCheckStateAtHeight(height uint64, stateDB db.DB) (*CheckState, error) {
	iavlTree, err := tree.NewImmutableTree(height, stateDB)
	if err != nil {
		return nil, err
	}

	return NewCheckState(newStateForTree(iavlTree.GetLastImmutable(), nil, stateDB, 0)), nil
}

func (s *State) Tree() tree.MTree {
	return s.tree
}

func (s *State) Events() eventsdb.IEventsDB {
	return s.events
}

func (s *State) Bus() *bus.Bus {
	return s.bus
}

func (s *State) Height() int64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.height
}

func (s *State) Check() error {
	return s.Checker.Check()
}

// Commit saves a new tree version with every dirty record flushed.
func (s *State) Commit() ([]byte, error) {
	s.Checker.Reset()

	hash, version, err := s.tree.Commit(
		s.App,
		s.Accounts,
		s.Assets,
		s.Witnesses,
		s.Committee,
		s.Workers,
		s.FeeBuckets,
		s.Orders,
	)
	if err != nil {
		return hash, err
	}

	s.lock.Lock()
	s.height = version
	s.lock.Unlock()

	versionToDelete := version - s.keepLastStates - 1
	if versionToDelete < s.initialVersion {
		return hash, nil
	}

	if err := s.tree.DeleteVersionIfExists(versionToDelete); err != nil {
		log.Printf("DeleteVersion %d error: %s\n", versionToDelete, err)
	}

	return hash, nil
}

// Rollback discards every uncommitted mutation by rebuilding the state
// concerns over the last saved tree version. Pending events are dropped
// with them.
func (s *State) Rollback() {
	s.lock.Lock()
	defer s.lock.Unlock()

	fresh := newStateForTree(s.tree.GetLastImmutable(), s.events, s.db, s.keepLastStates)

	s.App = fresh.App
	s.Accounts = fresh.Accounts
	s.Assets = fresh.Assets
	s.Witnesses = fresh.Witnesses
	s.Committee = fresh.Committee
	s.Workers = fresh.Workers
	s.FeeBuckets = fresh.FeeBuckets
	s.Orders = fresh.Orders
	s.Checker = fresh.Checker
	s.bus = fresh.bus

	if s.events != nil {
		s.events.ResetPending()
	}
}

// Import loads a full exported state into an empty tree.
func (s *State) Import(state types.AppState) error {
	if err := state.Verify(); err != nil {
		return err
	}

	s.App.Import(&state)
	s.Assets.Import(&state)
	s.Accounts.Import(&state)
	s.Witnesses.Import(&state)
	s.Committee.Import(&state)
	s.Workers.Import(&state)
	s.FeeBuckets.Import(&state)
	s.Orders.Import(&state)

	s.Checker.Reset()

	return nil
}

func (s *State) Export() types.AppState {
	state, err := NewCheckStateAtHeight(uint64(s.tree.Version()), s.db)
	if err != nil {
		log.Panicf("Create new state at height %d failed: %s", s.tree.Version(), err)
	}

	return state.Export()
}

func newStateForTree(immutableTree *iavl.ImmutableTree, events eventsdb.IEventsDB, stateDB db.DB, keepLastStates int64) *State {
	stateBus := bus.NewBus()
	stateBus.SetEvents(events)

	stateChecker := checker.NewChecker(stateBus)

	appState := app.NewApp(stateBus, immutableTree)
	accountsState := accounts.NewAccounts(stateBus, immutableTree)
	assetsState := assets.NewAssets(stateBus, immutableTree)
	witnessesState := witnesses.NewWitnesses(stateBus, immutableTree)
	committeeState := committee.NewCommittee(stateBus, immutableTree)
	workersState := workers.NewWorkers(stateBus, immutableTree)
	feeBucketsState := fba.NewFeeBuckets(stateBus, immutableTree)
	ordersState := orders.NewOrders(stateBus, immutableTree)

	return &State{
		App:        appState,
		Accounts:   accountsState,
		Assets:     assetsState,
		Witnesses:  witnessesState,
		Committee:  committeeState,
		Workers:    workersState,
		FeeBuckets: feeBucketsState,
		Orders:     ordersState,
		Checker:    stateChecker,

		bus:            stateBus,
		db:             stateDB,
		events:         events,
		keepLastStates: keepLastStates,
		height:         immutableTree.Version(),
	}
}
