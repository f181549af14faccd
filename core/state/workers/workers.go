package workers

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

const mainPrefix = byte('k')

// RWorkers interface represents Workers state
type RWorkers interface {
	Export(state *types.AppState)
	GetWorker(id types.WorkerID) *Model
	GetWorkers() []*Model
}

// Workers struct is a store of worker proposal records.
type Workers struct {
	list  map[types.WorkerID]*Model
	dirty map[types.WorkerID]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

// Model is a worker proposal: a request to be paid DailyPay from the
// worker budget while the proposal is within its work period and has
// positive approving stake.
type Model struct {
	Account     uint64
	VoteFor     uint32
	VoteAgainst uint32
	DailyPay    *big.Int
	WorkBegin   uint64
	WorkEnd     uint64
	Kind        byte

	id        types.WorkerID
	markDirty func(types.WorkerID)
	lock      sync.RWMutex
}

func (model *Model) ID() types.WorkerID {
	return model.id
}

func (model *Model) GetAccount() types.AccountID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AccountID(model.Account)
}

func (model *Model) GetVoteFor() types.VoteID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.VoteID(model.VoteFor)
}

func (model *Model) GetVoteAgainst() types.VoteID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.VoteID(model.VoteAgainst)
}

func (model *Model) GetDailyPay() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.DailyPay == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.DailyPay)
}

func (model *Model) GetKind() types.WorkerKind {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.WorkerKind(model.Kind)
}

// IsActive reports whether now falls within the work period. The begin
// bound is inclusive, the end bound exclusive.
func (model *Model) IsActive(now uint64) bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.WorkBegin <= now && now < model.WorkEnd
}

func NewWorkers(stateBus *bus.Bus, db *iavl.ImmutableTree) *Workers {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Workers{
		db:    immutableTree,
		bus:   stateBus,
		list:  map[types.WorkerID]*Model{},
		dirty: map[types.WorkerID]struct{}{},
	}
}

func (w *Workers) immutableTree() *iavl.ImmutableTree {
	db := w.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (w *Workers) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	w.db.Store(immutableTree)
}

func (w *Workers) Commit(db *iavl.MutableTree, version int64) error {
	for _, id := range w.getOrderedDirty() {
		worker := w.get(id)

		w.lock.Lock()
		delete(w.dirty, id)
		w.lock.Unlock()

		data, err := rlp.EncodeToBytes(worker)
		if err != nil {
			return fmt.Errorf("can't encode worker %d: %v", id, err)
		}

		db.Set(getPath(id), data)
	}

	return nil
}

// Create adds a new worker proposal.
func (w *Workers) Create(id types.WorkerID, account types.AccountID, voteFor, voteAgainst types.VoteID, dailyPay *big.Int, workBegin, workEnd uint64, kind types.WorkerKind) *Model {
	worker := &Model{
		Account:     uint64(account),
		VoteFor:     uint32(voteFor),
		VoteAgainst: uint32(voteAgainst),
		DailyPay:    big.NewInt(0).Set(dailyPay),
		WorkBegin:   workBegin,
		WorkEnd:     workEnd,
		Kind:        byte(kind),
		id:          id,
		markDirty:   w.markDirty,
	}
	w.setToMap(id, worker)
	w.markDirty(id)

	return worker
}

func (w *Workers) GetWorker(id types.WorkerID) *Model {
	return w.get(id)
}

// GetWorkers returns every worker proposal in ascending id order.
func (w *Workers) GetWorkers() []*Model {
	ids := map[types.WorkerID]struct{}{}

	w.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) < 5 {
			return false
		}

		ids[types.WorkerID(binary.BigEndian.Uint32(key[1:]))] = struct{}{}
		return false
	})

	w.lock.RLock()
	for id := range w.list {
		ids[id] = struct{}{}
	}
	w.lock.RUnlock()

	ordered := make([]types.WorkerID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	workers := make([]*Model, 0, len(ordered))
	for _, id := range ordered {
		if worker := w.get(id); worker != nil {
			workers = append(workers, worker)
		}
	}

	return workers
}

func (w *Workers) get(id types.WorkerID) *Model {
	if worker := w.getFromMap(id); worker != nil {
		return worker
	}

	_, enc := w.immutableTree().Get(getPath(id))
	if len(enc) == 0 {
		return nil
	}

	worker := &Model{}
	if err := rlp.DecodeBytes(enc, worker); err != nil {
		panic(fmt.Sprintf("failed to decode worker %d: %s", id, err))
	}

	worker.id = id
	worker.markDirty = w.markDirty

	w.setToMap(id, worker)

	return worker
}

func (w *Workers) markDirty(id types.WorkerID) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.dirty[id] = struct{}{}
}

func (w *Workers) getOrderedDirty() []types.WorkerID {
	w.lock.RLock()
	keys := make([]types.WorkerID, 0, len(w.dirty))
	for k := range w.dirty {
		keys = append(keys, k)
	}
	w.lock.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (w *Workers) Export(state *types.AppState) {
	for _, worker := range w.GetWorkers() {
		state.Workers = append(state.Workers, types.Worker{
			ID:          uint32(worker.ID()),
			Account:     worker.Account,
			VoteFor:     worker.VoteFor,
			VoteAgainst: worker.VoteAgainst,
			DailyPay:    worker.GetDailyPay().String(),
			WorkBegin:   worker.WorkBegin,
			WorkEnd:     worker.WorkEnd,
			Kind:        worker.Kind,
		})
	}
}

// Import loads worker proposals from exported state.
func (w *Workers) Import(state *types.AppState) {
	for _, worker := range state.Workers {
		w.Create(
			types.WorkerID(worker.ID),
			types.AccountID(worker.Account),
			types.VoteID(worker.VoteFor),
			types.VoteID(worker.VoteAgainst),
			helpers.StringToBigInt(worker.DailyPay),
			worker.WorkBegin,
			worker.WorkEnd,
			types.WorkerKind(worker.Kind),
		)
	}
}

func (w *Workers) getFromMap(id types.WorkerID) *Model {
	w.lock.RLock()
	defer w.lock.RUnlock()

	return w.list[id]
}

func (w *Workers) setToMap(id types.WorkerID, model *Model) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.list[id] = model
}

func getPath(id types.WorkerID) []byte {
	path := make([]byte, 5)
	path[0] = mainPrefix
	binary.BigEndian.PutUint32(path[1:], uint32(id))

	return path
}
