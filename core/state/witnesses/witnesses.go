package witnesses

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

const mainPrefix = byte('w')

// RWitnesses interface represents Witnesses state
type RWitnesses interface {
	Export(state *types.AppState)
	GetWitness(id types.WitnessID) *Model
	GetWitnesses() []*Model
}

// Witnesses struct is a store of witness candidate records. Every witness
// owns a vote id; the election overwrites TotalVotes each interval.
type Witnesses struct {
	list  map[types.WitnessID]*Model
	dirty map[types.WitnessID]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

// Model is a witness candidate record.
type Model struct {
	Account    uint64
	VoteID     uint32
	TotalVotes *big.Int
	DailyPay   *big.Int

	id        types.WitnessID
	markDirty func(types.WitnessID)
	lock      sync.RWMutex
}

func (model *Model) ID() types.WitnessID {
	return model.id
}

func (model *Model) GetAccount() types.AccountID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AccountID(model.Account)
}

func (model *Model) GetVoteID() types.VoteID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.VoteID(model.VoteID)
}

func (model *Model) GetTotalVotes() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.TotalVotes == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.TotalVotes)
}

func (model *Model) GetDailyPay() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.DailyPay == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.DailyPay)
}

func NewWitnesses(stateBus *bus.Bus, db *iavl.ImmutableTree) *Witnesses {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Witnesses{
		db:    immutableTree,
		bus:   stateBus,
		list:  map[types.WitnessID]*Model{},
		dirty: map[types.WitnessID]struct{}{},
	}
}

func (w *Witnesses) immutableTree() *iavl.ImmutableTree {
	db := w.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (w *Witnesses) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	w.db.Store(immutableTree)
}

func (w *Witnesses) Commit(db *iavl.MutableTree, version int64) error {
	for _, id := range w.getOrderedDirty() {
		witness := w.get(id)

		w.lock.Lock()
		delete(w.dirty, id)
		w.lock.Unlock()

		data, err := rlp.EncodeToBytes(witness)
		if err != nil {
			return fmt.Errorf("can't encode witness %d: %v", id, err)
		}

		db.Set(getPath(id), data)
	}

	return nil
}

// Create adds a new witness candidate with given account, vote id and pay.
func (w *Witnesses) Create(id types.WitnessID, account types.AccountID, voteID types.VoteID, dailyPay *big.Int) *Model {
	witness := &Model{
		Account:    uint64(account),
		VoteID:     uint32(voteID),
		TotalVotes: big.NewInt(0),
		DailyPay:   big.NewInt(0).Set(dailyPay),
		id:         id,
		markDirty:  w.markDirty,
	}
	w.setToMap(id, witness)
	w.markDirty(id)

	return witness
}

func (w *Witnesses) GetWitness(id types.WitnessID) *Model {
	return w.get(id)
}

// GetWitnesses returns every witness candidate in ascending id order.
func (w *Witnesses) GetWitnesses() []*Model {
	ids := map[types.WitnessID]struct{}{}

	w.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) < 5 {
			return false
		}

		ids[types.WitnessID(binary.BigEndian.Uint32(key[1:]))] = struct{}{}
		return false
	})

	w.lock.RLock()
	for id := range w.list {
		ids[id] = struct{}{}
	}
	w.lock.RUnlock()

	ordered := make([]types.WitnessID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	witnesses := make([]*Model, 0, len(ordered))
	for _, id := range ordered {
		if witness := w.get(id); witness != nil {
			witnesses = append(witnesses, witness)
		}
	}

	return witnesses
}

// SetTotalVotes overwrites the persisted tally of the witness.
func (w *Witnesses) SetTotalVotes(id types.WitnessID, votes *big.Int) {
	witness := w.get(id)
	if witness == nil {
		return
	}

	witness.lock.Lock()
	witness.TotalVotes = big.NewInt(0).Set(votes)
	witness.lock.Unlock()

	witness.markDirty(id)
}

func (w *Witnesses) get(id types.WitnessID) *Model {
	if witness := w.getFromMap(id); witness != nil {
		return witness
	}

	_, enc := w.immutableTree().Get(getPath(id))
	if len(enc) == 0 {
		return nil
	}

	witness := &Model{}
	if err := rlp.DecodeBytes(enc, witness); err != nil {
		panic(fmt.Sprintf("failed to decode witness %d: %s", id, err))
	}

	witness.id = id
	witness.markDirty = w.markDirty

	w.setToMap(id, witness)

	return witness
}

func (w *Witnesses) markDirty(id types.WitnessID) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.dirty[id] = struct{}{}
}

func (w *Witnesses) getOrderedDirty() []types.WitnessID {
	w.lock.RLock()
	keys := make([]types.WitnessID, 0, len(w.dirty))
	for k := range w.dirty {
		keys = append(keys, k)
	}
	w.lock.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (w *Witnesses) Export(state *types.AppState) {
	for _, witness := range w.GetWitnesses() {
		state.Witnesses = append(state.Witnesses, types.Witness{
			ID:         uint32(witness.ID()),
			Account:    uint64(witness.GetAccount()),
			VoteID:     uint32(witness.GetVoteID()),
			TotalVotes: witness.GetTotalVotes().String(),
			DailyPay:   witness.GetDailyPay().String(),
		})
	}
}

// Import loads witnesses from exported state.
func (w *Witnesses) Import(state *types.AppState) {
	for _, witness := range state.Witnesses {
		model := w.Create(types.WitnessID(witness.ID), types.AccountID(witness.Account), types.VoteID(witness.VoteID), helpers.StringToBigInt(witness.DailyPay))
		model.TotalVotes = helpers.StringToBigInt(witness.TotalVotes)
	}
}

func (w *Witnesses) getFromMap(id types.WitnessID) *Model {
	w.lock.RLock()
	defer w.lock.RUnlock()

	return w.list[id]
}

func (w *Witnesses) setToMap(id types.WitnessID, model *Model) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.list[id] = model
}

func getPath(id types.WitnessID) []byte {
	path := make([]byte, 5)
	path[0] = mainPrefix
	binary.BigEndian.PutUint32(path[1:], uint32(id))

	return path
}
