package committee

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

const mainPrefix = byte('m')

// RCommittee interface represents Committee state
type RCommittee interface {
	Export(state *types.AppState)
	GetMember(id types.CommitteeID) *Model
	GetMembers() []*Model
}

// Committee struct is a store of committee-member candidate records.
type Committee struct {
	list  map[types.CommitteeID]*Model
	dirty map[types.CommitteeID]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

// Model is a committee-member candidate record.
type Model struct {
	Account    uint64
	VoteID     uint32
	TotalVotes *big.Int

	id        types.CommitteeID
	markDirty func(types.CommitteeID)
	lock      sync.RWMutex
}

func (model *Model) ID() types.CommitteeID {
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

func NewCommittee(stateBus *bus.Bus, db *iavl.ImmutableTree) *Committee {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Committee{
		db:    immutableTree,
		bus:   stateBus,
		list:  map[types.CommitteeID]*Model{},
		dirty: map[types.CommitteeID]struct{}{},
	}
}

func (c *Committee) immutableTree() *iavl.ImmutableTree {
	db := c.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (c *Committee) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	c.db.Store(immutableTree)
}

func (c *Committee) Commit(db *iavl.MutableTree, version int64) error {
	for _, id := range c.getOrderedDirty() {
		member := c.get(id)

		c.lock.Lock()
		delete(c.dirty, id)
		c.lock.Unlock()

		data, err := rlp.EncodeToBytes(member)
		if err != nil {
			return fmt.Errorf("can't encode committee member %d: %v", id, err)
		}

		db.Set(getPath(id), data)
	}

	return nil
}

// Create adds a new committee-member candidate.
func (c *Committee) Create(id types.CommitteeID, account types.AccountID, voteID types.VoteID) *Model {
	member := &Model{
		Account:    uint64(account),
		VoteID:     uint32(voteID),
		TotalVotes: big.NewInt(0),
		id:         id,
		markDirty:  c.markDirty,
	}
	c.setToMap(id, member)
	c.markDirty(id)

	return member
}

func (c *Committee) GetMember(id types.CommitteeID) *Model {
	return c.get(id)
}

// GetMembers returns every committee-member candidate in ascending id
// order.
func (c *Committee) GetMembers() []*Model {
	ids := map[types.CommitteeID]struct{}{}

	c.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) < 5 {
			return false
		}

		ids[types.CommitteeID(binary.BigEndian.Uint32(key[1:]))] = struct{}{}
		return false
	})

	c.lock.RLock()
	for id := range c.list {
		ids[id] = struct{}{}
	}
	c.lock.RUnlock()

	ordered := make([]types.CommitteeID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	members := make([]*Model, 0, len(ordered))
	for _, id := range ordered {
		if member := c.get(id); member != nil {
			members = append(members, member)
		}
	}

	return members
}

// SetTotalVotes overwrites the persisted tally of the member.
func (c *Committee) SetTotalVotes(id types.CommitteeID, votes *big.Int) {
	member := c.get(id)
	if member == nil {
		return
	}

	member.lock.Lock()
	member.TotalVotes = big.NewInt(0).Set(votes)
	member.lock.Unlock()

	member.markDirty(id)
}

func (c *Committee) get(id types.CommitteeID) *Model {
	if member := c.getFromMap(id); member != nil {
		return member
	}

	_, enc := c.immutableTree().Get(getPath(id))
	if len(enc) == 0 {
		return nil
	}

	member := &Model{}
	if err := rlp.DecodeBytes(enc, member); err != nil {
		panic(fmt.Sprintf("failed to decode committee member %d: %s", id, err))
	}

	member.id = id
	member.markDirty = c.markDirty

	c.setToMap(id, member)

	return member
}

func (c *Committee) markDirty(id types.CommitteeID) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.dirty[id] = struct{}{}
}

func (c *Committee) getOrderedDirty() []types.CommitteeID {
	c.lock.RLock()
	keys := make([]types.CommitteeID, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	c.lock.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (c *Committee) Export(state *types.AppState) {
	for _, member := range c.GetMembers() {
		state.Committee = append(state.Committee, types.Committee{
			ID:         uint32(member.ID()),
			Account:    uint64(member.GetAccount()),
			VoteID:     uint32(member.GetVoteID()),
			TotalVotes: member.GetTotalVotes().String(),
		})
	}
}

// Import loads committee members from exported state.
func (c *Committee) Import(state *types.AppState) {
	for _, member := range state.Committee {
		model := c.Create(types.CommitteeID(member.ID), types.AccountID(member.Account), types.VoteID(member.VoteID))
		model.TotalVotes = helpers.StringToBigInt(member.TotalVotes)
	}
}

func (c *Committee) getFromMap(id types.CommitteeID) *Model {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.list[id]
}

func (c *Committee) setToMap(id types.CommitteeID, model *Model) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.list[id] = model
}

func getPath(id types.CommitteeID) []byte {
	path := make([]byte, 5)
	path[0] = mainPrefix
	binary.BigEndian.PutUint32(path[1:], uint32(id))

	return path
}
