package fba

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

const mainPrefix = byte('f')

// RFeeBuckets interface represents FeeBuckets state
type RFeeBuckets interface {
	Export(state *types.AppState)
	GetBucket(id types.FeeBucketID) *Model
	GetBuckets() []*Model
}

// FeeBuckets struct is a store of fee accumulation buckets. Each bucket
// collects core-asset fees on behalf of its designated asset until the
// next distribution.
type FeeBuckets struct {
	list  map[types.FeeBucketID]*Model
	dirty map[types.FeeBucketID]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

// Model is a fee bucket record.
type Model struct {
	Balance         *big.Int
	DesignatedAsset uint32
	Configured      bool
	BuybackPct      uint32
	IssuerPct       uint32

	id        types.FeeBucketID
	markDirty func(types.FeeBucketID)
	lock      sync.RWMutex
}

func (model *Model) ID() types.FeeBucketID {
	return model.id
}

func (model *Model) GetBalance() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.Balance == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.Balance)
}

func (model *Model) GetDesignatedAsset() types.AssetID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AssetID(model.DesignatedAsset)
}

func (model *Model) GetBuybackPct() uint32 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.BuybackPct
}

func (model *Model) GetIssuerPct() uint32 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.IssuerPct
}

// HasValidConfig reports whether the distribution shares are usable. A
// bucket without a valid config burns its whole balance on distribution.
func (model *Model) HasValidConfig() bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Configured && model.BuybackPct+model.IssuerPct <= types.Unit100Percent
}

func NewFeeBuckets(stateBus *bus.Bus, db *iavl.ImmutableTree) *FeeBuckets {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &FeeBuckets{
		db:    immutableTree,
		bus:   stateBus,
		list:  map[types.FeeBucketID]*Model{},
		dirty: map[types.FeeBucketID]struct{}{},
	}
}

func (f *FeeBuckets) immutableTree() *iavl.ImmutableTree {
	db := f.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (f *FeeBuckets) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	f.db.Store(immutableTree)
}

func (f *FeeBuckets) Commit(db *iavl.MutableTree, version int64) error {
	for _, id := range f.getOrderedDirty() {
		bucket := f.get(id)

		f.lock.Lock()
		delete(f.dirty, id)
		f.lock.Unlock()

		data, err := rlp.EncodeToBytes(bucket)
		if err != nil {
			return fmt.Errorf("can't encode fee bucket %d: %v", id, err)
		}

		db.Set(getPath(id), data)
	}

	return nil
}

// Create adds a new unconfigured bucket for the given asset.
func (f *FeeBuckets) Create(id types.FeeBucketID, designatedAsset types.AssetID) *Model {
	bucket := &Model{
		Balance:         big.NewInt(0),
		DesignatedAsset: uint32(designatedAsset),
		id:              id,
		markDirty:       f.markDirty,
	}
	f.setToMap(id, bucket)
	f.markDirty(id)

	return bucket
}

func (f *FeeBuckets) GetBucket(id types.FeeBucketID) *Model {
	return f.get(id)
}

// GetBuckets returns every bucket in ascending id order.
func (f *FeeBuckets) GetBuckets() []*Model {
	ids := map[types.FeeBucketID]struct{}{}

	f.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) < 5 {
			return false
		}

		ids[types.FeeBucketID(binary.BigEndian.Uint32(key[1:]))] = struct{}{}
		return false
	})

	f.lock.RLock()
	for id := range f.list {
		ids[id] = struct{}{}
	}
	f.lock.RUnlock()

	ordered := make([]types.FeeBucketID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	buckets := make([]*Model, 0, len(ordered))
	for _, id := range ordered {
		if bucket := f.get(id); bucket != nil {
			buckets = append(buckets, bucket)
		}
	}

	return buckets
}

// AddToBucket accumulates fees into the bucket.
func (f *FeeBuckets) AddToBucket(id types.FeeBucketID, amount *big.Int) {
	bucket := f.get(id)
	if bucket == nil {
		panic(fmt.Sprintf("fee bucket %d not found", id))
	}

	bucket.lock.Lock()
	bucket.Balance = big.NewInt(0).Add(bucket.Balance, amount)
	bucket.lock.Unlock()

	bucket.markDirty(id)

	f.bus.Checker().AddAsset(types.GetCoreAssetID(), amount, "fba")
}

// WithdrawAll zeroes the bucket balance and returns the previous value.
func (f *FeeBuckets) WithdrawAll(id types.FeeBucketID) *big.Int {
	bucket := f.get(id)
	if bucket == nil {
		return big.NewInt(0)
	}

	bucket.lock.Lock()
	old := bucket.Balance
	if old == nil {
		old = big.NewInt(0)
	}
	bucket.Balance = big.NewInt(0)
	bucket.lock.Unlock()

	bucket.markDirty(id)

	f.bus.Checker().AddAsset(types.GetCoreAssetID(), big.NewInt(0).Neg(old), "fba")

	return old
}

// SetConfig sets the distribution shares of the bucket. Shares are in
// basis points of Unit100Percent.
func (f *FeeBuckets) SetConfig(id types.FeeBucketID, buybackPct, issuerPct uint32) {
	bucket := f.get(id)
	if bucket == nil {
		panic(fmt.Sprintf("fee bucket %d not found", id))
	}

	bucket.lock.Lock()
	bucket.Configured = true
	bucket.BuybackPct = buybackPct
	bucket.IssuerPct = issuerPct
	bucket.lock.Unlock()

	bucket.markDirty(id)
}

func (f *FeeBuckets) get(id types.FeeBucketID) *Model {
	if bucket := f.getFromMap(id); bucket != nil {
		return bucket
	}

	_, enc := f.immutableTree().Get(getPath(id))
	if len(enc) == 0 {
		return nil
	}

	bucket := &Model{}
	if err := rlp.DecodeBytes(enc, bucket); err != nil {
		panic(fmt.Sprintf("failed to decode fee bucket %d: %s", id, err))
	}

	bucket.id = id
	bucket.markDirty = f.markDirty

	f.setToMap(id, bucket)

	return bucket
}

func (f *FeeBuckets) markDirty(id types.FeeBucketID) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.dirty[id] = struct{}{}
}

func (f *FeeBuckets) getOrderedDirty() []types.FeeBucketID {
	f.lock.RLock()
	keys := make([]types.FeeBucketID, 0, len(f.dirty))
	for k := range f.dirty {
		keys = append(keys, k)
	}
	f.lock.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (f *FeeBuckets) Export(state *types.AppState) {
	for _, bucket := range f.GetBuckets() {
		state.FeeBuckets = append(state.FeeBuckets, types.FeeBucket{
			ID:              uint32(bucket.ID()),
			Balance:         bucket.GetBalance().String(),
			DesignatedAsset: bucket.DesignatedAsset,
			Configured:      bucket.Configured,
			BuybackPct:      bucket.BuybackPct,
			IssuerPct:       bucket.IssuerPct,
		})
	}
}

// Import loads fee buckets from exported state.
func (f *FeeBuckets) Import(state *types.AppState) {
	for _, bucket := range state.FeeBuckets {
		model := f.Create(types.FeeBucketID(bucket.ID), types.AssetID(bucket.DesignatedAsset))
		model.Balance = helpers.StringToBigInt(bucket.Balance)
		model.Configured = bucket.Configured
		model.BuybackPct = bucket.BuybackPct
		model.IssuerPct = bucket.IssuerPct
	}
}

func (f *FeeBuckets) getFromMap(id types.FeeBucketID) *Model {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.list[id]
}

func (f *FeeBuckets) setToMap(id types.FeeBucketID, model *Model) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.list[id] = model
}

func getPath(id types.FeeBucketID) []byte {
	path := make([]byte, 5)
	path[0] = mainPrefix
	binary.BigEndian.PutUint32(path[1:], uint32(id))

	return path
}
