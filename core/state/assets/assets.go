package assets

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

const mainPrefix = byte('A')
const dynamicPrefix = byte('D')

// RAssets interface represents Assets state
type RAssets interface {
	Export(state *types.AppState)
	GetAsset(id types.AssetID) *Model
	CurrentSupply() *big.Int
	AccumulatedFees() *big.Int
	FeeBurnt() *big.Int
	Reserved() *big.Int
}

// Assets struct is a store of asset records plus the core-asset dynamic
// data the economics engine works against.
type Assets struct {
	list  map[types.AssetID]*Model
	dirty map[types.AssetID]struct{}

	dynamic      *dynamicData
	dynamicDirty bool

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewAssets(stateBus *bus.Bus, db *iavl.ImmutableTree) *Assets {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	assets := &Assets{
		db:    immutableTree,
		bus:   stateBus,
		list:  map[types.AssetID]*Model{},
		dirty: map[types.AssetID]struct{}{},
	}
	assets.bus.SetAssets(NewBus(assets))

	return assets
}

func (a *Assets) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *Assets) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *Assets) Commit(db *iavl.MutableTree, version int64) error {
	for _, id := range a.getOrderedDirty() {
		asset := a.get(id)

		a.lock.Lock()
		delete(a.dirty, id)
		a.lock.Unlock()

		data, err := rlp.EncodeToBytes(asset)
		if err != nil {
			return fmt.Errorf("can't encode asset %d: %v", id, err)
		}

		db.Set(getPath(id), data)
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	if a.dynamicDirty {
		a.dynamicDirty = false

		data, err := rlp.EncodeToBytes(a.dynamic)
		if err != nil {
			return fmt.Errorf("can't encode core dynamic data: %v", err)
		}

		db.Set([]byte{dynamicPrefix}, data)
	}

	return nil
}

// CreateAsset adds a new asset record.
func (a *Assets) CreateAsset(id types.AssetID, symbol string, issuer, buybackAccount types.AccountID) *Model {
	asset := &Model{
		Symbol:         symbol,
		Issuer:         uint64(issuer),
		BuybackAccount: uint64(buybackAccount),
		id:             id,
		markDirty:      a.markDirty,
	}
	a.setToMap(id, asset)
	a.markDirty(id)

	return asset
}

func (a *Assets) GetAsset(id types.AssetID) *Model {
	return a.get(id)
}

// CurrentSupply returns the circulating supply of the core asset.
func (a *Assets) CurrentSupply() *big.Int {
	return big.NewInt(0).Set(a.getDynamic().CurrentSupply)
}

// Reserved returns the part of the core-asset hard cap that has never been
// issued; the budget is released out of it.
func (a *Assets) Reserved() *big.Int {
	return big.NewInt(0).Sub(types.MaxCoreSupply(), a.getDynamic().CurrentSupply)
}

// ApplySupplyDelta shifts the circulating supply. The delta may be
// negative (refunds, burns).
func (a *Assets) ApplySupplyDelta(delta *big.Int) {
	if delta.Sign() == 0 {
		return
	}

	dynamic := a.getDynamic()

	a.lock.Lock()
	dynamic.CurrentSupply = big.NewInt(0).Add(dynamic.CurrentSupply, delta)
	a.dynamicDirty = true
	a.lock.Unlock()

	a.bus.Checker().AddAssetVolume(types.GetCoreAssetID(), delta)
}

func (a *Assets) AccumulatedFees() *big.Int {
	return big.NewInt(0).Set(a.getDynamic().AccumulatedFees)
}

// AddAccumulatedFees credits the core fee pool that the next budget folds
// into the reserve.
func (a *Assets) AddAccumulatedFees(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}

	dynamic := a.getDynamic()

	a.lock.Lock()
	dynamic.AccumulatedFees = big.NewInt(0).Add(dynamic.AccumulatedFees, amount)
	a.dynamicDirty = true
	a.lock.Unlock()

	a.bus.Checker().AddAsset(types.GetCoreAssetID(), amount)
}

// ZeroAccumulatedFees empties the fee pool and returns the amount it held.
func (a *Assets) ZeroAccumulatedFees() *big.Int {
	dynamic := a.getDynamic()

	a.lock.Lock()
	fees := dynamic.AccumulatedFees
	dynamic.AccumulatedFees = big.NewInt(0)
	a.dynamicDirty = true
	a.lock.Unlock()

	if fees.Sign() != 0 {
		a.bus.Checker().AddAsset(types.GetCoreAssetID(), new(big.Int).Neg(fees))
	}

	return big.NewInt(0).Set(fees)
}

func (a *Assets) FeeBurnt() *big.Int {
	return big.NewInt(0).Set(a.getDynamic().FeeBurnt)
}

// AddFeeBurnt bumps the burnt-fee counter. The matching supply reduction
// goes through ApplySupplyDelta at the call site.
func (a *Assets) AddFeeBurnt(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}

	dynamic := a.getDynamic()

	a.lock.Lock()
	dynamic.FeeBurnt = big.NewInt(0).Add(dynamic.FeeBurnt, amount)
	a.dynamicDirty = true
	a.lock.Unlock()
}

// SetInitialSupply sets the circulating supply without touching the
// checker; used for genesis import only.
func (a *Assets) SetInitialSupply(supply, accumulatedFees, feeBurnt *big.Int) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.dynamic = &dynamicData{
		CurrentSupply:   big.NewInt(0).Set(supply),
		AccumulatedFees: big.NewInt(0).Set(accumulatedFees),
		FeeBurnt:        big.NewInt(0).Set(feeBurnt),
	}
	a.dynamicDirty = true
}

func (a *Assets) getDynamic() *dynamicData {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.dynamic != nil {
		return a.dynamic
	}

	_, enc := a.immutableTree().Get([]byte{dynamicPrefix})
	if len(enc) == 0 {
		a.dynamic = &dynamicData{
			CurrentSupply:   big.NewInt(0),
			AccumulatedFees: big.NewInt(0),
			FeeBurnt:        big.NewInt(0),
		}
		return a.dynamic
	}

	dynamic := &dynamicData{}
	if err := rlp.DecodeBytes(enc, dynamic); err != nil {
		panic(fmt.Sprintf("failed to decode core dynamic data: %s", err))
	}

	a.dynamic = dynamic

	return a.dynamic
}

func (a *Assets) get(id types.AssetID) *Model {
	if asset := a.getFromMap(id); asset != nil {
		return asset
	}

	_, enc := a.immutableTree().Get(getPath(id))
	if len(enc) == 0 {
		return nil
	}

	asset := &Model{}
	if err := rlp.DecodeBytes(enc, asset); err != nil {
		panic(fmt.Sprintf("failed to decode asset %d: %s", id, err))
	}

	asset.id = id
	asset.markDirty = a.markDirty

	a.setToMap(id, asset)

	return asset
}

func (a *Assets) markDirty(id types.AssetID) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.dirty[id] = struct{}{}
}

func (a *Assets) getOrderedDirty() []types.AssetID {
	a.lock.RLock()
	keys := make([]types.AssetID, 0, len(a.dirty))
	for k := range a.dirty {
		keys = append(keys, k)
	}
	a.lock.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (a *Assets) Export(state *types.AppState) {
	a.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) < 5 {
			return false
		}

		id := types.AssetID(binary.BigEndian.Uint32(key[1:]))
		asset := a.get(id)
		if asset == nil {
			return false
		}

		state.Assets = append(state.Assets, types.Asset{
			ID:             uint32(id),
			Symbol:         asset.GetSymbol(),
			Issuer:         uint64(asset.GetIssuer()),
			BuybackAccount: uint64(asset.GetBuybackAccount()),
		})

		return false
	})

	dynamic := a.getDynamic()
	state.CurrentSupply = dynamic.CurrentSupply.String()
	state.AccumulatedFees = dynamic.AccumulatedFees.String()
	state.FeeBurnt = dynamic.FeeBurnt.String()
}

// Import loads assets from exported state.
func (a *Assets) Import(state *types.AppState) {
	for _, asset := range state.Assets {
		a.CreateAsset(types.AssetID(asset.ID), asset.Symbol, types.AccountID(asset.Issuer), types.AccountID(asset.BuybackAccount))
	}

	feeBurnt := big.NewInt(0)
	if state.FeeBurnt != "" {
		feeBurnt = helpers.StringToBigInt(state.FeeBurnt)
	}

	accumulatedFees := big.NewInt(0)
	if state.AccumulatedFees != "" {
		accumulatedFees = helpers.StringToBigInt(state.AccumulatedFees)
	}

	a.SetInitialSupply(helpers.StringToBigInt(state.CurrentSupply), accumulatedFees, feeBurnt)
}

func (a *Assets) getFromMap(id types.AssetID) *Model {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.list[id]
}

func (a *Assets) setToMap(id types.AssetID, model *Model) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.list[id] = model
}

func getPath(id types.AssetID) []byte {
	path := make([]byte, 5)
	path[0] = mainPrefix
	binary.BigEndian.PutUint32(path[1:], uint32(id))

	return path
}
