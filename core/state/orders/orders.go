package orders

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/state/bus"
	"github.com/meridian-chain/meridian-go-node/core/types"
	"github.com/meridian-chain/meridian-go-node/helpers"
)

const (
	mainPrefix = byte('o')
	idPrefix   = byte('O')
)

// ROrders interface represents Orders state
type ROrders interface {
	Export(state *types.AppState)
	GetOrder(id types.OrderID) *Model
	GetOrders() []*Model
}

// Orders struct is the limit order book. Funds behind a resting order are
// held by the book itself: the seller's balance is debited on placement
// and the book reports the held amount to the checker.
type Orders struct {
	list    map[types.OrderID]*Model
	dirty   map[types.OrderID]struct{}
	deleted map[types.OrderID]struct{}

	nextID       uint64
	loadedNextID bool
	dirtyNextID  bool

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

// Model is a resting limit order. ForSale and MinToReceive are the
// remaining amounts; their ratio is the price the order fills at.
type Model struct {
	Seller       uint64
	SellAsset    uint32
	ForSale      *big.Int
	ReceiveAsset uint32
	MinToReceive *big.Int

	id        types.OrderID
	markDirty func(types.OrderID)
	lock      sync.RWMutex
}

func (model *Model) ID() types.OrderID {
	return model.id
}

func (model *Model) GetSeller() types.AccountID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AccountID(model.Seller)
}

func (model *Model) GetSellAsset() types.AssetID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AssetID(model.SellAsset)
}

func (model *Model) GetReceiveAsset() types.AssetID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AssetID(model.ReceiveAsset)
}

func (model *Model) GetForSale() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return big.NewInt(0).Set(model.ForSale)
}

func (model *Model) GetMinToReceive() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return big.NewInt(0).Set(model.MinToReceive)
}

func NewOrders(stateBus *bus.Bus, db *iavl.ImmutableTree) *Orders {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Orders{
		db:      immutableTree,
		bus:     stateBus,
		list:    map[types.OrderID]*Model{},
		dirty:   map[types.OrderID]struct{}{},
		deleted: map[types.OrderID]struct{}{},
	}
}

func (o *Orders) immutableTree() *iavl.ImmutableTree {
	db := o.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (o *Orders) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	o.db.Store(immutableTree)
}

func (o *Orders) Commit(db *iavl.MutableTree, version int64) error {
	for _, id := range o.getOrderedDirty() {
		o.lock.Lock()
		_, removed := o.deleted[id]
		delete(o.dirty, id)
		delete(o.deleted, id)
		o.lock.Unlock()

		if removed {
			db.Remove(getPath(id))
			continue
		}

		order := o.get(id)
		if order == nil {
			continue
		}

		data, err := rlp.EncodeToBytes(order)
		if err != nil {
			return fmt.Errorf("can't encode order %d: %v", id, err)
		}

		db.Set(getPath(id), data)
	}

	o.lock.Lock()
	if o.dirtyNextID {
		o.dirtyNextID = false
		next := make([]byte, 8)
		binary.BigEndian.PutUint64(next, o.nextID)
		db.Set([]byte{idPrefix}, next)
	}
	o.lock.Unlock()

	return nil
}

// Create debits the seller, places a sell order and matches it against
// the book at maker prices. It returns the id of the order and the
// amount left unfilled; a fully filled order is not rested.
func (o *Orders) Create(seller types.AccountID, sellAsset types.AssetID, forSale *big.Int, receiveAsset types.AssetID, minToReceive *big.Int) (types.OrderID, *big.Int, error) {
	if sellAsset == receiveAsset {
		return 0, nil, errors.New("order sells and receives the same asset")
	}
	if forSale == nil || forSale.Sign() != 1 {
		return 0, nil, errors.New("order amount for sale should be positive")
	}
	if minToReceive == nil || minToReceive.Sign() != 1 {
		return 0, nil, errors.New("order amount to receive should be positive")
	}

	if err := o.bus.Accounts().SubBalance(seller, sellAsset, forSale); err != nil {
		return 0, nil, err
	}
	if sellAsset == types.GetCoreAssetID() {
		o.bus.Accounts().AddOrdersLocked(seller, forSale)
	}
	o.bus.Checker().AddAsset(sellAsset, forSale, "orders")

	id := o.allocateID()

	o.addEvent(&events.OrderCreatedEvent{
		ID:           uint64(id),
		Seller:       uint64(seller),
		SellAsset:    uint32(sellAsset),
		ForSale:      forSale.String(),
		ReceiveAsset: uint32(receiveAsset),
		MinToReceive: minToReceive.String(),
	})

	remaining := big.NewInt(0).Set(forSale)
	wanted := big.NewInt(0).Set(minToReceive)

	for _, maker := range o.ordersForPair(receiveAsset, sellAsset) {
		if remaining.Sign() != 1 {
			break
		}
		if !crosses(maker, remaining, wanted) {
			break
		}

		bought, paid := o.fill(maker, seller, remaining)
		if bought.Sign() != 1 {
			break
		}

		remaining.Sub(remaining, paid)
		wanted.Sub(wanted, bought)
		if wanted.Sign() != 1 {
			wanted = big.NewInt(1)
		}
	}

	if remaining.Sign() == 1 {
		order := &Model{
			Seller:       uint64(seller),
			SellAsset:    uint32(sellAsset),
			ForSale:      remaining,
			ReceiveAsset: uint32(receiveAsset),
			MinToReceive: wanted,
			id:           id,
			markDirty:    o.markDirty,
		}
		o.setToMap(id, order)
		o.markDirty(id)
	}

	return id, big.NewInt(0).Set(remaining), nil
}

// Cancel removes a resting order and refunds the unfilled remainder to
// its seller.
func (o *Orders) Cancel(id types.OrderID) error {
	order := o.get(id)
	if order == nil {
		return errors.Errorf("order %d not found", id)
	}

	refund := order.GetForSale()
	seller := order.GetSeller()
	sellAsset := order.GetSellAsset()

	o.remove(id)

	o.bus.Accounts().AddBalance(seller, sellAsset, refund)
	if sellAsset == types.GetCoreAssetID() {
		o.bus.Accounts().AddOrdersLocked(seller, big.NewInt(0).Neg(refund))
	}
	o.bus.Checker().AddAsset(sellAsset, big.NewInt(0).Neg(refund), "orders")

	o.addEvent(&events.OrderCanceledEvent{
		ID:     uint64(id),
		Seller: uint64(seller),
		Refund: refund.String(),
	})

	return nil
}

func (o *Orders) GetOrder(id types.OrderID) *Model {
	return o.get(id)
}

// GetOrders returns every resting order in ascending id order.
func (o *Orders) GetOrders() []*Model {
	ids := map[types.OrderID]struct{}{}

	o.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) < 9 {
			return false
		}

		ids[types.OrderID(binary.BigEndian.Uint64(key[1:]))] = struct{}{}
		return false
	})

	o.lock.RLock()
	for id := range o.list {
		ids[id] = struct{}{}
	}
	for id := range o.deleted {
		delete(ids, id)
	}
	o.lock.RUnlock()

	ordered := make([]types.OrderID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	list := make([]*Model, 0, len(ordered))
	for _, id := range ordered {
		if order := o.get(id); order != nil {
			list = append(list, order)
		}
	}

	return list
}

// ordersForPair returns the book side selling sellAsset for receiveAsset,
// cheapest first, older order winning a tie.
func (o *Orders) ordersForPair(sellAsset, receiveAsset types.AssetID) []*Model {
	var side []*Model
	for _, order := range o.GetOrders() {
		if order.GetSellAsset() == sellAsset && order.GetReceiveAsset() == receiveAsset {
			side = append(side, order)
		}
	}

	sort.SliceStable(side, func(i, j int) bool {
		a, b := side[i], side[j]
		left := big.NewInt(0).Mul(a.GetMinToReceive(), b.GetForSale())
		right := big.NewInt(0).Mul(b.GetMinToReceive(), a.GetForSale())
		if cmp := left.Cmp(right); cmp != 0 {
			return cmp == -1
		}
		return a.id < b.id
	})

	return side
}

// crosses reports whether the maker's unit price is within the taker's
// limit: maker.MinToReceive/maker.ForSale <= takerForSale/takerWanted.
func crosses(maker *Model, takerForSale, takerWanted *big.Int) bool {
	left := big.NewInt(0).Mul(maker.GetMinToReceive(), takerWanted)
	right := big.NewInt(0).Mul(maker.GetForSale(), takerForSale)
	return left.Cmp(right) != 1
}

// fill executes one trade against a resting maker at the maker's price.
// It returns the amount the taker bought and the amount the taker paid.
func (o *Orders) fill(maker *Model, taker types.AccountID, takerFunds *big.Int) (bought, paid *big.Int) {
	makerForSale := maker.GetForSale()
	makerWants := maker.GetMinToReceive()

	// Largest maker amount the taker can afford at the maker's price.
	bought = big.NewInt(0).Div(big.NewInt(0).Mul(takerFunds, makerForSale), makerWants)
	if bought.Cmp(makerForSale) == 1 {
		bought = makerForSale
	}
	if bought.Sign() != 1 {
		return big.NewInt(0), big.NewInt(0)
	}

	paid = helpers.CeilDiv(big.NewInt(0).Mul(bought, makerWants), makerForSale)

	sellAsset := maker.GetSellAsset()
	receiveAsset := maker.GetReceiveAsset()
	seller := maker.GetSeller()

	o.bus.Accounts().AddBalance(seller, receiveAsset, paid)
	o.bus.Accounts().AddBalance(taker, sellAsset, bought)
	o.bus.Checker().AddAsset(receiveAsset, big.NewInt(0).Neg(paid), "orders")
	o.bus.Checker().AddAsset(sellAsset, big.NewInt(0).Neg(bought), "orders")

	if sellAsset == types.GetCoreAssetID() {
		o.bus.Accounts().AddOrdersLocked(seller, big.NewInt(0).Neg(bought))
	}
	if receiveAsset == types.GetCoreAssetID() {
		o.bus.Accounts().AddOrdersLocked(taker, big.NewInt(0).Neg(paid))
	}

	o.addEvent(&events.OrderFilledEvent{
		ID:       uint64(maker.ID()),
		Maker:    uint64(seller),
		Taker:    uint64(taker),
		Paid:     paid.String(),
		Received: bought.String(),
	})

	if bought.Cmp(makerForSale) == 0 {
		o.remove(maker.ID())
		return bought, paid
	}

	maker.lock.Lock()
	maker.ForSale = big.NewInt(0).Sub(makerForSale, bought)
	maker.MinToReceive = big.NewInt(0).Sub(makerWants, paid)
	if maker.MinToReceive.Sign() != 1 {
		maker.MinToReceive = big.NewInt(1)
	}
	maker.lock.Unlock()
	maker.markDirty(maker.ID())

	return bought, paid
}

func (o *Orders) addEvent(event events.Event) {
	if eventsDB := o.bus.Events(); eventsDB != nil {
		eventsDB.AddEvent(event)
	}
}

func (o *Orders) allocateID() types.OrderID {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.loadNextID()

	id := o.nextID
	o.nextID++
	o.dirtyNextID = true

	return types.OrderID(id)
}

// loadNextID lazily reads the id counter. Callers hold the lock.
func (o *Orders) loadNextID() {
	if o.loadedNextID {
		return
	}
	o.loadedNextID = true
	o.nextID = 1

	_, enc := o.immutableTree().Get([]byte{idPrefix})
	if len(enc) == 8 {
		o.nextID = binary.BigEndian.Uint64(enc)
	}
}

func (o *Orders) get(id types.OrderID) *Model {
	o.lock.RLock()
	if _, removed := o.deleted[id]; removed {
		o.lock.RUnlock()
		return nil
	}
	order := o.list[id]
	o.lock.RUnlock()

	if order != nil {
		return order
	}

	_, enc := o.immutableTree().Get(getPath(id))
	if len(enc) == 0 {
		return nil
	}

	order = &Model{}
	if err := rlp.DecodeBytes(enc, order); err != nil {
		panic(fmt.Sprintf("failed to decode order %d: %s", id, err))
	}

	order.id = id
	order.markDirty = o.markDirty

	o.setToMap(id, order)

	return order
}

func (o *Orders) remove(id types.OrderID) {
	o.lock.Lock()
	delete(o.list, id)
	o.deleted[id] = struct{}{}
	o.lock.Unlock()

	o.markDirty(id)
}

func (o *Orders) markDirty(id types.OrderID) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.dirty[id] = struct{}{}
}

func (o *Orders) getOrderedDirty() []types.OrderID {
	o.lock.RLock()
	keys := make([]types.OrderID, 0, len(o.dirty))
	for k := range o.dirty {
		keys = append(keys, k)
	}
	o.lock.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (o *Orders) Export(state *types.AppState) {
	for _, order := range o.GetOrders() {
		state.Orders = append(state.Orders, types.Order{
			ID:           uint64(order.ID()),
			Seller:       order.Seller,
			SellAsset:    order.SellAsset,
			ForSale:      order.GetForSale().String(),
			ReceiveAsset: order.ReceiveAsset,
			MinToReceive: order.GetMinToReceive().String(),
		})
	}
}

// Import loads resting orders from exported state. Balances were debited
// before export, so no funds move here.
func (o *Orders) Import(state *types.AppState) {
	o.lock.Lock()
	o.loadedNextID = true
	o.nextID = 1
	o.lock.Unlock()

	for _, order := range state.Orders {
		id := types.OrderID(order.ID)
		model := &Model{
			Seller:       order.Seller,
			SellAsset:    order.SellAsset,
			ForSale:      helpers.StringToBigInt(order.ForSale),
			ReceiveAsset: order.ReceiveAsset,
			MinToReceive: helpers.StringToBigInt(order.MinToReceive),
			id:           id,
			markDirty:    o.markDirty,
		}
		o.setToMap(id, model)
		o.markDirty(id)

		o.lock.Lock()
		if uint64(id) >= o.nextID {
			o.nextID = uint64(id) + 1
			o.dirtyNextID = true
		}
		o.lock.Unlock()
	}
}

func (o *Orders) setToMap(id types.OrderID, model *Model) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.list[id] = model
}

func getPath(id types.OrderID) []byte {
	path := make([]byte, 9)
	path[0] = mainPrefix
	binary.BigEndian.PutUint64(path[1:], uint64(id))

	return path
}
