package accounts

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

	"github.com/meridian-chain/meridian-go-node/core/state/bus"
	"github.com/meridian-chain/meridian-go-node/core/types"
	"github.com/meridian-chain/meridian-go-node/helpers"
)

const mainPrefix = byte('a')

// RAccounts interface represents Accounts state
type RAccounts interface {
	Export(state *types.AppState)
	GetAccount(id types.AccountID) *Model
	GetBalance(id types.AccountID, asset types.AssetID) *big.Int
	VotingStake(id types.AccountID) *big.Int
	Iterate(fn func(account *Model) bool)
}

// Accounts struct is a store of Accounts state
type Accounts struct {
	list  map[types.AccountID]*Model
	dirty map[types.AccountID]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewAccounts(stateBus *bus.Bus, db *iavl.ImmutableTree) *Accounts {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	accounts := &Accounts{
		db:    immutableTree,
		bus:   stateBus,
		list:  map[types.AccountID]*Model{},
		dirty: map[types.AccountID]struct{}{},
	}
	accounts.bus.SetAccounts(NewBus(accounts))

	return accounts
}

func (a *Accounts) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *Accounts) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *Accounts) Commit(db *iavl.MutableTree, version int64) error {
	for _, id := range a.getOrderedDirty() {
		account := a.get(id)

		a.lock.Lock()
		delete(a.dirty, id)
		a.lock.Unlock()

		data, err := rlp.EncodeToBytes(account)
		if err != nil {
			return fmt.Errorf("can't encode account %d: %v", id, err)
		}

		db.Set(getPath(id), data)
	}

	return nil
}

// CreateAccount adds a new empty account record under the given id.
func (a *Accounts) CreateAccount(id types.AccountID, name string) *Model {
	account := &Model{
		Name:         name,
		OrdersLocked: big.NewInt(0),
		Vesting:      big.NewInt(0),
		id:           id,
		markDirty:    a.markDirty,
	}
	a.setToMap(id, account)
	a.markDirty(id)

	return account
}

func (a *Accounts) GetAccount(id types.AccountID) *Model {
	return a.get(id)
}

func (a *Accounts) GetBalance(id types.AccountID, asset types.AssetID) *big.Int {
	account := a.get(id)
	if account == nil {
		return big.NewInt(0)
	}

	return account.GetBalance(asset)
}

func (a *Accounts) AddBalance(id types.AccountID, asset types.AssetID, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}

	account := a.getOrNew(id)
	balance := account.GetBalance(asset)
	account.setBalance(asset, balance.Add(balance, amount))

	a.bus.Checker().AddAsset(asset, amount)
}

func (a *Accounts) SubBalance(id types.AccountID, asset types.AssetID, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}

	account := a.get(id)
	if account == nil {
		return errors.Errorf("account %d not found", id)
	}

	balance := account.GetBalance(asset)
	if balance.Cmp(amount) == -1 {
		return errors.Errorf("insufficient funds of asset %d on account %d", asset, id)
	}

	account.setBalance(asset, balance.Sub(balance, amount))

	a.bus.Checker().AddAsset(asset, new(big.Int).Neg(amount))

	return nil
}

// AddVesting credits the account's vesting balance. Vesting stake counts
// toward voting.
func (a *Accounts) AddVesting(id types.AccountID, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}

	account := a.getOrNew(id)

	account.lock.Lock()
	if account.Vesting == nil {
		account.Vesting = big.NewInt(0)
	}
	account.Vesting = big.NewInt(0).Add(account.Vesting, amount)
	account.lock.Unlock()

	account.markDirty(id)

	a.bus.Checker().AddAsset(types.GetCoreAssetID(), amount)
}

// AddOrdersLocked tracks core stake committed to open orders; the order
// book itself reports the holder-side delta.
func (a *Accounts) AddOrdersLocked(id types.AccountID, delta *big.Int) {
	if delta.Sign() == 0 {
		return
	}

	account := a.getOrNew(id)

	account.lock.Lock()
	if account.OrdersLocked == nil {
		account.OrdersLocked = big.NewInt(0)
	}
	account.OrdersLocked = big.NewInt(0).Add(account.OrdersLocked, delta)
	account.lock.Unlock()

	account.markDirty(id)
}

func (a *Accounts) SetVotes(id types.AccountID, votes []types.VoteID) {
	account := a.getOrNew(id)

	list := make([]uint32, 0, len(votes))
	for _, vote := range votes {
		list = append(list, uint32(vote))
	}

	account.lock.Lock()
	account.Votes = list
	account.lock.Unlock()

	account.markDirty(id)
}

func (a *Accounts) SetVotingProxy(id, proxy types.AccountID) {
	account := a.getOrNew(id)

	account.lock.Lock()
	account.VotingProxy = uint64(proxy)
	account.lock.Unlock()

	account.markDirty(id)
}

func (a *Accounts) SetDesiredCounts(id types.AccountID, numWitness, numCommittee uint16) {
	account := a.getOrNew(id)

	account.lock.Lock()
	account.NumWitness = numWitness
	account.NumCommittee = numCommittee
	account.lock.Unlock()

	account.markDirty(id)
}

func (a *Accounts) SetMembership(id types.AccountID, kind types.MembershipKind, expiration uint64) {
	account := a.getOrNew(id)

	account.lock.Lock()
	account.Membership = byte(kind)
	account.MembershipExpiration = expiration
	account.lock.Unlock()

	account.markDirty(id)
}

func (a *Accounts) SetBuyback(id types.AccountID, config *BuybackConfig) {
	account := a.getOrNew(id)

	account.lock.Lock()
	account.Buyback = config
	account.lock.Unlock()

	account.markDirty(id)
}

// SetAuthority replaces the account's active authority wholesale.
func (a *Accounts) SetAuthority(id types.AccountID, authority *Authority) {
	account := a.getOrNew(id)

	account.lock.Lock()
	account.Authority = authority
	account.lock.Unlock()

	account.markDirty(id)
}

func (a *Accounts) VotingStake(id types.AccountID) *big.Int {
	account := a.get(id)
	if account == nil {
		return big.NewInt(0)
	}

	return account.VotingStake(types.GetCoreAssetID())
}

// Iterate walks every account, committed and uncommitted, in ascending id
// order.
func (a *Accounts) Iterate(fn func(account *Model) bool) {
	ids := map[types.AccountID]struct{}{}

	a.immutableTree().IterateRange([]byte{mainPrefix}, []byte{mainPrefix + 1}, true, func(key []byte, value []byte) bool {
		if len(key) < 9 {
			return false
		}

		ids[types.AccountID(binary.BigEndian.Uint64(key[1:]))] = struct{}{}
		return false
	})

	a.lock.RLock()
	for id := range a.list {
		ids[id] = struct{}{}
	}
	a.lock.RUnlock()

	ordered := make([]types.AccountID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, id := range ordered {
		account := a.get(id)
		if account == nil {
			continue
		}

		if fn(account) {
			return
		}
	}
}

func (a *Accounts) get(id types.AccountID) *Model {
	if account := a.getFromMap(id); account != nil {
		return account
	}

	_, enc := a.immutableTree().Get(getPath(id))
	if len(enc) == 0 {
		return nil
	}

	account := &Model{}
	if err := rlp.DecodeBytes(enc, account); err != nil {
		panic(fmt.Sprintf("failed to decode account %d: %s", id, err))
	}

	account.id = id
	account.markDirty = a.markDirty

	a.setToMap(id, account)

	return account
}

func (a *Accounts) getOrNew(id types.AccountID) *Model {
	account := a.get(id)
	if account == nil {
		account = a.CreateAccount(id, "")
	}

	return account
}

func (a *Accounts) markDirty(id types.AccountID) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.dirty[id] = struct{}{}
}

func (a *Accounts) getOrderedDirty() []types.AccountID {
	a.lock.RLock()
	keys := make([]types.AccountID, 0, len(a.dirty))
	for k := range a.dirty {
		keys = append(keys, k)
	}
	a.lock.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (a *Accounts) Export(state *types.AppState) {
	a.Iterate(func(account *Model) bool {
		exported := types.Account{
			ID:                   uint64(account.ID()),
			Name:                 account.GetName(),
			VotingProxy:          uint64(account.GetVotingProxy()),
			NumWitness:           account.GetDesiredWitnessCount(),
			NumCommittee:         account.GetDesiredCommitteeCount(),
			Membership:           byte(account.GetMembership()),
			MembershipExpiration: account.GetMembershipExpiration(),
			Vesting:              account.GetVesting().String(),
		}

		for _, vote := range account.GetVotes() {
			exported.Votes = append(exported.Votes, uint32(vote))
		}

		account.lock.RLock()
		for _, balance := range account.Balances {
			exported.Balances = append(exported.Balances, types.Balance{
				Asset: balance.Asset,
				Value: balance.Value.String(),
			})
		}
		account.lock.RUnlock()

		if buyback := account.GetBuyback(); buyback != nil {
			exported.Buyback = &types.BuybackConfig{
				AssetToBuy:    buyback.AssetToBuy,
				AllowedAssets: buyback.AllowedAssets,
			}
		}

		if authority := account.GetAuthority(); authority != nil {
			exportedAuthority := &types.Authority{Threshold: authority.Threshold}
			for _, weight := range authority.Weights {
				exportedAuthority.Weights = append(exportedAuthority.Weights, types.AccountWeight{
					Account: weight.Account,
					Weight:  weight.Weight,
				})
			}
			exported.Authority = exportedAuthority
		}

		state.Accounts = append(state.Accounts, exported)
		return false
	})
}

// Import loads accounts from exported state.
func (a *Accounts) Import(state *types.AppState) {
	for _, account := range state.Accounts {
		model := a.CreateAccount(types.AccountID(account.ID), account.Name)
		model.VotingProxy = account.VotingProxy
		model.Votes = account.Votes
		model.NumWitness = account.NumWitness
		model.NumCommittee = account.NumCommittee
		model.Membership = account.Membership
		model.MembershipExpiration = account.MembershipExpiration

		if account.Vesting != "" {
			model.Vesting = helpers.StringToBigInt(account.Vesting)
		}

		for _, balance := range account.Balances {
			model.Balances = append(model.Balances, Balance{
				Asset: balance.Asset,
				Value: helpers.StringToBigInt(balance.Value),
			})
		}

		if account.Buyback != nil {
			model.Buyback = &BuybackConfig{
				AssetToBuy:    account.Buyback.AssetToBuy,
				AllowedAssets: account.Buyback.AllowedAssets,
			}
		}

		if account.Authority != nil {
			authority := &Authority{Threshold: account.Authority.Threshold}
			for _, weight := range account.Authority.Weights {
				authority.Weights = append(authority.Weights, AccountWeight{
					Account: weight.Account,
					Weight:  weight.Weight,
				})
			}
			model.Authority = authority
		}

		a.markDirty(model.ID())
	}
}

func (a *Accounts) getFromMap(id types.AccountID) *Model {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.list[id]
}

func (a *Accounts) setToMap(id types.AccountID, model *Model) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.list[id] = model
}

func getPath(id types.AccountID) []byte {
	path := make([]byte, 9)
	path[0] = mainPrefix
	binary.BigEndian.PutUint64(path[1:], uint64(id))

	return path
}
