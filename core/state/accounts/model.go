package accounts

import (
	"math/big"
	"sync"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

// Model is an account record. Stake, opinions and buyback policy all hang
// off it; the maintenance engine reads every account once per interval.
type Model struct {
	Name                 string
	VotingProxy          uint64
	Votes                []uint32
	NumWitness           uint16
	NumCommittee         uint16
	Membership           byte
	MembershipExpiration uint64
	Balances             []Balance
	OrdersLocked         *big.Int
	Vesting              *big.Int
	Buyback              *BuybackConfig `rlp:"nil"`
	Authority            *Authority     `rlp:"nil"`

	id        types.AccountID
	markDirty func(types.AccountID)
	lock      sync.RWMutex
}

type Balance struct {
	Asset uint32
	Value *big.Int
}

// BuybackConfig flags the account as a buyback account: its allowed
// non-target holdings are liquidated into AssetToBuy every interval.
type BuybackConfig struct {
	AssetToBuy    uint32
	AllowedAssets []uint32
}

// IsAllowed reports whether the asset may be liquidated.
func (c *BuybackConfig) IsAllowed(asset types.AssetID) bool {
	for _, allowed := range c.AllowedAssets {
		if types.AssetID(allowed) == asset {
			return true
		}
	}

	return false
}

// Authority is a weighted multi-signature over accounts. The aggregate
// witness/committee accounts get theirs replaced wholesale each interval.
type Authority struct {
	Threshold uint64
	Weights   []AccountWeight
}

type AccountWeight struct {
	Account uint64
	Weight  uint64
}

func (model *Model) ID() types.AccountID {
	return model.id
}

func (model *Model) GetName() string {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Name
}

func (model *Model) GetBalance(asset types.AssetID) *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	for _, balance := range model.Balances {
		if types.AssetID(balance.Asset) == asset {
			return big.NewInt(0).Set(balance.Value)
		}
	}

	return big.NewInt(0)
}

func (model *Model) setBalance(asset types.AssetID, value *big.Int) {
	model.lock.Lock()

	set := false
	balances := make([]Balance, 0, len(model.Balances)+1)
	for _, balance := range model.Balances {
		if types.AssetID(balance.Asset) == asset {
			set = true
			if value.Sign() == 0 {
				continue
			}
			balances = append(balances, Balance{Asset: uint32(asset), Value: big.NewInt(0).Set(value)})
			continue
		}

		if !set && balance.Asset > uint32(asset) && value.Sign() != 0 {
			set = true
			balances = append(balances, Balance{Asset: uint32(asset), Value: big.NewInt(0).Set(value)})
		}

		balances = append(balances, balance)
	}

	if !set && value.Sign() != 0 {
		balances = append(balances, Balance{Asset: uint32(asset), Value: big.NewInt(0).Set(value)})
	}

	model.Balances = balances
	model.lock.Unlock()

	model.markDirty(model.id)
}

// GetBalances returns a snapshot of all balances in ascending asset-id
// order.
func (model *Model) GetBalances() []Balance {
	model.lock.RLock()
	defer model.lock.RUnlock()

	balances := make([]Balance, 0, len(model.Balances))
	for _, balance := range model.Balances {
		balances = append(balances, Balance{Asset: balance.Asset, Value: big.NewInt(0).Set(balance.Value)})
	}

	return balances
}

func (model *Model) GetVesting() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.Vesting == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.Vesting)
}

func (model *Model) GetOrdersLocked() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.OrdersLocked == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.OrdersLocked)
}

func (model *Model) GetMembership() types.MembershipKind {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.MembershipKind(model.Membership)
}

func (model *Model) GetMembershipExpiration() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.MembershipExpiration
}

// IsMember reports whether the account's membership grants counted votes at
// the given time.
func (model *Model) IsMember(now uint64) bool {
	model.lock.RLock()
	defer model.lock.RUnlock()

	switch types.MembershipKind(model.Membership) {
	case types.MembershipLifetime:
		return true
	case types.MembershipAnnual:
		return model.MembershipExpiration > now
	}

	return false
}

func (model *Model) GetVotes() []types.VoteID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	votes := make([]types.VoteID, 0, len(model.Votes))
	for _, vote := range model.Votes {
		votes = append(votes, types.VoteID(vote))
	}

	return votes
}

func (model *Model) GetVotingProxy() types.AccountID {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return types.AccountID(model.VotingProxy)
}

func (model *Model) GetDesiredWitnessCount() uint16 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.NumWitness
}

func (model *Model) GetDesiredCommitteeCount() uint16 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.NumCommittee
}

func (model *Model) GetBuyback() *BuybackConfig {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Buyback
}

func (model *Model) GetAuthority() *Authority {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.Authority
}

// VotingStake is the account's full stake in the core asset: liquid
// balance, stake locked in open orders and the vesting balance.
func (model *Model) VotingStake(coreAsset types.AssetID) *big.Int {
	stake := model.GetBalance(coreAsset)
	stake.Add(stake, model.GetOrdersLocked())
	stake.Add(stake, model.GetVesting())

	return stake
}
