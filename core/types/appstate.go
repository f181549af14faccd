package types

import (
	"fmt"

	"github.com/meridian-chain/meridian-go-node/helpers"
)

type AppState struct {
	Note             string          `json:"note"`
	Accounts         []Account       `json:"accounts,omitempty"`
	Assets           []Asset         `json:"assets,omitempty"`
	Witnesses        []Witness       `json:"witnesses,omitempty"`
	Committee        []Committee     `json:"committee,omitempty"`
	Workers          []Worker        `json:"workers,omitempty"`
	FeeBuckets       []FeeBucket     `json:"fee_buckets,omitempty"`
	Orders           []Order         `json:"orders,omitempty"`
	ActiveWitnesses  []uint32        `json:"active_witnesses,omitempty"`
	ActiveCommittee  []uint32        `json:"active_committee,omitempty"`
	NextVoteID       uint32          `json:"next_vote_id"`
	Params           Params          `json:"params"`
	PendingParams    *Params         `json:"pending_params,omitempty"`
	NextMaintenance  uint64          `json:"next_maintenance_time"`
	LastBudgetTime   uint64          `json:"last_budget_time"`
	WitnessBudget    string          `json:"witness_budget"`
	CurrentSupply    string          `json:"current_supply"`
	AccumulatedFees  string          `json:"accumulated_fees"`
	FeeBurnt         string          `json:"fee_burnt"`
}

type Params struct {
	MaintenanceInterval  int64  `json:"maintenance_interval"`
	BlockInterval        int64  `json:"block_interval"`
	MinWitnessCount      uint16 `json:"min_witness_count"`
	MaxWitnessCount      uint16 `json:"max_witness_count"`
	MinCommitteeCount    uint16 `json:"min_committee_count"`
	MaxCommitteeCount    uint16 `json:"max_committee_count"`
	WitnessPayPerBlock   string `json:"witness_pay_per_block"`
	WorkerBudgetPerDay   string `json:"worker_budget_per_day"`
	CountNonMemberVotes  bool   `json:"count_non_member_votes"`
	BudgetDecayNumerator uint64 `json:"budget_decay_numerator"`
	BudgetDecayBits      uint   `json:"budget_decay_bits"`
}

type Account struct {
	ID                   uint64           `json:"id"`
	Name                 string           `json:"name"`
	VotingProxy          uint64           `json:"voting_proxy,omitempty"`
	Votes                []uint32         `json:"votes,omitempty"`
	NumWitness           uint16           `json:"num_witness"`
	NumCommittee         uint16           `json:"num_committee"`
	Membership           byte             `json:"membership"`
	MembershipExpiration uint64           `json:"membership_expiration,omitempty"`
	Balances             []Balance        `json:"balances,omitempty"`
	Vesting              string           `json:"vesting,omitempty"`
	Buyback              *BuybackConfig   `json:"buyback,omitempty"`
	Authority            *Authority       `json:"authority,omitempty"`
}

type Balance struct {
	Asset uint32 `json:"asset"`
	Value string `json:"value"`
}

type BuybackConfig struct {
	AssetToBuy    uint32   `json:"asset_to_buy"`
	AllowedAssets []uint32 `json:"allowed_assets"`
}

type Authority struct {
	Threshold uint64          `json:"threshold"`
	Weights   []AccountWeight `json:"weights,omitempty"`
}

type AccountWeight struct {
	Account uint64 `json:"account"`
	Weight  uint64 `json:"weight"`
}

type Asset struct {
	ID             uint32 `json:"id"`
	Symbol         string `json:"symbol"`
	Issuer         uint64 `json:"issuer"`
	BuybackAccount uint64 `json:"buyback_account,omitempty"`
}

type Witness struct {
	ID         uint32 `json:"id"`
	Account    uint64 `json:"account"`
	VoteID     uint32 `json:"vote_id"`
	TotalVotes string `json:"total_votes"`
	DailyPay   string `json:"daily_pay"`
}

type Committee struct {
	ID         uint32 `json:"id"`
	Account    uint64 `json:"account"`
	VoteID     uint32 `json:"vote_id"`
	TotalVotes string `json:"total_votes"`
}

type Worker struct {
	ID          uint32 `json:"id"`
	Account     uint64 `json:"account"`
	VoteFor     uint32 `json:"vote_for"`
	VoteAgainst uint32 `json:"vote_against"`
	DailyPay    string `json:"daily_pay"`
	WorkBegin   uint64 `json:"work_begin"`
	WorkEnd     uint64 `json:"work_end"`
	Kind        byte   `json:"kind"`
}

type FeeBucket struct {
	ID              uint32 `json:"id"`
	Balance         string `json:"balance"`
	DesignatedAsset uint32 `json:"designated_asset"`
	Configured      bool   `json:"configured"`
	BuybackPct      uint32 `json:"buyback_pct"`
	IssuerPct       uint32 `json:"issuer_pct"`
}

type Order struct {
	ID           uint64 `json:"id"`
	Seller       uint64 `json:"seller"`
	SellAsset    uint32 `json:"sell_asset"`
	ForSale      string `json:"for_sale"`
	ReceiveAsset uint32 `json:"receive_asset"`
	MinToReceive string `json:"min_to_receive"`
}

// Verify performs basic consistency checks on imported state.
func (s *AppState) Verify() error {
	if !helpers.IsValidBigInt(s.CurrentSupply) {
		return fmt.Errorf("current supply is not valid BigInt")
	}

	if !helpers.IsValidBigInt(s.WitnessBudget) {
		return fmt.Errorf("witness budget is not valid BigInt")
	}

	if s.Params.BlockInterval < 1 {
		return fmt.Errorf("block interval should be at least 1 second")
	}

	if s.Params.MaintenanceInterval < s.Params.BlockInterval {
		return fmt.Errorf("maintenance interval is shorter than block interval")
	}

	accounts := map[uint64]struct{}{}
	for _, account := range s.Accounts {
		if _, exists := accounts[account.ID]; exists {
			return fmt.Errorf("duplicated account %d", account.ID)
		}
		accounts[account.ID] = struct{}{}

		for _, balance := range account.Balances {
			if !helpers.IsValidBigInt(balance.Value) {
				return fmt.Errorf("account %d has invalid balance of asset %d", account.ID, balance.Asset)
			}
		}
	}

	witnesses := map[uint32]struct{}{}
	for _, witness := range s.Witnesses {
		if _, exists := witnesses[witness.ID]; exists {
			return fmt.Errorf("duplicated witness %d", witness.ID)
		}
		witnesses[witness.ID] = struct{}{}

		if _, exists := accounts[witness.Account]; !exists {
			return fmt.Errorf("witness %d refers to unknown account %d", witness.ID, witness.Account)
		}

		if witness.VoteID >= s.NextVoteID {
			return fmt.Errorf("witness %d holds unallocated vote id %d", witness.ID, witness.VoteID)
		}
	}

	for _, member := range s.Committee {
		if _, exists := accounts[member.Account]; !exists {
			return fmt.Errorf("committee member %d refers to unknown account %d", member.ID, member.Account)
		}

		if member.VoteID >= s.NextVoteID {
			return fmt.Errorf("committee member %d holds unallocated vote id %d", member.ID, member.VoteID)
		}
	}

	for _, active := range s.ActiveWitnesses {
		if _, exists := witnesses[active]; !exists {
			return fmt.Errorf("active witness %d not found", active)
		}
	}

	return nil
}
