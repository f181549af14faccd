package maintenance

import (
	"math/big"
	"testing"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

func TestTallyProxyVoting(t *testing.T) {
	engine, s, _ := newTestEngine(t)
	seedChain(t, s, defaultParams())

	voteID := s.App.AllocateVoteID()
	otherID := s.App.AllocateVoteID()

	// The proxy supplies the opinion; the delegator supplies the stake.
	s.Accounts.CreateAccount(10, "delegator")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(1000))
	s.Accounts.CreateAccount(11, "proxy")
	s.Accounts.AddBalance(11, types.GetCoreAssetID(), big.NewInt(5))
	s.Accounts.SetVotes(11, []types.VoteID{voteID})
	s.Accounts.SetVotes(10, []types.VoteID{otherID})
	s.Accounts.SetVotingProxy(10, 11)
	commit(t, s)

	tally := engine.tallyVotes(100)

	if votes := tally.VotesFor(voteID); votes.String() != "1005" {
		t.Fatalf("proxied vote has %s, expected delegator+proxy stake 1005", votes)
	}
	if votes := tally.VotesFor(otherID); votes.Sign() != 0 {
		t.Fatalf("the delegator's own opinion must not count, got %s", votes)
	}
}

func TestTallyCountsStakeBeyondBalance(t *testing.T) {
	engine, s, _ := newTestEngine(t)
	seedChain(t, s, defaultParams())

	voteID := s.App.AllocateVoteID()

	s.Accounts.CreateAccount(10, "staker")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(100))
	s.Accounts.AddVesting(10, big.NewInt(30))
	s.Accounts.SetVotes(10, []types.VoteID{voteID})
	commit(t, s)

	// Lock part of the stake in an order; it still votes.
	if _, _, err := s.Orders.Create(10, types.GetCoreAssetID(), big.NewInt(40), 2, big.NewInt(1000)); err != nil {
		t.Fatalf("create order: %s", err)
	}

	tally := engine.tallyVotes(100)

	if votes := tally.VotesFor(voteID); votes.String() != "130" {
		t.Fatalf("tallied stake is %s, expected balance+orders+vesting 130", votes)
	}
}

func TestTallyIgnoresOutOfRangeVoteIDs(t *testing.T) {
	engine, s, _ := newTestEngine(t)
	seedChain(t, s, defaultParams())

	voteID := s.App.AllocateVoteID()

	s.Accounts.CreateAccount(10, "voter")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(500))
	s.Accounts.SetVotes(10, []types.VoteID{voteID, 9999})
	commit(t, s)

	tally := engine.tallyVotes(100)

	if votes := tally.VotesFor(voteID); votes.String() != "500" {
		t.Fatalf("in-range vote has %s, expected 500", votes)
	}
	if votes := tally.VotesFor(9999); votes.Sign() != 0 {
		t.Fatalf("out-of-range vote must stay zero, got %s", votes)
	}
}

func TestTallySkipsNonMembersWhenDisabled(t *testing.T) {
	engine, s, _ := newTestEngine(t)
	params := defaultParams()
	params.CountNonMemberVotes = false
	seedChain(t, s, params)

	voteID := s.App.AllocateVoteID()

	s.Accounts.CreateAccount(10, "basic")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(100))
	s.Accounts.SetVotes(10, []types.VoteID{voteID})

	s.Accounts.CreateAccount(11, "lifetime")
	s.Accounts.AddBalance(11, types.GetCoreAssetID(), big.NewInt(7))
	s.Accounts.SetMembership(11, types.MembershipLifetime, 0)
	s.Accounts.SetVotes(11, []types.VoteID{voteID})
	commit(t, s)

	tally := engine.tallyVotes(100)

	if votes := tally.VotesFor(voteID); votes.String() != "7" {
		t.Fatalf("only member stake should count, got %s", votes)
	}
	if tally.TotalStake.String() != "7" {
		t.Fatalf("total stake is %s, expected 7", tally.TotalStake)
	}
}

func TestTallyClampsDesiredCounts(t *testing.T) {
	engine, s, _ := newTestEngine(t)
	params := defaultParams()
	params.MaxWitnessCount = 5
	seedChain(t, s, params)

	s.Accounts.CreateAccount(10, "greedy")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(100))
	s.Accounts.SetDesiredCounts(10, 1000, 1000)
	commit(t, s)

	tally := engine.tallyVotes(100)

	last := len(tally.WitnessHist) - 1
	if tally.WitnessHist[last].String() != "100" {
		t.Fatalf("oversized desired count must land in the top bucket, got %s", tally.WitnessHist[last])
	}
	for i := 0; i < last; i++ {
		if tally.WitnessHist[i].Sign() != 0 {
			t.Fatalf("bucket %d unexpectedly has stake %s", i, tally.WitnessHist[i])
		}
	}
}
