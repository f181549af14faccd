package maintenance

import (
	"math/big"

	"github.com/meridian-chain/meridian-go-node/core/state/accounts"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

// Tally is the per-interval vote accumulator. It is owned by one Perform
// call and never persisted.
type Tally struct {
	Votes         []*big.Int
	WitnessHist   []*big.Int
	CommitteeHist []*big.Int
	TotalStake    *big.Int
}

func newTally(voteCount uint32, witnessBuckets, committeeBuckets int) *Tally {
	tally := &Tally{
		Votes:         make([]*big.Int, voteCount),
		WitnessHist:   make([]*big.Int, witnessBuckets),
		CommitteeHist: make([]*big.Int, committeeBuckets),
		TotalStake:    big.NewInt(0),
	}

	for i := range tally.Votes {
		tally.Votes[i] = big.NewInt(0)
	}
	for i := range tally.WitnessHist {
		tally.WitnessHist[i] = big.NewInt(0)
	}
	for i := range tally.CommitteeHist {
		tally.CommitteeHist[i] = big.NewInt(0)
	}

	return tally
}

// VotesFor returns the tallied stake for a vote id, zero for ids outside
// the allocated range.
func (t *Tally) VotesFor(id types.VoteID) *big.Int {
	if int(id) >= len(t.Votes) {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(t.Votes[id])
}

// tallyVotes walks every account once, resolving proxies and accumulating
// stake into the tally buffer and both count histograms.
func (e *Engine) tallyVotes(now uint64) *Tally {
	params := e.state.App.Params()
	tally := newTally(
		uint32(e.state.App.NextVoteID()),
		int(params.MaxWitnessCount/2)+1,
		int(params.MaxCommitteeCount/2)+1,
	)

	e.state.Accounts.Iterate(func(account *accounts.Model) bool {
		if !params.CountNonMemberVotes && !account.IsMember(now) {
			return false
		}

		// The proxy supplies the opinions; the stake stays with the
		// delegating account.
		opinion := account
		if proxy := account.GetVotingProxy(); proxy != types.ProxyToSelf {
			if proxyAccount := e.state.Accounts.GetAccount(proxy); proxyAccount != nil {
				opinion = proxyAccount
			}
		}

		stake := account.VotingStake(e.cfg.CoreAsset)
		if stake.Sign() != 1 {
			return false
		}

		for _, vote := range opinion.GetVotes() {
			if int(vote) < len(tally.Votes) {
				tally.Votes[vote].Add(tally.Votes[vote], stake)
			}
		}

		witnessBucket := int(opinion.GetDesiredWitnessCount() / 2)
		if witnessBucket > len(tally.WitnessHist)-1 {
			witnessBucket = len(tally.WitnessHist) - 1
		}
		tally.WitnessHist[witnessBucket].Add(tally.WitnessHist[witnessBucket], stake)

		committeeBucket := int(opinion.GetDesiredCommitteeCount() / 2)
		if committeeBucket > len(tally.CommitteeHist)-1 {
			committeeBucket = len(tally.CommitteeHist) - 1
		}
		tally.CommitteeHist[committeeBucket].Add(tally.CommitteeHist[committeeBucket], stake)

		tally.TotalStake.Add(tally.TotalStake, stake)

		return false
	})

	return tally
}
