package maintenance

import (
	"math/big"
	"sort"

	"github.com/meridian-chain/meridian-go-node/core/state/accounts"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

// settleCount derives the elected set size from a count histogram: the
// smallest k such that stake summing past the target is reached within k
// buckets elects 2k+1 candidates, floored at the chain minimum. Bucket 0
// holds the stake of accounts that abstained from a count opinion.
func settleCount(hist []*big.Int, totalStake *big.Int, minCount uint16) int {
	target := big.NewInt(0).Sub(totalStake, hist[0])
	target.Div(target, big.NewInt(2))

	count := 0
	if target.Sign() == 1 {
		tally := big.NewInt(0)
		for count < len(hist)-1 && tally.Cmp(target) != 1 {
			count++
			tally.Add(tally, hist[count])
		}
	}

	elected := 2*count + 1
	if elected < int(minCount) {
		elected = int(minCount)
	}

	return elected
}

type rankedCandidate struct {
	voteID  types.VoteID
	account types.AccountID
	votes   *big.Int
}

// rankCandidates orders candidates by tallied votes descending, ties
// resolved by the lower vote id. The ordering never depends on input
// order.
func rankCandidates(list []rankedCandidate) {
	sort.Slice(list, func(i, j int) bool {
		if cmp := list[i].votes.Cmp(list[j].votes); cmp != 0 {
			return cmp == 1
		}
		return list[i].voteID < list[j].voteID
	})
}

// electWitnesses refreshes every witness's vote total, selects the active
// set and rebuilds the aggregate witness account authority.
func (e *Engine) electWitnesses(tally *Tally) {
	params := e.state.App.Params()

	all := e.state.Witnesses.GetWitnesses()
	ranked := make([]rankedCandidate, 0, len(all))
	rankedToWitness := map[types.VoteID]types.WitnessID{}
	for _, witness := range all {
		votes := tally.VotesFor(witness.GetVoteID())
		e.state.Witnesses.SetTotalVotes(witness.ID(), votes)
		ranked = append(ranked, rankedCandidate{
			voteID:  witness.GetVoteID(),
			account: witness.GetAccount(),
			votes:   votes,
		})
		rankedToWitness[witness.GetVoteID()] = witness.ID()
	}

	count := settleCount(tally.WitnessHist, tally.TotalStake, params.MinWitnessCount)
	if count > len(ranked) {
		count = len(ranked)
	}

	rankCandidates(ranked)
	elected := ranked[:count]

	ids := make([]types.WitnessID, 0, len(elected))
	for _, candidate := range elected {
		ids = append(ids, rankedToWitness[candidate.voteID])
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	e.state.App.SetActiveWitnesses(ids)

	authority := buildAuthority(elected)
	e.state.Accounts.SetAuthority(e.cfg.WitnessAccount, authority)
}

// electCommittee mirrors electWitnesses for committee members. The
// rebuilt authority is applied to both the committee account and its
// relaxed duplicate.
func (e *Engine) electCommittee(tally *Tally) {
	params := e.state.App.Params()

	all := e.state.Committee.GetMembers()
	ranked := make([]rankedCandidate, 0, len(all))
	rankedToMember := map[types.VoteID]types.CommitteeID{}
	for _, member := range all {
		votes := tally.VotesFor(member.GetVoteID())
		e.state.Committee.SetTotalVotes(member.ID(), votes)
		ranked = append(ranked, rankedCandidate{
			voteID:  member.GetVoteID(),
			account: member.GetAccount(),
			votes:   votes,
		})
		rankedToMember[member.GetVoteID()] = member.ID()
	}

	count := settleCount(tally.CommitteeHist, tally.TotalStake, params.MinCommitteeCount)
	if count > len(ranked) {
		count = len(ranked)
	}

	rankCandidates(ranked)
	elected := ranked[:count]

	ids := make([]types.CommitteeID, 0, len(elected))
	for _, candidate := range elected {
		ids = append(ids, rankedToMember[candidate.voteID])
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	e.state.App.SetActiveCommittee(ids)

	authority := buildAuthority(elected)
	e.state.Accounts.SetAuthority(e.cfg.CommitteeAccount, authority)
	e.state.Accounts.SetAuthority(e.cfg.RelaxedCommitteeAccount, authority)
}

// buildAuthority turns the elected candidates' vote totals into a
// weighted multisig: votes are shifted right until the largest total fits
// sixteen bits, every candidate keeps at least weight one, and the
// threshold is a strict majority of the weight sum.
func buildAuthority(elected []rankedCandidate) *accounts.Authority {
	totalVotes := big.NewInt(0)
	for _, candidate := range elected {
		totalVotes.Add(totalVotes, candidate.votes)
	}

	bitsToDrop := uint(0)
	if totalVotes.BitLen() > 16 {
		bitsToDrop = uint(totalVotes.BitLen() - 16)
	}

	weightByAccount := map[types.AccountID]uint64{}
	order := make([]types.AccountID, 0, len(elected))
	for _, candidate := range elected {
		weight := big.NewInt(0).Rsh(candidate.votes, bitsToDrop).Uint64()
		if weight == 0 {
			weight = 1
		}
		if _, seen := weightByAccount[candidate.account]; !seen {
			order = append(order, candidate.account)
		}
		weightByAccount[candidate.account] += weight
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	authority := &accounts.Authority{}
	totalWeight := uint64(0)
	for _, account := range order {
		weight := weightByAccount[account]
		authority.Weights = append(authority.Weights, accounts.AccountWeight{
			Account: uint64(account),
			Weight:  weight,
		})
		totalWeight += weight
	}
	authority.Threshold = totalWeight/2 + 1

	return authority
}
