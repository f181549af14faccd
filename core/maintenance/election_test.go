package maintenance

import (
	"math/big"
	"math/rand"
	"reflect"
	"testing"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

func hist(values ...int64) []*big.Int {
	out := make([]*big.Int, 0, len(values))
	for _, value := range values {
		out = append(out, big.NewInt(value))
	}
	return out
}

func TestSettleCountStakeTargetWalk(t *testing.T) {
	// total 1000, abstain bucket 100, target (1000-100)/2 = 450: buckets
	// 1..9 hold 50 each, so nine buckets are needed before the running sum
	// of 450 is exceeded... it never is within the buffer, so the walk
	// stops at the last bucket.
	h := hist(100, 50, 50, 50, 50, 50, 50, 50, 50, 50)
	count := settleCount(h, big.NewInt(1000), 1)
	if count != 2*9+1 {
		t.Fatalf("elected count is %d, expected %d", count, 2*9+1)
	}

	// Heavier early buckets satisfy the target sooner.
	h = hist(100, 300, 300, 50, 50, 50, 50, 50, 25, 25)
	count = settleCount(h, big.NewInt(1000), 1)
	if count != 2*2+1 {
		t.Fatalf("elected count is %d, expected %d", count, 2*2+1)
	}
}

func TestSettleCountAllAbstain(t *testing.T) {
	h := hist(1000, 0, 0, 0)
	count := settleCount(h, big.NewInt(1000), 3)
	if count != 3 {
		t.Fatalf("elected count is %d, expected the minimum of 3", count)
	}
}

func TestSettleCountMinimumFloor(t *testing.T) {
	h := hist(0, 1000, 0, 0)
	count := settleCount(h, big.NewInt(1000), 11)
	if count != 11 {
		t.Fatalf("elected count is %d, expected the minimum of 11", count)
	}
}

func TestRankCandidatesTieBreak(t *testing.T) {
	build := func() []rankedCandidate {
		return []rankedCandidate{
			{voteID: 4, account: 14, votes: big.NewInt(500)},
			{voteID: 2, account: 12, votes: big.NewInt(700)},
			{voteID: 1, account: 11, votes: big.NewInt(500)},
			{voteID: 3, account: 13, votes: big.NewInt(500)},
		}
	}

	expected := []types.VoteID{2, 1, 3, 4}

	// The outcome must be identical for every input permutation.
	for i := 0; i < 20; i++ {
		list := build()
		rand.New(rand.NewSource(int64(i))).Shuffle(len(list), func(a, b int) {
			list[a], list[b] = list[b], list[a]
		})

		rankCandidates(list)

		got := make([]types.VoteID, 0, len(list))
		for _, candidate := range list {
			got = append(got, candidate.voteID)
		}

		if !reflect.DeepEqual(got, expected) {
			t.Fatalf("permutation %d ranked %v, expected %v", i, got, expected)
		}
	}
}

func TestBuildAuthority(t *testing.T) {
	elected := []rankedCandidate{
		{voteID: 1, account: 10, votes: big.NewInt(6000)},
		{voteID: 2, account: 20, votes: big.NewInt(3000)},
		{voteID: 3, account: 30, votes: big.NewInt(1000)},
	}

	authority := buildAuthority(elected)

	if len(authority.Weights) != 3 {
		t.Fatalf("authority has %d weights, expected 3", len(authority.Weights))
	}

	total := uint64(0)
	for i, weight := range authority.Weights {
		if i > 0 && authority.Weights[i-1].Account >= weight.Account {
			t.Fatal("authority weights must be ordered by account id")
		}
		if weight.Weight == 0 {
			t.Fatalf("account %d got zero weight", weight.Account)
		}
		total += weight.Weight
	}

	if authority.Threshold != total/2+1 {
		t.Fatalf("threshold is %d, expected %d", authority.Threshold, total/2+1)
	}
}

func TestBuildAuthorityNormalizesLargeVotes(t *testing.T) {
	huge, _ := big.NewInt(0).SetString("123456789012345678901234567890", 10)
	tiny := big.NewInt(1)

	authority := buildAuthority([]rankedCandidate{
		{voteID: 1, account: 10, votes: huge},
		{voteID: 2, account: 20, votes: tiny},
	})

	for _, weight := range authority.Weights {
		if weight.Weight == 0 {
			t.Fatalf("account %d got zero weight", weight.Account)
		}
		if weight.Weight > 1<<16 {
			t.Fatalf("account %d weight %d does not fit sixteen bits", weight.Account, weight.Weight)
		}
	}
}
