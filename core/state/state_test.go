package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	db "github.com/tendermint/tm-db"

	eventsdb "github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/state/accounts"
	"github.com/meridian-chain/meridian-go-node/core/state/app"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

func newTestState(t *testing.T) *State {
	t.Helper()

	s, err := NewState(0, db.NewMemDB(), eventsdb.NewEventsStore(db.NewMemDB()), 1024, 10, 0)
	if err != nil {
		t.Fatalf("create state: %s", err)
	}

	return s
}

func testParams() *app.Params {
	return &app.Params{
		MaintenanceInterval:  86400,
		BlockInterval:        5,
		MinWitnessCount:      3,
		MaxWitnessCount:      21,
		MinCommitteeCount:    3,
		MaxCommitteeCount:    11,
		WitnessPayPerBlock:   big.NewInt(10),
		WorkerBudgetPerDay:   big.NewInt(100000),
		BudgetDecayNumerator: 17,
		BudgetDecayBits:      32,
	}
}

func fillState(t *testing.T, s *State) {
	t.Helper()

	s.App.SetParams(testParams())
	s.App.SetNextMaintenanceTime(1000)
	s.App.SetLastBudgetTime(500)

	s.Assets.CreateAsset(types.GetCoreAssetID(), "MRDN", 1, 0)
	s.Assets.SetInitialSupply(big.NewInt(1000000), big.NewInt(55), big.NewInt(7))
	s.Assets.CreateAsset(5, "WIDGET", 30, 31)

	s.Accounts.CreateAccount(1, "issuer")
	s.Accounts.CreateAccount(30, "widget-issuer")
	s.Accounts.CreateAccount(31, "widget-buyback")
	s.Accounts.CreateAccount(10, "alice")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(12345))
	s.Accounts.AddVesting(10, big.NewInt(100))
	s.Accounts.SetMembership(10, types.MembershipLifetime, 0)
	s.Accounts.SetDesiredCounts(10, 11, 5)
	s.Accounts.SetBuyback(31, &accounts.BuybackConfig{AssetToBuy: 5, AllowedAssets: []uint32{0}})

	witnessVote := s.App.AllocateVoteID()
	s.Witnesses.Create(1, 10, witnessVote, big.NewInt(10))
	s.Accounts.SetVotes(10, []types.VoteID{witnessVote})

	s.Committee.Create(1, 10, s.App.AllocateVoteID())
	s.Workers.Create(1, 10, s.App.AllocateVoteID(), s.App.AllocateVoteID(), big.NewInt(100), 0, 1<<62, types.WorkerVesting)

	s.FeeBuckets.Create(1, 5)
	s.FeeBuckets.AddToBucket(1, big.NewInt(42))
	s.FeeBuckets.SetConfig(1, 2000, 6000)

	s.Accounts.AddBalance(10, 5, big.NewInt(77))
	if _, _, err := s.Orders.Create(10, 5, big.NewInt(77), 0, big.NewInt(9)); err != nil {
		t.Fatalf("create order: %s", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestState(t)
	fillState(t, s)
	_, err := s.Commit()
	require.NoError(t, err)

	exported := s.Export()
	require.NoError(t, exported.Verify())

	restored := newTestState(t)
	require.NoError(t, restored.Import(exported))
	_, err = restored.Commit()
	require.NoError(t, err)

	second := restored.Export()
	require.NoError(t, second.Verify())
	require.Equal(t, exported, second)

	require.Equal(t, "1000000", restored.Assets.CurrentSupply().String())
	require.Equal(t, "55", restored.Assets.AccumulatedFees().String())
	require.Equal(t, "12345", restored.Accounts.GetBalance(10, types.GetCoreAssetID()).String())
	require.Equal(t, "100", restored.Accounts.GetAccount(10).GetVesting().String())

	bucket := restored.FeeBuckets.GetBucket(1)
	require.NotNil(t, bucket)
	require.Equal(t, "42", bucket.GetBalance().String())

	restingOrders := restored.Orders.GetOrders()
	require.Len(t, restingOrders, 1)
	require.Equal(t, "77", restingOrders[0].GetForSale().String())

	require.EqualValues(t, 17, restored.App.Params().BudgetDecayNumerator)
	require.EqualValues(t, 1000, restored.App.NextMaintenanceTime())
}

func TestRollbackDropsUncommitted(t *testing.T) {
	s := newTestState(t)
	s.Accounts.CreateAccount(10, "alice")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(100))
	if _, err := s.Commit(); err != nil {
		t.Fatalf("commit: %s", err)
	}

	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(900))
	s.Rollback()

	if balance := s.Accounts.GetBalance(10, types.GetCoreAssetID()); balance.String() != "100" {
		t.Fatalf("balance is %s after rollback, expected 100", balance)
	}
}

func TestCheckCatchesImbalance(t *testing.T) {
	s := newTestState(t)
	s.Accounts.CreateAccount(10, "alice")
	if _, err := s.Commit(); err != nil {
		t.Fatalf("commit: %s", err)
	}

	// A bare credit with no matching supply movement must not pass.
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(1))

	if err := s.Check(); err == nil {
		t.Fatal("expected the conservation check to fail")
	}
}
