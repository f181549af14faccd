package orders_test

import (
	"math/big"
	"testing"

	db "github.com/tendermint/tm-db"

	eventsdb "github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/state"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

func newTestState(t *testing.T) *state.State {
	t.Helper()

	s, err := state.NewState(0, db.NewMemDB(), eventsdb.NewEventsStore(db.NewMemDB()), 1024, 10, 0)
	if err != nil {
		t.Fatalf("create state: %s", err)
	}

	return s
}

func commit(t *testing.T, s *state.State) {
	t.Helper()

	if _, err := s.Commit(); err != nil {
		t.Fatalf("commit: %s", err)
	}
}

func TestCreateDebitsSellerAndRests(t *testing.T) {
	s := newTestState(t)

	s.Accounts.CreateAccount(10, "seller")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(100))
	commit(t, s)

	id, remaining, err := s.Orders.Create(10, types.GetCoreAssetID(), big.NewInt(100), 2, big.NewInt(50))
	if err != nil {
		t.Fatalf("create order: %s", err)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("conservation check: %s", err)
	}

	if remaining.String() != "100" {
		t.Fatalf("remaining is %s, expected the full 100 on an empty book", remaining)
	}
	if balance := s.Accounts.GetBalance(10, types.GetCoreAssetID()); balance.Sign() != 0 {
		t.Fatalf("seller still holds %s", balance)
	}
	if locked := s.Accounts.GetAccount(10).GetOrdersLocked(); locked.String() != "100" {
		t.Fatalf("orders-locked stake is %s, expected 100", locked)
	}

	order := s.Orders.GetOrder(id)
	if order == nil {
		t.Fatal("order did not rest on the book")
	}
	if order.GetForSale().String() != "100" || order.GetMinToReceive().String() != "50" {
		t.Fatalf("resting order is %s for %s", order.GetForSale(), order.GetMinToReceive())
	}
}

func TestCreateRejectsBadOrders(t *testing.T) {
	s := newTestState(t)

	s.Accounts.CreateAccount(10, "seller")
	s.Accounts.AddBalance(10, 1, big.NewInt(10))
	commit(t, s)

	if _, _, err := s.Orders.Create(10, 1, big.NewInt(10), 1, big.NewInt(5)); err == nil {
		t.Fatal("expected an error for a same-asset order")
	}
	if _, _, err := s.Orders.Create(10, 1, big.NewInt(0), 2, big.NewInt(5)); err == nil {
		t.Fatal("expected an error for a zero sell amount")
	}
	if _, _, err := s.Orders.Create(10, 1, big.NewInt(10), 2, big.NewInt(0)); err == nil {
		t.Fatal("expected an error for a zero receive amount")
	}
	if _, _, err := s.Orders.Create(10, 1, big.NewInt(11), 2, big.NewInt(5)); err == nil {
		t.Fatal("expected an insufficient funds error")
	}

	if balance := s.Accounts.GetBalance(10, 1); balance.String() != "10" {
		t.Fatalf("rejected orders must not move funds, balance is %s", balance)
	}
}

func TestFillAtMakerPrice(t *testing.T) {
	s := newTestState(t)

	s.Accounts.CreateAccount(10, "maker")
	s.Accounts.CreateAccount(20, "taker")
	s.Accounts.AddBalance(10, 1, big.NewInt(200))
	s.Accounts.AddBalance(20, 2, big.NewInt(50))
	commit(t, s)

	// Maker asks 100 of asset 2 for 200 of asset 1.
	makerID, _, err := s.Orders.Create(10, 1, big.NewInt(200), 2, big.NewInt(100))
	if err != nil {
		t.Fatalf("place maker: %s", err)
	}

	// The taker's 50 buys exactly half the maker at the maker's price.
	_, remaining, err := s.Orders.Create(20, 2, big.NewInt(50), 1, big.NewInt(1))
	if err != nil {
		t.Fatalf("place taker: %s", err)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("conservation check: %s", err)
	}

	if remaining.Sign() != 0 {
		t.Fatalf("taker remaining is %s, expected a full fill", remaining)
	}
	if balance := s.Accounts.GetBalance(20, 1); balance.String() != "100" {
		t.Fatalf("taker bought %s, expected 100", balance)
	}
	if balance := s.Accounts.GetBalance(10, 2); balance.String() != "50" {
		t.Fatalf("maker received %s, expected 50", balance)
	}

	maker := s.Orders.GetOrder(makerID)
	if maker == nil {
		t.Fatal("half-filled maker must stay on the book")
	}
	if maker.GetForSale().String() != "100" || maker.GetMinToReceive().String() != "50" {
		t.Fatalf("maker remainder is %s for %s, expected 100 for 50", maker.GetForSale(), maker.GetMinToReceive())
	}
}

func TestMatchingPrefersCheaperThenOlder(t *testing.T) {
	s := newTestState(t)

	s.Accounts.CreateAccount(10, "expensive")
	s.Accounts.CreateAccount(11, "cheap")
	s.Accounts.CreateAccount(12, "cheap-later")
	s.Accounts.CreateAccount(20, "taker")
	for _, id := range []types.AccountID{10, 11, 12} {
		s.Accounts.AddBalance(id, 1, big.NewInt(100))
	}
	s.Accounts.AddBalance(20, 2, big.NewInt(60))
	commit(t, s)

	// Same side of the book: asset 1 on sale for asset 2.
	expensiveID, _, err := s.Orders.Create(10, 1, big.NewInt(100), 2, big.NewInt(100))
	if err != nil {
		t.Fatalf("place order: %s", err)
	}
	cheapID, _, err := s.Orders.Create(11, 1, big.NewInt(100), 2, big.NewInt(50))
	if err != nil {
		t.Fatalf("place order: %s", err)
	}
	cheapLaterID, _, err := s.Orders.Create(12, 1, big.NewInt(100), 2, big.NewInt(50))
	if err != nil {
		t.Fatalf("place order: %s", err)
	}

	// 60 at the cheap price consumes all of the first cheap maker (50)
	// and a tenth of the second.
	_, remaining, err := s.Orders.Create(20, 2, big.NewInt(60), 1, big.NewInt(1))
	if err != nil {
		t.Fatalf("place taker: %s", err)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("conservation check: %s", err)
	}

	if remaining.Sign() != 0 {
		t.Fatalf("taker remaining is %s, expected a full fill", remaining)
	}
	if s.Orders.GetOrder(cheapID) != nil {
		t.Fatal("older cheap maker should be fully consumed")
	}
	if order := s.Orders.GetOrder(cheapLaterID); order == nil || order.GetForSale().String() != "80" {
		t.Fatal("newer cheap maker should be tapped only after the older one")
	}
	if order := s.Orders.GetOrder(expensiveID); order == nil || order.GetForSale().String() != "100" {
		t.Fatal("expensive maker should be untouched")
	}
	if balance := s.Accounts.GetBalance(20, 1); balance.String() != "120" {
		t.Fatalf("taker bought %s, expected 120", balance)
	}
}

func TestTakerStopsAtLimitPrice(t *testing.T) {
	s := newTestState(t)

	s.Accounts.CreateAccount(10, "maker")
	s.Accounts.CreateAccount(20, "taker")
	s.Accounts.AddBalance(10, 1, big.NewInt(100))
	s.Accounts.AddBalance(20, 2, big.NewInt(100))
	commit(t, s)

	// Maker wants 2 of asset 2 per asset 1; the taker insists on at
	// least 1 per 1 and must not trade.
	if _, _, err := s.Orders.Create(10, 1, big.NewInt(100), 2, big.NewInt(200)); err != nil {
		t.Fatalf("place maker: %s", err)
	}

	takerID, remaining, err := s.Orders.Create(20, 2, big.NewInt(100), 1, big.NewInt(100))
	if err != nil {
		t.Fatalf("place taker: %s", err)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("conservation check: %s", err)
	}

	if remaining.String() != "100" {
		t.Fatalf("taker remaining is %s, expected no fill", remaining)
	}
	if s.Orders.GetOrder(takerID) == nil {
		t.Fatal("unmatched taker must rest on the book")
	}
	if balance := s.Accounts.GetBalance(20, 1); balance.Sign() != 0 {
		t.Fatalf("taker bought %s through its own limit", balance)
	}
}

func TestCancelRefunds(t *testing.T) {
	s := newTestState(t)

	s.Accounts.CreateAccount(10, "seller")
	s.Accounts.AddBalance(10, types.GetCoreAssetID(), big.NewInt(100))
	commit(t, s)

	id, _, err := s.Orders.Create(10, types.GetCoreAssetID(), big.NewInt(100), 2, big.NewInt(50))
	if err != nil {
		t.Fatalf("create order: %s", err)
	}

	if err := s.Orders.Cancel(id); err != nil {
		t.Fatalf("cancel: %s", err)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("conservation check: %s", err)
	}

	if balance := s.Accounts.GetBalance(10, types.GetCoreAssetID()); balance.String() != "100" {
		t.Fatalf("refunded balance is %s, expected 100", balance)
	}
	if locked := s.Accounts.GetAccount(10).GetOrdersLocked(); locked.Sign() != 0 {
		t.Fatalf("orders-locked stake is %s after cancel", locked)
	}
	if s.Orders.GetOrder(id) != nil {
		t.Fatal("cancelled order still on the book")
	}

	if err := s.Orders.Cancel(id); err == nil {
		t.Fatal("cancelling twice must fail")
	}
}

func TestOrdersSurviveCommit(t *testing.T) {
	s := newTestState(t)

	s.Accounts.CreateAccount(10, "seller")
	s.Accounts.AddBalance(10, 1, big.NewInt(100))
	commit(t, s)

	id, _, err := s.Orders.Create(10, 1, big.NewInt(100), 2, big.NewInt(50))
	if err != nil {
		t.Fatalf("create order: %s", err)
	}
	commit(t, s)

	order := s.Orders.GetOrder(id)
	if order == nil {
		t.Fatal("order lost across commit")
	}
	if order.GetSeller() != 10 || order.GetForSale().String() != "100" {
		t.Fatalf("reloaded order is wrong: seller %d selling %s", order.GetSeller(), order.GetForSale())
	}

	// Ids keep increasing across commits.
	s.Accounts.AddBalance(10, 3, big.NewInt(10))
	commit(t, s)
	next, _, err := s.Orders.Create(10, 3, big.NewInt(10), 4, big.NewInt(5))
	if err != nil {
		t.Fatalf("create order: %s", err)
	}
	if next <= id {
		t.Fatalf("order id %d did not advance past %d", next, id)
	}
}
