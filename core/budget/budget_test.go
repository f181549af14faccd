package budget

import (
	"math/big"
	"testing"
)

func TestTotalBudget(t *testing.T) {
	cases := []struct {
		name     string
		reserve  *big.Int
		dt       uint64
		num      uint64
		bits     uint
		expected string
	}{
		{"zero dt", big.NewInt(1000000), 0, 17, 32, "0"},
		{"zero reserve", big.NewInt(0), 86400, 17, 32, "0"},
		{"rounds up", big.NewInt(1000000), 1, 17, 32, "1"},
		{"exact", big.NewInt(1 << 20), 1, 1, 20, "1"},
		{"clamped to reserve", big.NewInt(100), 1 << 40, 1 << 20, 8, "100"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total := TotalBudget(tc.reserve, tc.dt, tc.num, tc.bits)
			if total.String() != tc.expected {
				t.Fatalf("total budget is %s, expected %s", total, tc.expected)
			}
		})
	}
}

func TestTotalBudgetNeverStallsOnTinyReserve(t *testing.T) {
	// A one-unit reserve with any positive rate still releases one unit.
	total := TotalBudget(big.NewInt(1), 1, 1, 62)
	if total.String() != "1" {
		t.Fatalf("total budget is %s, expected 1", total)
	}
}

func TestRequestedWitnessBudget(t *testing.T) {
	cases := []struct {
		name          string
		payPerBlock   int64
		secsToMaint   uint64
		blockInterval uint64
		expected      string
	}{
		{"exact blocks", 10, 60, 5, "120"},
		{"partial trailing block pays full", 10, 61, 5, "130"},
		{"single second", 10, 1, 5, "10"},
		{"zero pay", 0, 60, 5, "0"},
		{"zero time", 10, 0, 5, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requested := RequestedWitnessBudget(big.NewInt(tc.payPerBlock), tc.secsToMaint, tc.blockInterval)
			if requested.String() != tc.expected {
				t.Fatalf("requested witness budget is %s, expected %s", requested, tc.expected)
			}
		})
	}
}

func TestRequestedWorkerBudget(t *testing.T) {
	cases := []struct {
		name     string
		perDay   int64
		dt       uint64
		expected string
	}{
		{"full day", 86400, 86400, "86400"},
		{"half day", 1000, 43200, "500"},
		{"multiply before divide", 1, 43200, "0"},
		{"zero dt", 1000, 0, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requested := RequestedWorkerBudget(big.NewInt(tc.perDay), tc.dt)
			if requested.String() != tc.expected {
				t.Fatalf("requested worker budget is %s, expected %s", requested, tc.expected)
			}
		})
	}
}

func TestProRatedPayAvoidsIntermediateOverflow(t *testing.T) {
	// daily * dt overflows 64 bits; the wide intermediate must not.
	daily, _ := big.NewInt(0).SetString("1000000000000000", 10)
	pay := ProRatedPay(daily, 86400*30)

	expected := big.NewInt(0).Mul(daily, big.NewInt(30))
	if pay.Cmp(expected) != 0 {
		t.Fatalf("pro-rated pay is %s, expected %s", pay, expected)
	}
}

func TestProRatedPayPartialDay(t *testing.T) {
	pay := ProRatedPay(big.NewInt(86401), 43200)
	if pay.String() != "43200" {
		t.Fatalf("pro-rated pay is %s, expected 43200", pay)
	}
}

func TestMin(t *testing.T) {
	a, b := big.NewInt(5), big.NewInt(7)
	if Min(a, b).String() != "5" {
		t.Fatal("min of 5 and 7 should be 5")
	}
	if Min(b, a).String() != "5" {
		t.Fatal("min of 7 and 5 should be 5")
	}

	min := Min(a, b)
	min.SetInt64(0)
	if a.String() != "5" {
		t.Fatal("min must not alias its arguments")
	}
}
