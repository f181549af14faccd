package helpers

import (
	"fmt"
	"math/big"
)

// UnitToRaw converts whole core-asset units to base units (multiplies input
// by 1e5).
func UnitToRaw(unit *big.Int) *big.Int {
	p := big.NewInt(100000)
	p.Mul(p, unit)

	return p
}

// StringToBigInt converts string to BigInt, panics on empty strings and errors
func StringToBigInt(s string) *big.Int {
	if s == "" {
		panic("string is empty")
	}

	b, success := big.NewInt(0).SetString(s, 10)
	if !success {
		panic(fmt.Sprintf("Cannot decode %s into big.Int", s))
	}

	return b
}

// CeilDiv divides a by b rounding up. b must be positive.
func CeilDiv(a, b *big.Int) *big.Int {
	result, mod := big.NewInt(0).DivMod(a, b, big.NewInt(0))
	if mod.Sign() == 1 {
		result.Add(result, big.NewInt(1))
	}

	return result
}

// IsValidBigInt verifies that string is a valid non-negative int
func IsValidBigInt(s string) bool {
	if s == "" {
		return false
	}

	b, success := big.NewInt(0).SetString(s, 10)
	if !success {
		return false
	}

	if b.Cmp(big.NewInt(0)) == -1 {
		return false
	}

	return true
}
