package cmd

import (
	"strings"
	"testing"

	"github.com/meridian-chain/meridian-go-node/config"
)

func TestMaintainRequiresExplicitTime(t *testing.T) {
	cfg = config.DefaultConfig()

	err := maintain(Maintain, nil)
	if err == nil {
		t.Fatal("maintain without --time must fail")
	}
	if !strings.Contains(err.Error(), "--time is required") {
		t.Fatalf("unexpected error: %s", err)
	}
}
