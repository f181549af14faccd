package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendermint/go-amino"

	"github.com/meridian-chain/meridian-go-node/core/types"
)

var VerifyGenesis = &cobra.Command{
	Use:   "verify_genesis",
	Short: "Verify genesis file",
	RunE:  verifyGenesis,
}

func verifyGenesis(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(cfg.GenesisFile())
	if err != nil {
		return err
	}

	var genesisState types.AppState
	if err := amino.UnmarshalJSON(data, &genesisState); err != nil {
		return err
	}

	if err := genesisState.Verify(); err != nil {
		return err
	}

	fmt.Printf("Genesis is ok\n")

	return nil
}
