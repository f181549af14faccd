package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	db "github.com/tendermint/tm-db"

	eventsdb "github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/maintenance"
	"github.com/meridian-chain/meridian-go-node/core/state"
	"github.com/meridian-chain/meridian-go-node/core/types"
	"github.com/meridian-chain/meridian-go-node/log"
)

var Maintain = &cobra.Command{
	Use:   "maintain",
	Short: "Perform one maintenance pass over the stored state",
	RunE:  maintain,
}

func init() {
	Maintain.Flags().Uint64("height", 0, "state version to start from (default: latest)")
	Maintain.Flags().Uint64("time", 0, "maintenance timestamp in unix seconds")
}

func maintain(cmd *cobra.Command, args []string) error {
	log.InitLog(cfg)

	height, err := cmd.Flags().GetUint64("height")
	if err != nil {
		return err
	}

	now, err := cmd.Flags().GetUint64("time")
	if err != nil {
		return err
	}
	if now == 0 {
		return errors.New("--time is required: pass the block timestamp in unix seconds")
	}

	stateDB, err := db.NewDB("state", db.BackendType(cfg.DBBackend), cfg.DBDir())
	if err != nil {
		return err
	}
	defer stateDB.Close()

	eventsDB, err := db.NewDB("events", db.BackendType(cfg.DBBackend), cfg.DBDir())
	if err != nil {
		return err
	}
	defer eventsDB.Close()

	currentState, err := state.NewState(height, stateDB, eventsdb.NewEventsStore(eventsDB), cfg.StateCacheSize, cfg.KeepLastStates, 0)
	if err != nil {
		return err
	}

	engine := maintenance.NewEngine(maintenance.Config{
		CoreAsset:               types.GetCoreAssetID(),
		WitnessAccount:          types.AccountID(cfg.WitnessAccount),
		CommitteeAccount:        types.AccountID(cfg.CommitteeAccount),
		RelaxedCommitteeAccount: types.AccountID(cfg.RelaxedCommitteeAccount),
	}, currentState, log.With("cmd", "maintain"))

	hash, err := engine.Run(now)
	if err != nil {
		return err
	}

	fmt.Printf("Maintenance done at version %d, hash %s\n", currentState.Height(), hex.EncodeToString(hash))

	return nil
}
