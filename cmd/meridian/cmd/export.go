package cmd

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendermint/go-amino"
	db "github.com/tendermint/tm-db"

	"github.com/meridian-chain/meridian-go-node/core/state"
)

var ExportCommand = &cobra.Command{
	Use:   "export",
	Short: "Export application state to JSON",
	RunE:  export,
}

func init() {
	ExportCommand.Flags().Uint64("height", 0, "state version to export")
	ExportCommand.Flags().Bool("indent", false, "indent the JSON output")
	ExportCommand.Flags().String("output", "", "write to a file instead of stdout")
}

func export(cmd *cobra.Command, args []string) error {
	height, err := cmd.Flags().GetUint64("height")
	if err != nil {
		return err
	}

	indent, err := cmd.Flags().GetBool("indent")
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	ldb, err := db.NewGoLevelDB("state", cfg.DBDir())
	if err != nil {
		log.Panicf("Cannot load db: %s", err)
	}

	currentState, err := state.NewCheckStateAtHeight(height, ldb)
	if err != nil {
		log.Panicf("Cannot open state at height %d: %s", height, err)
	}

	log.Println("Start exporting...")
	exportTimeStart := time.Now()
	appState := currentState.Export()
	log.Printf("State has been exported. Took %s", time.Since(exportTimeStart))

	if err := appState.Verify(); err != nil {
		log.Fatalf("Failed to validate: %s", err)
	}
	log.Println("Verify state OK")

	var jsonBytes []byte
	if indent {
		jsonBytes, err = amino.NewCodec().MarshalJSONIndent(appState, "", "	")
	} else {
		jsonBytes, err = amino.NewCodec().MarshalJSON(appState)
	}
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(append(jsonBytes, '\n'))
		return err
	}

	return os.WriteFile(output, jsonBytes, 0644)
}
