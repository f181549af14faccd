package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meridian-chain/meridian-go-node/cmd/utils"
	"github.com/meridian-chain/meridian-go-node/config"
)

var cfg *config.Config

var RootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian Go Node",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		v := viper.New()
		v.SetConfigFile(utils.GetMeridianConfigPath())
		cfg = config.GetConfig()

		if err := v.ReadInConfig(); err != nil {
			panic(err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			panic(err)
		}

		if cfg.KeepLastStates < 1 {
			panic("keep_last_states field should be greater than 0")
		}
	},
}
