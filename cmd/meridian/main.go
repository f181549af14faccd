package main

import (
	"github.com/meridian-chain/meridian-go-node/cmd/meridian/cmd"
	"github.com/meridian-chain/meridian-go-node/cmd/utils"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.PersistentFlags().StringVar(&utils.MeridianHome, "home-dir", "", "base dir (default is $HOME/.meridian)")
	rootCmd.PersistentFlags().StringVar(&utils.MeridianConfig, "config", "", "path to config.toml")

	rootCmd.AddCommand(
		cmd.Maintain,
		cmd.ExportCommand,
		cmd.VerifyGenesis,
		cmd.Version)

	if err := cmd.RootCmd.Execute(); err != nil {
		panic(err)
	}
}
