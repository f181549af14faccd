package utils

import (
	"os"
	"path/filepath"
)

var (
	MeridianHome   string
	MeridianConfig string
)

func GetMeridianHome() string {
	if MeridianHome != "" {
		return MeridianHome
	}

	home := os.Getenv("MERIDIANHOME")

	if home != "" {
		return home
	}

	return os.ExpandEnv(filepath.Join("$HOME", ".meridian"))
}

func GetMeridianConfigPath() string {
	if MeridianConfig != "" {
		return MeridianConfig
	}

	return GetMeridianHome() + "/config/config.toml"
}
