package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/meridian-chain/meridian-go-node/cmd/utils"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName  = "config.toml"
	defaultGenesisJSONName = "genesis.json"
)

var (
	defaultConfigFilePath  = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultGenesisJSONPath = filepath.Join(defaultConfigDir, defaultGenesisJSONName)
)

func DefaultConfig() *Config {
	return &Config{
		Moniker:        defaultMoniker,
		Genesis:        defaultGenesisJSONPath,
		LogLevel:       DefaultLogLevel(),
		LogFormat:      LogFormatPlain,
		LogPath:        "stdout",
		DBBackend:      "goleveldb",
		DBPath:         defaultDataDir,
		KeepLastStates: 120,
		StateCacheSize: 1000000,

		WitnessAccount:          1,
		CommitteeAccount:        2,
		RelaxedCommitteeAccount: 3,
	}
}

func GetConfig() *Config {
	cfg := DefaultConfig()

	cfg.SetRoot(utils.GetMeridianHome())
	EnsureRoot(utils.GetMeridianHome())

	return cfg
}

// Config defines the top level configuration for a Meridian node
type Config struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Path to the JSON file containing the initial application state
	Genesis string `mapstructure:"genesis_file"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Where to write the log: 'stdout' or a file path
	LogPath string `mapstructure:"log_path"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// How many of the last state versions to keep on disk
	KeepLastStates int64 `mapstructure:"keep_last_states"`

	// Size of the state tree node cache
	StateCacheSize int `mapstructure:"state_cache_size"`

	// Well-known aggregate accounts whose authority the elections rewrite
	WitnessAccount          uint64 `mapstructure:"witness_account"`
	CommitteeAccount        uint64 `mapstructure:"committee_account"`
	RelaxedCommitteeAccount uint64 `mapstructure:"relaxed_committee_account"`
}

// SetRoot sets the RootDir the relative paths resolve against
func (cfg *Config) SetRoot(root string) *Config {
	cfg.RootDir = root
	return cfg
}

// GenesisFile returns the full path to the genesis.json file
func (cfg *Config) GenesisFile() string {
	return rootify(cfg.Genesis, cfg.RootDir)
}

// DBDir returns the full path to the database directory
func (cfg *Config) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// DefaultLogLevel returns a default log level of "info"
func DefaultLogLevel() string {
	return fmt.Sprintf("maintenance:info,state:info,*:%s", "error")
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
