package config

import (
	"bytes"
	"path/filepath"
	"text/template"

	tmos "github.com/tendermint/tendermint/libs/os"
)

var configTemplate *template.Template

func init() {
	var err error
	if configTemplate, err = template.New("configFileTemplate").Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't exist,
// and panics if it fails.
func EnsureRoot(rootDir string) {
	if err := tmos.EnsureDir(rootDir, 0700); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), 0700); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), 0700); err != nil {
		panic(err.Error())
	}

	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)

	// Write default config file if missing.
	if !tmos.FileExists(configFilePath) {
		writeDefaultConfigFile(configFilePath)
	}
}

func writeDefaultConfigFile(configFilePath string) {
	WriteConfigFile(configFilePath, DefaultConfig())
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
func WriteConfigFile(configFilePath string, config *Config) {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	tmos.MustWriteFile(configFilePath, buffer.Bytes(), 0644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

##### main base config options #####

# A custom human readable name for this node
moniker = "{{ .Moniker }}"

# Path to the JSON file containing the initial application state
genesis_file = "{{ js .Genesis }}"

# Database backend: goleveldb | memdb
db_backend = "{{ .DBBackend }}"

# Database directory
db_dir = "{{ js .DBPath }}"

# Output level for logging, including package level options
log_level = "{{ .LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log_format = "{{ .LogFormat }}"

# Path to file for logs, "stdout" by default
log_path = "{{ .LogPath }}"

##### state configuration options #####

# How many of the last state versions to keep on disk
keep_last_states = {{ .KeepLastStates }}

# Size of the state tree node cache
state_cache_size = {{ .StateCacheSize }}

##### chain configuration options #####

# Account whose authority mirrors the elected witness set
witness_account = {{ .WitnessAccount }}

# Account whose authority mirrors the elected committee
committee_account = {{ .CommitteeAccount }}

# Account whose authority follows the committee one interval behind
relaxed_committee_account = {{ .RelaxedCommitteeAccount }}
`
