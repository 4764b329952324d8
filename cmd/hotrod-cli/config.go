package main

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/renameio"
)

// cliConfig is the on-disk shape of the CLI's config file, loaded with
// goccy/go-yaml. Every field can be overridden by a command-line flag;
// flags always win over the file.
type cliConfig struct {
	Servers []string      `yaml:"servers"`
	Cache   string        `yaml:"cache"`
	Timeout time.Duration `yaml:"timeout"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Servers: []string{"127.0.0.1:11222"},
		Cache:   "",
		Timeout: 10 * time.Second,
	}
}

// loadCLIConfig reads path if present, falling back to the default config
// when the file does not exist yet.
func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cliConfig{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

// scaffoldCLIConfig atomically writes the default config to path as YAML,
// using renameio so a crash mid-write can never leave a truncated file
// behind.
func scaffoldCLIConfig(path string) error {
	data, err := yaml.Marshal(defaultCLIConfig())
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o600)
}
