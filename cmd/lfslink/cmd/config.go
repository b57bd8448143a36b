package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLIConfig describes the CLI configuration.
type CLIConfig struct {
	// bug in viper? Need to keep names of fields the same as the serialized names..
	Store      string   `json:"store" yaml:"store"`           // Object store root override
	Alternates []string `json:"alternates" yaml:"alternates"` // Additional alternate repositories
	LogLevel   string   `json:"loglevel" yaml:"loglevel"`     // Default log level
}

func newConfig() (*CLIConfig, error) {
	var config CLIConfig
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *CLIConfig) setLfslinkParams(flags *flagsT) {
	if flags.store.root == "" {
		flags.store.root = c.Store
	}
	flags.alternates.weak = append(flags.alternates.weak, c.Alternates...)
	if c.LogLevel != "" && flags.root.logLevel == "" {
		flags.root.logLevel = c.LogLevel
	}
}

// configCmd represents the config related commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage a config",
	Long: `Commands to manage the lfslink CLI config.

Configuration for lfslink is the common set of flags that are needed for most commands and do not change across runs,
analogous to "git config ...". `,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
