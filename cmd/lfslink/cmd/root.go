package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lfslink",
	Short: "lfslink shares large binary objects across working copies",
	Long: `lfslink maintains a deduplicated, content-addressed store of large binary
objects on a local filesystem and shares it safely across working copies.

Working files are hard links into the store, so checking out the same large
asset in ten clones costs one copy of its bytes. Objects missing locally are
borrowed from sibling repositories through alternates. The store is kept
read-only and permission-audited so no working copy can corrupt another.
`,
}

var config *CLIConfig

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
	addLogLevelFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if os.Getenv("LFSLINK_CONFIG") != "" {
		// Use config file from the flag.
		viper.SetConfigFile(os.Getenv("LFSLINK_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.lfslink")
		viper.AddConfigPath("/etc/lfslink")
		viper.SetConfigName("lfslink")
	}

	viper.AutomaticEnv() // read in environment variables that match
	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}
	var err error
	config, err = newConfig()
	if err != nil {
		logFatalln(err)
	}
	config.setLfslinkParams(&lfslinkFlags)
}
