package cmd

import (
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/spf13/cobra"
)

var configGen = &cobra.Command{
	Use:   "generate",
	Short: "Generate a config",
	Long:  "Generate a config to use for lfslink. Config file will be placed in $HOME/.lfslink/lfslink.yaml",
	Run: func(cmd *cobra.Command, args []string) {
		user, err := user.Current()
		if user == nil || err != nil {
			wrapFatalln("Could not get home directory for user", nil)
			return
		}
		config := CLIConfig{
			Store:      lfslinkFlags.store.root,
			Alternates: lfslinkFlags.alternates.weak,
			LogLevel:   lfslinkFlags.effectiveLogLevel(),
		}
		o, e := yaml.Marshal(config)
		if e != nil {
			wrapFatalln("serialize config to yaml", e)
			return
		}
		_ = os.Mkdir(filepath.Join(user.HomeDir, ".lfslink"), 0700)
		err = ioutil.WriteFile(filepath.Join(user.HomeDir, ".lfslink", "lfslink.yaml"), o, 0600)
		if err != nil {
			wrapFatalln("write config file", err)
			return
		}
		infoLogger.Println("wrote", filepath.Join(user.HomeDir, ".lfslink", "lfslink.yaml"))
	},
}

func init() {
	addRepoFlags(configGen)

	configCmd.AddCommand(configGen)
}
