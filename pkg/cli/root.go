package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luochen1990/fhsval/pkg/cli/history"
	"github.com/luochen1990/fhsval/pkg/cli/validate"
	"github.com/luochen1990/fhsval/pkg/security"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fhsval",
	Short: "Flake FHS template validator",
	Long: `fhsval validates flake-fhs template directories: each template must
reference the canonical GitHub source and still evaluate correctly
when that reference is rewritten to a local checkout.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fhsval/config.yaml)")

	rootCmd.AddCommand(validate.Cmd)
	rootCmd.AddCommand(history.Cmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home + "/.fhsval")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("FHSVAL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	mode := security.ModeStandard
	if viper.IsSet("security.mode") && viper.GetString("security.mode") == "restricted" {
		mode = security.ModeRestricted
	}
	security.Initialize(mode)
}
