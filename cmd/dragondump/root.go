package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "dragondump",
	Short: "Inspect Dragon/CoCo cassette tape images",
	Long: `dragondump is a commandline tool for inspecting Dragon and
TRS-80 Color Computer cassette (.cas) images block by block.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default none)")
}

// initConfig reads an optional config file named by --config. Nothing
// in this CLI currently reads settings back out of viper; the hook
// exists so a future subcommand can add persistent defaults (verbose
// output, a default tape directory) without touching this wiring.
func initConfig() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "dragondump: reading config %s: %v\n", cfgFile, err)
		os.Exit(-1)
	}
}

// Execute adds all child commands to rootCmd and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
