// Package cmd implements the dlpsit CLI, following the teacher's
// cobra+viper root command structure (cmd/root.go's cobra.OnInitialize,
// env-prefix binding, persistent --config flag) minus its bubbletea/huh
// terminal UI, which has no role in a scanning pipeline's command surface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitforge/dlpsit/internal/apperr"
	"github.com/sitforge/dlpsit/internal/config"
)

var cfgFile string
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "dlpsit",
	Short: "Scan files for sensitive information and manage SIT rule packages",
	Long: "dlpsit scans files and archives for sensitive information using a pluggable\n" +
		"entity-recognition engine, and manages sensitive-information-type (SIT)\n" +
		"definitions exportable as Microsoft Purview-compatible rule packages.",
}

// Execute runs the root command; main calls this and exits non-zero on
// error. UserError messages are already written in plain, user-facing
// language, so they're printed as-is; anything else gets an "error:"
// prefix to mark it as unexpected.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if apperr.IsUser(err) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config/dlpsit.yaml or $HOME/dlpsit.yaml)")

	rootCmd.AddCommand(scanCmd, sitCmd, rulepackCmd)
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		cobra.CheckErr(err)
		return
	}
	cfg = loaded
}
