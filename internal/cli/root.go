// Package cli implements the studytime command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "studytime",
	Short: "Household study-incentive tracker",
	Long: `studytime tracks children's study tasks and converts approved effort
into screen-time minutes through configurable reward rules. Parents
approve tasks; the reward engine grants activity minutes into each
child's wallet, capped per day.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config.toml (default ~/.studytime/config.toml)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the studytime version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("studytime " + Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
