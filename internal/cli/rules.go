package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studytime-tracker/studytime/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesSeedCmd)
	rulesCmd.AddCommand(rulesListCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage reward rules",
}

var rulesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default reward rule set",
	Long: `Create the four standard household rules: homework completion,
study-time threshold, single task completion, and the weekly streak bonus.
Running seed twice creates duplicate rules; deactivate or delete the old
set first.`,
	RunE: runRulesSeed,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured reward rules",
	RunE:  runRulesList,
}

func runRulesSeed(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	rules, err := db.SeedDefaultRules(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Seeded default rules (%d total configured)\n", len(rules))
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	rules, err := db.ListRules(context.Background(), false)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println("No reward rules configured. Run 'studytime rules seed'.")
		return nil
	}
	for _, r := range rules {
		state := "active"
		if !r.IsActive {
			state = "inactive"
		}
		fmt.Fprintf(os.Stdout, "%3d  %-20s %4d min  %-8s %s\n",
			r.ID, r.Kind, r.RewardMinutes, state, r.Description)
	}
	return nil
}

// openStore opens the SQLite store at the configured data directory.
func openStore(cmd *cobra.Command) (*sqlite.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, err
	}
	return sqlite.Open(cfg.Storage.Dir)
}
