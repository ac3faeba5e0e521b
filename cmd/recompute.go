package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var recomputeRole string

var recomputeCmd = &cobra.Command{
	Use:   "recompute <case-id>",
	Short: "Recompute decision intelligence for one case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		st := buildStack(cfg, database)

		outcome, err := st.engine.Recompute(context.Background(), args[0], "manual", recomputeRole, true)
		if err != nil {
			return fmt.Errorf("recomputing case %s: %w", args[0], err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputeRole, "role", "operator", "Actor role recorded in history and audit")
	rootCmd.AddCommand(recomputeCmd)
}
