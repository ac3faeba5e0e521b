package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"casewise/internal/progress"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute intelligence for every case",
	Long:  `Runs the intelligence pipeline over all cases, useful after upgrading rule packs or restoring a database.`,
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
		ctx := context.Background()

		ids, err := st.cases.ListCaseIDs(ctx)
		if err != nil {
			return fmt.Errorf("listing cases: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "No cases to recompute.")
			return nil
		}

		reporter := progress.NewReporter()
		reporter.Start(len(ids))

		failed := 0
		for i, id := range ids {
			reporter.Update(i+1, fmt.Sprintf("case %s", id))
			if _, err := st.engine.Recompute(ctx, id, "backfill", "system", true); err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "case %s: %v\n", id, err)
			}
		}
		reporter.Finish()

		fmt.Fprintf(os.Stderr, "Recomputed %d case(s), %d failure(s)\n", len(ids)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d case(s) failed to recompute", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
