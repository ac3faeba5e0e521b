package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"casewise/internal/audit"
	"casewise/internal/history"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Apply the retention policy to intelligence history",
	Long:  `Clears evidence snapshots and intelligence payloads older than the configured retention windows. Scores, bands, and evidence hashes are never touched.`,
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

		store := history.NewStore(database)
		ctx := context.Background()

		res, err := store.ApplyRetention(ctx, time.Now().UTC(),
			cfg.Retention.EvidenceDays, cfg.Retention.PayloadDays)
		if err != nil {
			return fmt.Errorf("applying retention: %w", err)
		}

		_ = audit.NewStore(database).Log(ctx, audit.Entry{
			ActorType: audit.ActorSystem,
			ActorRole: "operator",
			Action:    audit.ActionRetentionApplied,
			Summary:   fmt.Sprintf("retention sweep cleared %d snapshot(s) and %d payload(s)", res.SnapshotsCleared, res.PayloadsCleared),
		})

		fmt.Fprintf(os.Stderr, "Cleared %d evidence snapshot(s) and %d intelligence payload(s)\n",
			res.SnapshotsCleared, res.PayloadsCleared)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
