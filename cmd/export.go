package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"casewise/internal/audit"
	"casewise/internal/history"
)

var (
	exportHTML bool
	exportSafe bool
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <case-id>",
	Short: "Export a case's intelligence and history as a shareable bundle",
	Long:  `Builds an export bundle with the current intelligence, the run history, and evidence hashes. Safe mode redacts free-text evidence for sharing outside the review team.`,
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
		red := history.NewRedactor(cfg.SafeModePatterns)
		ctx := context.Background()

		opts := history.DefaultExportOptions()
		opts.Role = "operator"
		opts.SafeMode = exportSafe
		opts.RetentionPolicy = fmt.Sprintf("evidence_days=%d payload_days=%d",
			cfg.Retention.EvidenceDays, cfg.Retention.PayloadDays)

		bundle, err := history.BuildBundle(ctx, st.cases, st.history, red, args[0], opts)
		if err != nil {
			return fmt.Errorf("building export: %w", err)
		}

		var data []byte
		if exportHTML {
			if data, err = bundle.HTML(); err != nil {
				return fmt.Errorf("rendering html: %w", err)
			}
		} else {
			if data, err = json.MarshalIndent(bundle, "", "  "); err != nil {
				return fmt.Errorf("encoding bundle: %w", err)
			}
			data = append(data, '\n')
		}

		_ = st.audit.Log(ctx, audit.Entry{
			ActorType: audit.ActorUser,
			ActorRole: "operator",
			Action:    audit.ActionExportGenerated,
			CaseID:    args[0],
			Summary:   "intelligence export generated",
		})

		if exportOut == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", exportOut, err)
		}
		fmt.Fprintf(os.Stderr, "Export written to %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportHTML, "html", false, "Render the bundle as HTML instead of JSON")
	exportCmd.Flags().BoolVar(&exportSafe, "safe", false, "Redact free-text evidence from the bundle")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
