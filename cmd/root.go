package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "casewise",
	Short: "Decision intelligence for regulatory case review",
	Long: `Casewise tracks compliance case files and computes decision
intelligence over them: evidence signals, rule evaluation, gap and bias
detection, and an explainable confidence score with full history.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".casewise.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
