package cmd

import (
	"github.com/spf13/cobra"

	"casewise/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize casewise configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure casewise and generates a .casewise.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
