package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"casewise/internal/history"
	mcpserver "casewise/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing case review and decision intelligence tools for AI agents.`,
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

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "casewise MCP server started on stdio (db=%s)\n", cfg.DatabasePath())

		srv := mcpserver.NewServer(st.cases, st.engine, st.history, red)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
