package main

import (
	"fmt"
	"os"

	"github.com/agiletec-inc/mindbase/internal/cli"
	"github.com/agiletec-inc/mindbase/internal/cli/admin"
	"github.com/agiletec-inc/mindbase/internal/mcpserver"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	mcpserver.Version = version

	rootCmd := &cobra.Command{
		Use:     "airisd",
		Short:   "Airis agent server",
		Long:    "Airis daemon serving the confidence-check, deep-research, and repo-index MCP tools",
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.AgentServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
