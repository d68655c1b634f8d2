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
		Use:     "mindbased",
		Short:   "MindBase memory server",
		Long:    "MindBase daemon serving the memory MCP tools and the HTTP memory API",
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
