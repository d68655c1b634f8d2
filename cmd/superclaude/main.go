package main

import (
	"fmt"
	"os"

	"github.com/agiletec-inc/mindbase/internal/cli"
	"github.com/agiletec-inc/mindbase/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "superclaude",
		Short: "SuperClaude CLI - MindBase and Airis agent tooling",
		Long: `SuperClaude CLI installs and diagnoses the MindBase MCP servers.

Environment variables:
  MINDBASE_DATABASE_URL   Postgres connection URL
  OLLAMA_URL              Ollama base URL (default: http://host.docker.internal:11434)
  EMBEDDING_MODEL         Embedding model name (default: nomic-embed-text)`,
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(client.MCPCmd())
	rootCmd.AddCommand(client.DoctorCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
