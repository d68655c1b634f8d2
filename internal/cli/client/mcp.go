// Package client implements the superclaude client commands.
package client

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// ServerSpec describes an installable MCP server.
type ServerSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Transport   string   `json:"transport"`
	Image       string   `json:"image"`
	Env         []string `json:"env,omitempty"`
}

// MCPServers is the registry of servers superclaude knows how to install.
var MCPServers = map[string]ServerSpec{
	"mindbase": {
		Name:        "mindbase",
		Description: "Persistent memory store with semantic search",
		Transport:   "stdio",
		Image:       "ghcr.io/agiletec-inc/mindbase-mcp",
		Env:         []string{"MINDBASE_DATABASE_URL", "OLLAMA_URL", "EMBEDDING_MODEL"},
	},
	"airis-agent": {
		Name:        "airis-agent",
		Description: "Confidence checks, deep research, and repository indexing",
		Transport:   "stdio",
		Image:       "ghcr.io/agiletec-inc/airis-agent:latest",
		Env:         []string{"MINDBASE_DATABASE_URL", "OLLAMA_URL", "EMBEDDING_MODEL"},
	},
}

// Shims for tests.
var (
	lookPath   = exec.LookPath
	runCommand = func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).CombinedOutput()
	}
)

// MCPCmd creates the mcp command.
func MCPCmd() *cobra.Command {
	var (
		servers  string
		listOnly bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Install MCP servers into Claude Code",
		Long:  "Registers the Docker-packaged MCP servers with the claude CLI.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listOnly {
				printRegistry(cmd)
				return nil
			}
			return runMCPInstall(cmd, servers)
		},
	}

	cmd.Flags().StringVar(&servers, "servers", "", "Comma-separated server names to install (default: all)")
	cmd.Flags().BoolVar(&listOnly, "list", false, "List known servers without installing")

	return cmd
}

func printRegistry(cmd *cobra.Command) {
	for _, name := range registryNames() {
		spec := MCPServers[name]
		cmd.Printf("%-14s %s\n", spec.Name, spec.Description)
		cmd.Printf("%-14s transport=%s image=%s\n", "", spec.Transport, spec.Image)
	}
}

func registryNames() []string {
	names := make([]string, 0, len(MCPServers))
	for name := range MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runMCPInstall(cmd *cobra.Command, servers string) error {
	specs, err := resolveServers(servers)
	if err != nil {
		return err
	}

	if errs := checkPrerequisites(); len(errs) > 0 {
		for _, e := range errs {
			cmd.PrintErrf("missing prerequisite: %v\n", e)
		}
		return fmt.Errorf("prerequisites not met")
	}

	for _, spec := range specs {
		if err := registerServer(spec); err != nil {
			return fmt.Errorf("failed to register %s: %w", spec.Name, err)
		}
		cmd.Printf("registered %s (%s)\n", spec.Name, spec.Image)
	}

	return nil
}

func resolveServers(servers string) ([]ServerSpec, error) {
	var names []string
	if servers == "" {
		names = registryNames()
	} else {
		for _, name := range strings.Split(servers, ",") {
			names = append(names, strings.TrimSpace(name))
		}
	}

	specs := make([]ServerSpec, 0, len(names))
	for _, name := range names {
		spec, ok := MCPServers[name]
		if !ok {
			return nil, fmt.Errorf("unknown server %q (known: %s)", name, strings.Join(registryNames(), ", "))
		}
		specs = append(specs, spec)
	}

	return specs, nil
}

func checkPrerequisites() []error {
	var errs []error
	for _, binary := range []string{"docker", "claude"} {
		if _, err := lookPath(binary); err != nil {
			errs = append(errs, fmt.Errorf("%s not found in PATH", binary))
		}
	}
	return errs
}

func registerServer(spec ServerSpec) error {
	args := buildAddArgs(spec)
	output, err := runCommand("claude", args...)
	if err != nil {
		return fmt.Errorf("claude mcp add failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildAddArgs builds the claude CLI arguments registering a server whose
// stdio transport runs inside a docker container. Environment variables set
// in the caller's shell are forwarded into the container.
func buildAddArgs(spec ServerSpec) []string {
	args := []string{"mcp", "add", spec.Name, "--scope", "user", "--", "docker", "run", "-i", "--rm", "--pull", "always"}
	for _, key := range spec.Env {
		if value := os.Getenv(key); value != "" {
			args = append(args, "-e", fmt.Sprintf("%s=%s", key, value))
		}
	}
	args = append(args, spec.Image)
	return args
}
