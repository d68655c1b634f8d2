package mcpserver

import (
	"context"
	"fmt"

	"github.com/agiletec-inc/mindbase/internal/agent"
	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DeepResearcher runs the iterative research loop.
type DeepResearcher interface {
	Research(ctx context.Context, input agent.ResearchInput) (*domain.ResearchReport, error)
}

// RepoIndexer walks and indexes a repository tree.
type RepoIndexer interface {
	Index(ctx context.Context, input service.IndexInput) (*domain.RepoIndexReport, error)
}

// AirisServer exposes the agent tools via MCP.
type AirisServer struct {
	checker    *agent.ConfidenceChecker
	researcher DeepResearcher
	indexer    RepoIndexer
	learning   *agent.ErrorLearning
	server     *server.MCPServer
}

// NewAirisServer creates the MCP server and registers the agent tools.
func NewAirisServer(researcher DeepResearcher, indexer RepoIndexer, learning *agent.ErrorLearning) *AirisServer {
	s := &AirisServer{
		checker:    agent.NewConfidenceChecker(),
		researcher: researcher,
		indexer:    indexer,
		learning:   learning,
	}

	s.server = server.NewMCPServer(
		"airis-agent",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.registerTools()
	return s
}

func (s *AirisServer) registerTools() {
	confidenceTool := mcp.NewTool("airis_confidence_check",
		mcp.WithDescription("Score readiness to implement a task: duplicate check, architecture fit, docs, OSS reference and root cause"),
		mcp.WithString("feature_name",
			mcp.Required(),
			mcp.Description("Name of the feature or fix being assessed"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (discovered from test_file when omitted)"),
		),
		mcp.WithString("test_file",
			mcp.Description("Path of the failing or target test file"),
		),
		mcp.WithString("root_cause",
			mcp.Description("Root cause analysis text"),
		),
		mcp.WithString("proposed_solution",
			mcp.Description("Proposed solution text"),
		),
		mcp.WithString("proposed_technology",
			mcp.Description("Technology the solution introduces, if any"),
		),
		mcp.WithString("research_notes",
			mcp.Description("Notes from prior research"),
		),
		mcp.WithArray("oss_references",
			mcp.Description("URLs of open source implementations consulted"),
		),
		mcp.WithArray("documentation_urls",
			mcp.Description("Official documentation URLs consulted"),
		),
	)
	s.server.AddTool(confidenceTool, s.handleConfidenceCheck)

	researchTool := mcp.NewTool("airis_deep_research",
		mcp.WithDescription("Iteratively search project memories for a question until confidence is high, then store and report the findings"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Research question"),
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project whose memories are searched"),
		),
		mcp.WithNumber("max_iterations",
			mcp.Description("Iteration budget (default: 3)"),
		),
		mcp.WithBoolean("archive",
			mcp.Description("Archive the markdown report to object storage"),
		),
		mcp.WithString("complexity",
			mcp.Description("Task complexity sizing the finding token budget: simple, medium, or complex (default: medium)"),
		),
	)
	s.server.AddTool(researchTool, s.handleDeepResearch)

	indexTool := mcp.NewTool("airis_repo_index",
		mcp.WithDescription("Index a repository: chunk source files, store them and queue embeddings; unchanged files are skipped"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the index belongs to"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Repository root directory"),
		),
	)
	s.server.AddTool(indexTool, s.handleRepoIndex)

	recordErrorTool := mcp.NewTool("airis_record_error",
		mcp.WithDescription("Record an error and its fix as a solution memory so similar failures resolve to the stored fix"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the error belongs to"),
		),
		mcp.WithString("error_type",
			mcp.Description("Error class, e.g. AssertionError or TimeoutError"),
		),
		mcp.WithString("message",
			mcp.Description("Error message"),
		),
		mcp.WithString("test_name",
			mcp.Description("Failing test name"),
		),
		mcp.WithString("traceback",
			mcp.Description("Stack trace or traceback text"),
		),
		mcp.WithString("root_cause",
			mcp.Description("Root cause analysis"),
		),
		mcp.WithString("why_missed",
			mcp.Description("Why earlier checks missed this"),
		),
		mcp.WithString("solution",
			mcp.Description("Fix that resolved the error"),
		),
		mcp.WithString("prevention",
			mcp.Description("Checklist to prevent recurrence"),
		),
		mcp.WithString("lesson",
			mcp.Description("Lesson learned"),
		),
	)
	s.server.AddTool(recordErrorTool, s.handleRecordError)

	solutionTool := mcp.NewTool("airis_error_solution",
		mcp.WithDescription("Look up a previously recorded fix for a similar error signature"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project whose solution memories are searched"),
		),
		mcp.WithString("error_type",
			mcp.Description("Error class, e.g. AssertionError or TimeoutError"),
		),
		mcp.WithString("message",
			mcp.Description("Error message"),
		),
		mcp.WithString("test_name",
			mcp.Description("Failing test name"),
		),
	)
	s.server.AddTool(solutionTool, s.handleErrorSolution)

	statsTool := mcp.NewTool("airis_error_stats",
		mcp.WithDescription("Summarize recorded errors: totals, documented fixes, and reuse rate"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project whose error records are summarized"),
		),
	)
	s.server.AddTool(statsTool, s.handleErrorStats)
}

func (s *AirisServer) handleConfidenceCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	featureName, err := request.RequireString("feature_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := s.checker.Assess(agent.ConfidenceInput{
		FeatureName:        featureName,
		ProjectRoot:        request.GetString("project_root", ""),
		TestFile:           request.GetString("test_file", ""),
		RootCause:          request.GetString("root_cause", ""),
		ProposedSolution:   request.GetString("proposed_solution", ""),
		ProposedTechnology: request.GetString("proposed_technology", ""),
		ResearchNotes:      request.GetString("research_notes", ""),
		OSSReferences:      request.GetStringSlice("oss_references", nil),
		DocumentationURLs:  request.GetStringSlice("documentation_urls", nil),
	})

	return jsonResult(report)
}

func (s *AirisServer) handleDeepResearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.researcher.Research(ctx, agent.ResearchInput{
		Question:      question,
		Project:       project,
		MaxIterations: request.GetInt("max_iterations", 0),
		Archive:       request.GetBool("archive", false),
		Complexity:    agent.Complexity(request.GetString("complexity", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("research failed: %v", err)), nil
	}

	return jsonResult(report)
}

func (s *AirisServer) handleRepoIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.indexer.Index(ctx, service.IndexInput{
		Project: project,
		Root:    path,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repo index failed: %v", err)), nil
	}

	return jsonResult(report)
}

func (s *AirisServer) handleRecordError(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info := agent.ErrorInfo{
		Type:       request.GetString("error_type", ""),
		Message:    request.GetString("message", ""),
		TestName:   request.GetString("test_name", ""),
		Traceback:  request.GetString("traceback", ""),
		RootCause:  request.GetString("root_cause", ""),
		WhyMissed:  request.GetString("why_missed", ""),
		Solution:   request.GetString("solution", ""),
		Prevention: request.GetString("prevention", ""),
		Lesson:     request.GetString("lesson", ""),
	}

	if err := s.learning.For(project).RecordError(ctx, info); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to record error: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"recorded":  true,
		"signature": agent.Signature(info),
	})
}

func (s *AirisServer) handleErrorSolution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	solution, err := s.learning.For(project).GetSolution(ctx, agent.ErrorInfo{
		Type:     request.GetString("error_type", ""),
		Message:  request.GetString("message", ""),
		TestName: request.GetString("test_name", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("solution lookup failed: %v", err)), nil
	}
	if solution == nil {
		return jsonResult(map[string]any{"match": false})
	}

	return jsonResult(map[string]any{
		"match":    true,
		"solution": solution,
	})
}

func (s *AirisServer) handleErrorStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stats, err := s.learning.For(project).Statistics(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("statistics failed: %v", err)), nil
	}

	return jsonResult(stats)
}

// Serve runs the server over stdio until the client disconnects.
func (s *AirisServer) Serve() error {
	return server.ServeStdio(s.server)
}
