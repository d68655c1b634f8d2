package agent

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/agiletec-inc/mindbase/internal/telemetry"
)

const (
	defaultMaxIterations    = 3
	defaultVariantsPerRound = 4
	findingsPerQuery        = 5

	// researchTargetConfidence stops iteration once reached.
	researchTargetConfidence = domain.ConfidenceHighThreshold

	// minFindingScore filters out weak matches.
	minFindingScore = 0.01
)

// ReportArchiver persists research reports. Optional; a nil archiver
// disables archival.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, key string, content []byte) (string, error)
}

// ResearchInput describes a deep-research request.
type ResearchInput struct {
	Question      string
	Project       string
	MaxIterations int
	Archive       bool

	// Complexity sizes the token budget the findings may consume.
	// Unknown values fall back to medium.
	Complexity Complexity
}

// Researcher runs iterative memory research: fan out query variants,
// collect findings, iterate until confident or out of budget.
type Researcher struct {
	searcher ReflexionSearcher
	memories ReflexionMemories
	archiver ReportArchiver
	executor *ParallelExecutor
}

// NewResearcher creates a new Researcher instance
func NewResearcher(searcher ReflexionSearcher, memories ReflexionMemories, archiver ReportArchiver) *Researcher {
	return &Researcher{
		searcher: searcher,
		memories: memories,
		archiver: archiver,
		executor: NewParallelExecutor(),
	}
}

// Research runs the iterative loop and returns a full report. The
// report is stored as a research memory; archival failures are logged
// but do not fail the run.
func (r *Researcher) Research(ctx context.Context, input ResearchInput) (*domain.ResearchReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "Researcher.Research", telemetry.SpanAttributes{
		Project:   input.Project,
		Operation: "deep_research",
	})
	defer span.End()

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptySearchQuery
	}
	if input.Project == "" {
		return nil, domain.ErrMissingRequiredField
	}

	maxIterations := input.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	report := &domain.ResearchReport{
		Question:  question,
		Project:   input.Project,
		StartedAt: time.Now().UTC(),
	}

	budget := NewTokenBudget(input.Complexity)
	seen := map[string]struct{}{}
	queries := []string{question}

	for iteration := 0; iteration < maxIterations; iteration++ {
		report.Iterations = iteration + 1

		findings := r.runQueries(ctx, input.Project, queries)
		added := 0
		outOfBudget := false
		for _, f := range findings {
			if _, dup := seen[f.MemoryID]; dup {
				continue
			}
			if err := budget.Spend(EstimateTokens(f.Snippet)); err != nil {
				outOfBudget = true
				break
			}
			seen[f.MemoryID] = struct{}{}
			report.Findings = append(report.Findings, f)
			added++
		}

		report.Confidence = researchConfidence(report.Findings)
		if outOfBudget {
			log.Printf("research: %s token budget exhausted after %d findings", budget.Complexity(), len(report.Findings))
			break
		}
		if report.Confidence >= researchTargetConfidence {
			break
		}
		// Nothing new surfaced, more iterations will not help.
		if added == 0 && iteration > 0 {
			break
		}

		queries = nextQueries(question)
		if len(queries) == 0 {
			break
		}
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Score > report.Findings[j].Score
	})

	report.Level = domain.LevelForScore(report.Confidence)
	report.FinishedAt = time.Now().UTC()
	report.Markdown = renderResearchMarkdown(report)

	if input.Archive && r.archiver != nil {
		key := fmt.Sprintf("research/%s/%s.md", input.Project, report.StartedAt.Format("20060102T150405Z"))
		archiveKey, err := r.archiver.ArchiveReport(ctx, key, []byte(report.Markdown))
		if err != nil {
			log.Printf("research: report archival failed: %v", err)
		} else {
			report.ArchiveKey = archiveKey
		}
	}

	if _, err := r.memories.Store(ctx, service.StoreInput{
		Project: input.Project,
		Kind:    domain.MemoryKindResearch,
		Content: report.Markdown,
		Tags:    []string{"research"},
		Metadata: map[string]string{
			"question":   question,
			"confidence": fmt.Sprintf("%.2f", report.Confidence),
		},
	}); err != nil {
		return nil, err
	}

	return report, nil
}

// runQueries fans the queries out through the parallel executor and
// flattens the per-query findings.
func (r *Researcher) runQueries(ctx context.Context, project string, queries []string) []domain.ResearchFinding {
	tasks := make([]*Task, 0, len(queries))
	for i, query := range queries {
		q := query
		tasks = append(tasks, NewTask(
			fmt.Sprintf("query-%d", i),
			q,
			func(taskCtx context.Context) (any, error) {
				out, err := r.searcher.Search(taskCtx, service.SearchInput{
					Query:   q,
					Mode:    service.SearchModeHybrid,
					Filters: service.SearchFilters{Project: project},
					Limit:   findingsPerQuery,
				})
				if err != nil {
					return nil, err
				}
				return out, nil
			},
		))
	}

	plan, err := r.executor.Plan(tasks)
	if err != nil {
		return nil
	}
	results := r.executor.Execute(ctx, plan)

	var findings []domain.ResearchFinding
	for _, task := range tasks {
		raw, ok := results[task.ID]
		if !ok || raw == nil {
			if task.Err != nil {
				log.Printf("research: query %q failed: %v", task.Description, task.Err)
			}
			continue
		}
		out := raw.(*service.SearchOutput)
		for _, result := range out.Results {
			if result.Score < minFindingScore {
				continue
			}
			findings = append(findings, domain.ResearchFinding{
				MemoryID: result.ID,
				Query:    task.Description,
				Snippet:  result.Snippet,
				Score:    result.Score,
			})
		}
	}
	return findings
}

// researchConfidence scores how well the findings cover the question.
// Coverage saturates at five strong findings.
func researchConfidence(findings []domain.ResearchFinding) float64 {
	if len(findings) == 0 {
		return 0.0
	}

	var total float64
	count := 0.0
	for _, f := range findings {
		total += float64(f.Score)
		count++
	}
	avg := total / count

	coverage := count / 5.0
	if coverage > 1.0 {
		coverage = 1.0
	}

	confidence := 0.6*coverage + 0.4*minFloat(avg*10, 1.0)
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// nextQueries derives follow-up query phrasings from the question.
func nextQueries(question string) []string {
	variants := service.QueryVariants(question, defaultVariantsPerRound)

	seen := map[string]struct{}{}
	var queries []string
	for _, v := range variants {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, v)
	}
	return queries
}

func renderResearchMarkdown(report *domain.ResearchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research: %s\n\n", report.Question)
	fmt.Fprintf(&b, "**Project**: %s\n", report.Project)
	fmt.Fprintf(&b, "**Confidence**: %.2f (%s)\n", report.Confidence, report.Level)
	fmt.Fprintf(&b, "**Iterations**: %d\n\n", report.Iterations)

	if len(report.Findings) == 0 {
		b.WriteString("No relevant memories found.\n")
		return b.String()
	}

	b.WriteString("## Findings\n\n")
	for i, f := range report.Findings {
		fmt.Fprintf(&b, "%d. (%.3f, via %q) %s\n", i+1, f.Score, f.Query, f.Snippet)
	}
	return b.String()
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
