// Package agent implements the Airis pre-implementation assessment
// tools: confidence checks, deep research orchestration, reflexion
// error learning, token budgeting, and the parallel task executor.
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agiletec-inc/mindbase/internal/domain"
)

// Check weights. They sum to 1.0.
const (
	weightNoDuplicates = 0.25
	weightArchitecture = 0.25
	weightOfficialDocs = 0.20
	weightOSSReference = 0.15
	weightRootCause    = 0.15
)

const minSolutionLength = 20

// uncertaintyPatterns flag root-cause statements that read like guesses.
var uncertaintyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bprobably\b`),
	regexp.MustCompile(`\bmaybe\b`),
	regexp.MustCompile(`\bmight\b`),
	regexp.MustCompile(`\bcould be\b`),
	regexp.MustCompile(`\bpossibly\b`),
	regexp.MustCompile(`\bnot sure\b`),
	regexp.MustCompile(`\bguess\b`),
	regexp.MustCompile(`\bthink\b`),
	regexp.MustCompile(`\bassume\b`),
}

// projectMarkers identify a project root when walking up from a file.
var projectMarkers = []string{"go.mod", "pyproject.toml", "CLAUDE.md", ".git", "package.json"}

// ConfidenceInput carries everything known about a task before
// implementation starts. The three *Complete fields short-circuit their
// checks when the caller has already done the investigation.
type ConfidenceInput struct {
	FeatureName        string
	ProjectRoot        string
	TestFile           string
	RootCause          string
	ProposedSolution   string
	ProposedTechnology string
	ResearchNotes      string
	OSSReferences      []string
	DocumentationURLs  []string

	DuplicateCheckComplete    *bool
	ArchitectureCheckComplete *bool
	OfficialDocsVerified      *bool
	OSSReferenceComplete      *bool
	RootCauseIdentified       *bool
}

// ConfidenceChecker scores how ready a task is for implementation.
type ConfidenceChecker struct{}

// NewConfidenceChecker creates a new ConfidenceChecker instance
func NewConfidenceChecker() *ConfidenceChecker {
	return &ConfidenceChecker{}
}

// Assess runs the five weighted checks and returns a scored report.
func (c *ConfidenceChecker) Assess(input ConfidenceInput) *domain.ConfidenceReport {
	report := &domain.ConfidenceReport{}

	c.runCheck(report, "no_duplicates", weightNoDuplicates,
		c.noDuplicates(input, report),
		"no duplicate implementations found",
		"check for existing implementations first")

	c.runCheck(report, "architecture_compliance", weightArchitecture,
		c.architectureCompliant(input, report),
		"solution uses the existing tech stack",
		"verify architecture compliance before implementing")

	c.runCheck(report, "official_docs", weightOfficialDocs,
		c.hasOfficialDocs(input),
		"official documentation verified",
		"read official docs first")

	c.runCheck(report, "oss_reference", weightOSSReference,
		c.hasOSSReference(input, report),
		"working open-source implementation referenced",
		"search for open-source implementations")

	c.runCheck(report, "root_cause", weightRootCause,
		c.rootCauseIdentified(input, report),
		"root cause identified",
		"continue investigation to identify root cause")

	report.Level = domain.LevelForScore(report.Score)
	report.Recommendation = Recommendation(report.Score)
	return report
}

func (c *ConfidenceChecker) runCheck(report *domain.ConfidenceReport, name string, weight float64, passed bool, passMsg, failMsg string) {
	msg := failMsg
	if passed {
		report.Score += weight
		msg = passMsg
	}
	report.Checks = append(report.Checks, domain.ConfidenceCheck{
		Name:    name,
		Passed:  passed,
		Weight:  weight,
		Message: msg,
	})
}

// Recommendation returns the action matching a confidence score.
func Recommendation(score float64) string {
	switch {
	case score >= domain.ConfidenceHighThreshold:
		return "high confidence: proceed with implementation"
	case score >= domain.ConfidenceMediumThreshold:
		return "medium confidence: continue investigation, do not implement yet"
	default:
		return "low confidence: stop and continue the investigation loop"
	}
}

func (c *ConfidenceChecker) noDuplicates(input ConfidenceInput, report *domain.ConfidenceReport) bool {
	if input.DuplicateCheckComplete != nil {
		return *input.DuplicateCheckComplete
	}

	if input.FeatureName == "" {
		return false
	}
	root := c.findProjectRoot(input)
	if root == "" {
		return false
	}

	matches := searchCodebase(root, input.FeatureName)
	if len(matches) > 0 {
		limit := len(matches)
		if limit > 5 {
			limit = 5
		}
		for _, m := range matches[:limit] {
			report.Warnings = append(report.Warnings, fmt.Sprintf("potential duplicate: %s", m))
		}
		return false
	}
	return true
}

func (c *ConfidenceChecker) architectureCompliant(input ConfidenceInput, report *domain.ConfidenceReport) bool {
	if input.ArchitectureCheckComplete != nil {
		return *input.ArchitectureCheckComplete
	}

	root := c.findProjectRoot(input)
	if root == "" {
		return false
	}

	stack := detectTechStack(root)
	if len(stack) == 0 {
		return false
	}

	if input.ProposedTechnology == "" {
		return true
	}

	warnings := architectureAntiPatterns(stack, input.ProposedTechnology)
	if len(warnings) > 0 {
		report.Warnings = append(report.Warnings, warnings...)
		return false
	}
	return true
}

func (c *ConfidenceChecker) hasOfficialDocs(input ConfidenceInput) bool {
	if input.OfficialDocsVerified != nil {
		return *input.OfficialDocsVerified
	}

	start := input.TestFile
	if start == "" {
		start = input.ProjectRoot
	}
	if start == "" {
		return false
	}

	dir := start
	if fi, err := os.Stat(start); err == nil && !fi.IsDir() {
		dir = filepath.Dir(start)
	} else if err != nil {
		dir = filepath.Dir(start)
	}

	for {
		for _, doc := range []string{"README.md", "CLAUDE.md", "docs"} {
			if _, err := os.Stat(filepath.Join(dir, doc)); err == nil {
				return true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

func (c *ConfidenceChecker) hasOSSReference(input ConfidenceInput, report *domain.ConfidenceReport) bool {
	if input.OSSReferenceComplete != nil {
		return *input.OSSReferenceComplete
	}
	if len(input.OSSReferences) > 0 || len(input.DocumentationURLs) > 0 {
		return true
	}
	if len(input.ResearchNotes) > 50 {
		return true
	}
	report.Warnings = append(report.Warnings, "no open-source references: research similar implementations first")
	return false
}

func (c *ConfidenceChecker) rootCauseIdentified(input ConfidenceInput, report *domain.ConfidenceReport) bool {
	if input.RootCauseIdentified != nil {
		return *input.RootCauseIdentified
	}

	if input.RootCause == "" {
		report.Warnings = append(report.Warnings, "root cause not documented")
		return false
	}

	lower := strings.ToLower(input.RootCause)
	for _, pattern := range uncertaintyPatterns {
		if pattern.MatchString(lower) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("root cause contains uncertainty language: %q", pattern.String()))
			return false
		}
	}

	if input.ProposedSolution == "" {
		report.Warnings = append(report.Warnings, "no proposed solution documented")
		return false
	}
	if len(input.ProposedSolution) < minSolutionLength {
		report.Warnings = append(report.Warnings, "proposed solution too brief")
		return false
	}
	return true
}

// findProjectRoot resolves the project root, either explicitly provided
// or by walking up from the test file looking for repo markers.
func (c *ConfidenceChecker) findProjectRoot(input ConfidenceInput) string {
	if input.ProjectRoot != "" {
		return input.ProjectRoot
	}
	if input.TestFile == "" {
		return ""
	}

	dir := input.TestFile
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// searchCodebase looks for files whose name or declarations resemble
// the feature about to be implemented.
func searchCodebase(root, term string) []string {
	normalized := normalizeIdentifier(term)
	declPattern, err := regexp.Compile(`(?i)\b(func|def|class|function)\s+` + regexp.QuoteMeta(term) + `\b`)
	if err != nil {
		return nil
	}

	var results []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "node_modules", ".venv", "venv", "__pycache__", ".git", "vendor":
				if path != root {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if len(results) >= 10 {
			return filepath.SkipAll
		}

		switch filepath.Ext(path) {
		case ".go", ".py", ".ts", ".js":
		default:
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := normalizeIdentifier(stem)
		if name != "" && (strings.Contains(name, normalized) || strings.Contains(normalized, name)) {
			results = append(results, filepath.ToSlash(rel))
			return nil
		}

		fi, err := os.Stat(path)
		if err != nil || fi.Size() > 100_000 {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if declPattern.Match(data) {
			results = append(results, filepath.ToSlash(rel))
		}
		return nil
	})

	return results
}

func normalizeIdentifier(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

// detectTechStack reads CLAUDE.md and build files under root and
// returns the set of detected technologies.
func detectTechStack(root string) map[string]bool {
	stack := map[string]bool{}

	if data, err := os.ReadFile(filepath.Join(root, "CLAUDE.md")); err == nil {
		stack["claude_md"] = true
		content := strings.ToLower(string(data))
		for _, tech := range []string{"supabase", "react", "python", "typescript", "turborepo", "pytest", "postgres", "docker"} {
			if strings.Contains(content, tech) {
				stack[tech] = true
			}
		}
		if strings.Contains(content, "next.js") || strings.Contains(content, "nextjs") {
			stack["nextjs"] = true
		}
	}

	if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
		stack["go_project"] = true
	}
	if _, err := os.Stat(filepath.Join(root, "pyproject.toml")); err == nil {
		stack["python_project"] = true
	}
	if _, err := os.Stat(filepath.Join(root, "package.json")); err == nil {
		stack["node_project"] = true
	}
	if _, err := os.Stat(filepath.Join(root, "turbo.json")); err == nil {
		stack["turborepo"] = true
	}

	return stack
}

// architectureAntiPatterns flags proposed technology that reinvents
// what the detected stack already provides.
func architectureAntiPatterns(stack map[string]bool, proposed string) []string {
	var warnings []string
	lower := strings.ToLower(proposed)

	if stack["supabase"] {
		if strings.Contains(lower, "custom api") || strings.Contains(lower, "express") {
			warnings = append(warnings, "supabase project detected: use Supabase APIs instead of a custom API")
		}
		if strings.Contains(lower, "custom auth") {
			warnings = append(warnings, "supabase project detected: use Supabase Auth instead of custom authentication")
		}
	}
	if stack["nextjs"] && strings.Contains(lower, "custom routing") {
		warnings = append(warnings, "next.js project detected: use the App Router instead of custom routing")
	}
	if stack["go_project"] && strings.Contains(lower, "custom orm") {
		warnings = append(warnings, "go project detected: prefer the existing database layer over a custom ORM")
	}

	return warnings
}
