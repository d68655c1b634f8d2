package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func allChecksPassInput() ConfidenceInput {
	return ConfidenceInput{
		DuplicateCheckComplete:    boolPtr(true),
		ArchitectureCheckComplete: boolPtr(true),
		OfficialDocsVerified:      boolPtr(true),
		OSSReferenceComplete:      boolPtr(true),
		RootCauseIdentified:       boolPtr(true),
	}
}

func TestConfidenceChecker_Assess(t *testing.T) {
	checker := NewConfidenceChecker()

	t.Run("all checks pass gives full score", func(t *testing.T) {
		report := checker.Assess(allChecksPassInput())

		assert.InDelta(t, 1.0, report.Score, 0.001)
		assert.Equal(t, domain.ConfidenceHigh, report.Level)
		assert.Len(t, report.Checks, 5)
		for _, check := range report.Checks {
			assert.True(t, check.Passed, check.Name)
		}
	})

	t.Run("all checks fail gives zero score", func(t *testing.T) {
		report := checker.Assess(ConfidenceInput{
			DuplicateCheckComplete:    boolPtr(false),
			ArchitectureCheckComplete: boolPtr(false),
			OfficialDocsVerified:      boolPtr(false),
			OSSReferenceComplete:      boolPtr(false),
			RootCauseIdentified:       boolPtr(false),
		})

		assert.InDelta(t, 0.0, report.Score, 0.001)
		assert.Equal(t, domain.ConfidenceLow, report.Level)
	})

	t.Run("check weights match their share", func(t *testing.T) {
		input := allChecksPassInput()
		input.DuplicateCheckComplete = boolPtr(false)

		report := checker.Assess(input)

		assert.InDelta(t, 0.75, report.Score, 0.001)
		assert.Equal(t, domain.ConfidenceMedium, report.Level)
	})

	t.Run("docs check alone lands in low band", func(t *testing.T) {
		input := ConfidenceInput{
			DuplicateCheckComplete:    boolPtr(false),
			ArchitectureCheckComplete: boolPtr(false),
			OfficialDocsVerified:      boolPtr(true),
			OSSReferenceComplete:      boolPtr(false),
			RootCauseIdentified:       boolPtr(false),
		}

		report := checker.Assess(input)

		assert.InDelta(t, 0.20, report.Score, 0.001)
		assert.Equal(t, domain.ConfidenceLow, report.Level)
	})
}

func TestConfidenceChecker_RootCause(t *testing.T) {
	checker := NewConfidenceChecker()

	base := func() ConfidenceInput {
		input := allChecksPassInput()
		input.RootCauseIdentified = nil
		return input
	}

	t.Run("certain root cause with solution passes", func(t *testing.T) {
		input := base()
		input.RootCause = "the connection pool exhausts because close is never called"
		input.ProposedSolution = "defer rows.Close() after every Query call in the repository"

		report := checker.Assess(input)
		assert.InDelta(t, 1.0, report.Score, 0.001)
	})

	t.Run("uncertainty language fails", func(t *testing.T) {
		for _, phrase := range []string{
			"it is probably the connection pool",
			"maybe the pool leaks",
			"this might be a race",
			"could be the scheduler",
			"possibly a timeout",
			"not sure where it leaks",
			"my guess is the cache",
			"I think the index is stale",
			"we assume the config is loaded",
		} {
			input := base()
			input.RootCause = phrase
			input.ProposedSolution = "a sufficiently long proposed solution text"

			report := checker.Assess(input)
			assert.InDelta(t, 0.85, report.Score, 0.001, phrase)
			assert.NotEmpty(t, report.Warnings)
		}
	})

	t.Run("missing root cause fails with warning", func(t *testing.T) {
		report := checker.Assess(base())

		assert.InDelta(t, 0.85, report.Score, 0.001)
		assert.Contains(t, report.Warnings, "root cause not documented")
	})

	t.Run("too brief solution fails", func(t *testing.T) {
		input := base()
		input.RootCause = "stale cache entry after delete"
		input.ProposedSolution = "fix it"

		report := checker.Assess(input)
		assert.InDelta(t, 0.85, report.Score, 0.001)
		assert.Contains(t, report.Warnings, "proposed solution too brief")
	})
}

func TestConfidenceChecker_ProjectDiscovery(t *testing.T) {
	checker := NewConfidenceChecker()

	t.Run("detects tech stack from project files", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "CLAUDE.md"), []byte("This project uses Supabase and React."), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))

		stack := detectTechStack(root)

		assert.True(t, stack["supabase"])
		assert.True(t, stack["react"])
		assert.True(t, stack["node_project"])
		assert.False(t, stack["go_project"])
	})

	t.Run("flags anti-patterns against detected stack", func(t *testing.T) {
		warnings := architectureAntiPatterns(map[string]bool{"supabase": true}, "build a custom API with Express")
		assert.NotEmpty(t, warnings)

		warnings = architectureAntiPatterns(map[string]bool{"nextjs": true}, "custom routing layer")
		assert.Len(t, warnings, 1)

		warnings = architectureAntiPatterns(map[string]bool{"supabase": true}, "use Supabase RPC")
		assert.Empty(t, warnings)
	})

	t.Run("finds project root from test file", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/x"), 0o644))
		nested := filepath.Join(root, "internal", "pkg")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		testFile := filepath.Join(nested, "pkg_test.go")
		require.NoError(t, os.WriteFile(testFile, []byte("package pkg"), 0o644))

		got := checker.findProjectRoot(ConfidenceInput{TestFile: testFile})
		assert.Equal(t, root, got)
	})

	t.Run("reports duplicates found in the codebase", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "rate_limiter.go"), []byte("package x\n\nfunc RateLimiter() {}\n"), 0o644))

		input := allChecksPassInput()
		input.DuplicateCheckComplete = nil
		input.FeatureName = "rate_limiter"
		input.ProjectRoot = root

		report := checker.Assess(input)

		assert.InDelta(t, 0.75, report.Score, 0.001)
		require.NotEmpty(t, report.Warnings)
		assert.Contains(t, report.Warnings[0], "rate_limiter.go")
	})
}

func TestRecommendation(t *testing.T) {
	assert.Contains(t, Recommendation(0.95), "proceed")
	assert.Contains(t, Recommendation(0.9), "proceed")
	assert.Contains(t, Recommendation(0.75), "continue investigation")
	assert.Contains(t, Recommendation(0.5), "stop")
}
