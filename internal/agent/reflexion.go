package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/service"
)

const (
	// solutionMatchThreshold is the minimum signature similarity for a
	// stored solution to count as a match.
	solutionMatchThreshold = 0.6

	// errorTypeBoost rewards signatures sharing a known error type.
	errorTypeBoost = 0.2

	signatureMessageLimit = 100
)

var digitPattern = regexp.MustCompile(`\d+`)

// knownErrorTypes get a similarity boost when both signatures carry one.
var knownErrorTypes = map[string]struct{}{
	"assertionerror":    {},
	"typeerror":         {},
	"valueerror":        {},
	"keyerror":          {},
	"indexerror":        {},
	"importerror":       {},
	"filenotfounderror": {},
	"connectionerror":   {},
	"timeouterror":      {},
	"paniconnil":        {},
	"deadlock":          {},
}

// ErrorInfo describes a failure worth learning from.
type ErrorInfo struct {
	Type       string
	Message    string
	TestName   string
	Traceback  string
	RootCause  string
	WhyMissed  string
	Solution   string
	Prevention string
	Lesson     string
}

// KnownSolution is a previously recorded fix for a similar error.
type KnownSolution struct {
	MemoryID   string  `json:"memory_id"`
	Solution   string  `json:"solution"`
	RootCause  string  `json:"root_cause,omitempty"`
	Prevention string  `json:"prevention,omitempty"`
	Similarity float64 `json:"similarity"`
}

// ReflexionStatistics summarizes what has been learned so far.
type ReflexionStatistics struct {
	TotalErrors         int     `json:"total_errors"`
	ErrorsWithSolutions int     `json:"errors_with_solutions"`
	SolutionReuseRate   float64 `json:"solution_reuse_rate"`
}

// ReflexionMemories is the memory-store surface reflexion writes to.
type ReflexionMemories interface {
	Store(ctx context.Context, input service.StoreInput) (*domain.Memory, error)
	List(ctx context.Context, input service.ListMemoriesInput) (*service.ListMemoriesOutput, error)
}

// ReflexionSearcher retrieves candidate solutions for an error signature.
type ReflexionSearcher interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

// Reflexion learns from recorded errors: known failures resolve to the
// stored fix instead of a fresh investigation.
type Reflexion struct {
	project  string
	memories ReflexionMemories
	searcher ReflexionSearcher
}

// NewReflexion creates a new Reflexion instance for a project
func NewReflexion(project string, memories ReflexionMemories, searcher ReflexionSearcher) *Reflexion {
	return &Reflexion{
		project:  project,
		memories: memories,
		searcher: searcher,
	}
}

// ErrorLearning hands out project-scoped Reflexion instances backed by
// shared memory and search services.
type ErrorLearning struct {
	memories ReflexionMemories
	searcher ReflexionSearcher
}

// NewErrorLearning creates a new ErrorLearning factory
func NewErrorLearning(memories ReflexionMemories, searcher ReflexionSearcher) *ErrorLearning {
	return &ErrorLearning{memories: memories, searcher: searcher}
}

// For returns a Reflexion scoped to the given project.
func (l *ErrorLearning) For(project string) *Reflexion {
	return NewReflexion(project, l.memories, l.searcher)
}

// Signature builds a matchable signature for an error. Digits in the
// message are normalized so differing line numbers or counts still match.
func Signature(info ErrorInfo) string {
	var parts []string
	if info.Type != "" {
		parts = append(parts, info.Type)
	}
	if info.Message != "" {
		msg := digitPattern.ReplaceAllString(info.Message, "N")
		runes := []rune(msg)
		if len(runes) > signatureMessageLimit {
			msg = string(runes[:signatureMessageLimit])
		}
		parts = append(parts, msg)
	}
	if info.TestName != "" {
		parts = append(parts, info.TestName)
	}
	return strings.Join(parts, " | ")
}

// Similarity scores two signatures by word overlap, boosted when both
// name the same known error type.
func Similarity(sig1, sig2 string) float64 {
	words1 := wordSet(sig1)
	words2 := wordSet(sig2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	intersection := 0
	boost := 0.0
	for w := range words1 {
		if _, ok := words2[w]; ok {
			intersection++
			if _, known := knownErrorTypes[w]; known {
				boost = errorTypeBoost
			}
		}
	}
	union := len(words1) + len(words2) - intersection
	jaccard := 0.0
	if union > 0 {
		jaccard = float64(intersection) / float64(union)
	}

	score := jaccard + boost
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

// GetSolution looks up a previously recorded fix for a similar error.
// Returns nil when nothing matches above the threshold.
func (r *Reflexion) GetSolution(ctx context.Context, info ErrorInfo) (*KnownSolution, error) {
	signature := Signature(info)
	if signature == "" {
		return nil, nil
	}

	out, err := r.searcher.Search(ctx, service.SearchInput{
		Query: signature,
		Mode:  service.SearchModeHybrid,
		Filters: service.SearchFilters{
			Project: r.project,
			Kind:    domain.MemoryKindSolution,
		},
		Limit: 10,
	})
	if err != nil {
		return nil, err
	}

	var best *KnownSolution
	for _, result := range out.Results {
		stored := result.Snippet
		score := Similarity(signature, stored)
		if score < solutionMatchThreshold {
			continue
		}
		if best == nil || score > best.Similarity {
			best = &KnownSolution{
				MemoryID:   result.ID,
				Solution:   result.Snippet,
				Similarity: score,
			}
		}
	}
	return best, nil
}

// RecordError stores the error and its solution as a solution memory,
// plus a mistake document when root-cause analysis exists.
func (r *Reflexion) RecordError(ctx context.Context, info ErrorInfo) error {
	signature := Signature(info)
	if signature == "" {
		return domain.ErrMissingRequiredField
	}

	metadata := map[string]string{
		"signature":  signature,
		"error_type": info.Type,
	}
	if info.Prevention != "" {
		metadata["prevention"] = info.Prevention
	}
	if info.RootCause != "" {
		metadata["root_cause"] = info.RootCause
	}

	content := signature
	if info.Solution != "" {
		content = signature + "\n\n" + info.Solution
	}

	_, err := r.memories.Store(ctx, service.StoreInput{
		Project:  r.project,
		Kind:     domain.MemoryKindSolution,
		Content:  content,
		Tags:     []string{"reflexion", strings.ToLower(info.Type)},
		Metadata: metadata,
	})
	if err != nil {
		return err
	}

	if info.RootCause != "" || info.Solution != "" {
		_, err = r.memories.Store(ctx, service.StoreInput{
			Project: r.project,
			Kind:    domain.MemoryKindMistake,
			Content: MistakeDocument(info, time.Now().UTC()),
			Tags:    []string{"mistake", strings.ToLower(info.Type)},
			Metadata: map[string]string{
				"signature": signature,
				"test_name": info.TestName,
			},
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Statistics pages through recorded solution memories and reports how
// many carry a documented fix.
func (r *Reflexion) Statistics(ctx context.Context) (*ReflexionStatistics, error) {
	stats := &ReflexionStatistics{}

	cursor := ""
	for {
		out, err := r.memories.List(ctx, service.ListMemoriesInput{
			Project: r.project,
			Kind:    domain.MemoryKindSolution,
			Cursor:  cursor,
			Limit:   100,
		})
		if err != nil {
			return nil, err
		}

		for _, m := range out.Items {
			stats.TotalErrors++
			if strings.Contains(m.Content, "\n\n") {
				stats.ErrorsWithSolutions++
			}
		}

		if !out.HasMore || out.Cursor == "" {
			break
		}
		cursor = out.Cursor
	}

	if stats.TotalErrors > 0 {
		stats.SolutionReuseRate = float64(stats.ErrorsWithSolutions) / float64(stats.TotalErrors) * 100
	}
	return stats, nil
}

// MistakeDocument renders the markdown mistake record for an error.
func MistakeDocument(info ErrorInfo, now time.Time) string {
	testName := info.TestName
	if testName == "" {
		testName = "unknown"
	}
	date := now.Format("2006-01-02")

	section := func(value, fallback string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Mistake Record: %s\n\n", testName)
	fmt.Fprintf(&b, "**Date**: %s\n", date)
	fmt.Fprintf(&b, "**Error Type**: %s\n\n---\n\n", section(info.Type, "Unknown"))
	fmt.Fprintf(&b, "## What Happened\n\n%s\n\n", section(info.Message, "No error message"))
	fmt.Fprintf(&b, "```\n%s\n```\n\n---\n\n", section(info.Traceback, "No traceback"))
	fmt.Fprintf(&b, "## Root Cause\n\n%s\n\n---\n\n", section(info.RootCause, "Not analyzed"))
	fmt.Fprintf(&b, "## Why Missed\n\n%s\n\n---\n\n", section(info.WhyMissed, "Not analyzed"))
	fmt.Fprintf(&b, "## Fix Applied\n\n%s\n\n---\n\n", section(info.Solution, "Not documented"))
	fmt.Fprintf(&b, "## Prevention Checklist\n\n%s\n\n---\n\n", section(info.Prevention, "Not documented"))
	fmt.Fprintf(&b, "## Lesson Learned\n\n%s\n", section(info.Lesson, "Not documented"))
	return b.String()
}
