package service

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	defaultCandidateMultiplier = 4
	defaultMinCandidates       = 20
	defaultMaxCandidates       = 200
	defaultSnippetMaxChars     = 220

	rrfK              = 60
	semanticWeight    = 1.0
	lexicalWeight     = 0.85
	recencyWindowDays = 30
	recencyMaxBoost   = 0.10
	tagMatchBoost     = 0.08
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {},
}

// aggregateChunkResults collapses chunk hits to one result per memory,
// keeping the highest-scoring chunk and first-seen order.
func aggregateChunkResults(chunks []*ChunkSearchResult) []*SearchResult {
	if len(chunks) == 0 {
		return nil
	}
	best := make(map[string]*ChunkSearchResult, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c == nil {
			continue
		}
		existing, ok := best[c.MemoryID]
		if !ok {
			order = append(order, c.MemoryID)
			best[c.MemoryID] = c
		} else if c.Score > existing.Score {
			best[c.MemoryID] = c
		}
	}
	results := make([]*SearchResult, 0, len(best))
	for _, memoryID := range order {
		c := best[memoryID]
		results = append(results, &SearchResult{
			ID:         c.MemoryID,
			Kind:       c.Kind,
			Tags:       c.Tags,
			Snippet:    makeSnippet(c.Content),
			UpdatedAt:  c.UpdatedAt,
			Score:      c.Score,
			ChunkID:    c.ChunkID,
			ChunkIndex: c.ChunkIndex,
		})
	}
	return results
}

func prepareResults(results []*SearchResult) {
	for _, r := range results {
		if r == nil {
			continue
		}
		r.Snippet = makeSnippet(r.Snippet)
		// ChunkIndex -1 marks document-level results
		if r.ChunkID == "" {
			r.ChunkIndex = -1
		}
	}
}

func mergeByScore(filters SearchFilters, lists ...[]*SearchResult) []*SearchResult {
	merged := make(map[string]*SearchResult)
	for _, list := range lists {
		mergeResults(merged, list)
	}
	out := sortResultsByScore(merged)
	applySearchBoosts(out, filters)
	sortByScoreThenRecency(out)
	return out
}

type fusionCandidate struct {
	result        *SearchResult
	rrfScore      float32
	semanticScore float32
	lexicalScore  float32
}

// mergeHybridResults fuses semantic and lexical candidate lists with
// reciprocal rank fusion, then applies tag and recency boosts.
func mergeHybridResults(filters SearchFilters, semantic, lexical []*SearchResult) []*SearchResult {
	candidates := make(map[string]*fusionCandidate)
	addList := func(list []*SearchResult, weight float32, isSemantic bool) {
		for i, r := range list {
			if r == nil {
				continue
			}
			cand, ok := candidates[r.ID]
			if !ok {
				cloned := *r
				cand = &fusionCandidate{result: &cloned}
				candidates[r.ID] = cand
			}
			cand.rrfScore += weight / float32(rrfK+i+1)
			if isSemantic {
				cand.semanticScore = float32(math.Max(float64(cand.semanticScore), float64(r.Score)))
			} else {
				cand.lexicalScore = float32(math.Max(float64(cand.lexicalScore), float64(r.Score)))
			}
			if cand.result.Snippet == "" && r.Snippet != "" {
				cand.result.Snippet = r.Snippet
			}
			if cand.result.UpdatedAt.IsZero() && !r.UpdatedAt.IsZero() {
				cand.result.UpdatedAt = r.UpdatedAt
			}
			if len(cand.result.Tags) == 0 && len(r.Tags) > 0 {
				cand.result.Tags = r.Tags
			}
		}
	}

	addList(semantic, semanticWeight, true)
	addList(lexical, lexicalWeight, false)

	out := make([]*SearchResult, 0, len(candidates))
	for _, cand := range candidates {
		cand.result.Score = cand.rrfScore
		out = append(out, cand.result)
	}

	applySearchBoosts(out, filters)
	sortByScoreThenRecency(out)
	return out
}

func sortByScoreThenRecency(results []*SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})
}

func applySearchBoosts(results []*SearchResult, filters SearchFilters) {
	if len(results) == 0 {
		return
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		boost := tagBoost(r.Tags, filters.Tags)
		boost += recencyBoost(r.UpdatedAt)
		r.Score += boost
	}
}

// tagBoost rewards results sharing at least one tag with the filter set.
func tagBoost(resultTags, filterTags []string) float32 {
	if len(resultTags) == 0 || len(filterTags) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(filterTags))
	for _, tag := range filterTags {
		want[strings.ToLower(tag)] = struct{}{}
	}
	for _, tag := range resultTags {
		if _, ok := want[strings.ToLower(tag)]; ok {
			return tagMatchBoost
		}
	}
	return 0
}

func recencyBoost(updatedAt time.Time) float32 {
	if updatedAt.IsZero() {
		return 0
	}
	ageDays := time.Since(updatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	if ageDays > recencyWindowDays {
		return 0
	}
	scale := 1 - (ageDays / recencyWindowDays)
	return float32(scale) * recencyMaxBoost
}

func mergeResults(dst map[string]*SearchResult, results []*SearchResult) {
	for _, r := range results {
		if r == nil {
			continue
		}
		existing, ok := dst[r.ID]
		if !ok || r.Score > existing.Score {
			dst[r.ID] = r
		}
	}
}

func sortResultsByScore(results map[string]*SearchResult) []*SearchResult {
	out := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func makeSnippet(content string) string {
	if content == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(content), " ")
	if len(clean) <= defaultSnippetMaxChars {
		return clean
	}
	// Back up to a rune boundary so multi-byte characters are never split.
	cut := defaultSnippetMaxChars - 3
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return clean[:cut] + "..."
}

// QueryVariants produces alternate phrasings for deep research:
// clause splits plus a stopword-stripped keyword form.
func QueryVariants(query string, max int) []string {
	return generateQueryVariants(query, max)
}

func generateQueryVariants(query string, max int) []string {
	if max <= 0 {
		return nil
	}
	clean := strings.TrimSpace(query)
	if clean == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var variants []string

	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			return
		}
		key := strings.ToLower(candidate)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, candidate)
	}

	for _, part := range splitQueryParts(clean) {
		add(part)
		if len(variants) >= max {
			return variants[:max]
		}
	}

	add(keywordQuery(clean))

	if len(variants) > max {
		return variants[:max]
	}
	return variants
}

func splitQueryParts(query string) []string {
	parts := []string{}
	chunks := strings.FieldsFunc(query, func(r rune) bool {
		switch r {
		case ',', ';', '/', '|', ':', '?', '!', '(', ')', '[', ']', '{', '}':
			return true
		default:
			return false
		}
	})

	for _, chunk := range chunks {
		subParts := strings.Split(chunk, " and ")
		for _, sub := range subParts {
			sub = strings.TrimSpace(sub)
			if sub != "" {
				parts = append(parts, sub)
			}
		}
	}

	return parts
}

func keywordQuery(query string) string {
	var tokens []string
	for _, token := range strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r)
	}) {
		clean := strings.ToLower(strings.TrimSpace(token))
		if clean == "" {
			continue
		}
		if _, ok := stopwords[clean]; ok {
			continue
		}
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, " ")
}
