package agent

import "fmt"

// Complexity classifies how much investigation a task deserves.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"  // typo-level fixes
	ComplexityMedium  Complexity = "medium"  // bug fixes, small features
	ComplexityComplex Complexity = "complex" // new features, refactors
)

// Token limits per complexity band.
const (
	simpleTokenLimit  = 200
	mediumTokenLimit  = 1000
	complexTokenLimit = 2500
)

// TokenBudget tracks token spend for one assessment against a
// complexity-derived limit.
type TokenBudget struct {
	complexity Complexity
	limit      int
	used       int
}

// NewTokenBudget creates a budget for the given complexity. Unknown
// complexities fall back to medium.
func NewTokenBudget(complexity Complexity) *TokenBudget {
	limit := mediumTokenLimit
	switch complexity {
	case ComplexitySimple:
		limit = simpleTokenLimit
	case ComplexityComplex:
		limit = complexTokenLimit
	case ComplexityMedium:
	default:
		complexity = ComplexityMedium
	}
	return &TokenBudget{
		complexity: complexity,
		limit:      limit,
	}
}

// Complexity returns the effective complexity band.
func (b *TokenBudget) Complexity() Complexity {
	return b.complexity
}

// Limit returns the total token allowance.
func (b *TokenBudget) Limit() int {
	return b.limit
}

// Used returns the tokens spent so far.
func (b *TokenBudget) Used() int {
	return b.used
}

// Remaining returns the tokens left to spend.
func (b *TokenBudget) Remaining() int {
	return b.limit - b.used
}

// Spend deducts tokens from the budget. Spending past the limit fails
// and leaves the budget unchanged.
func (b *TokenBudget) Spend(tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("cannot spend negative tokens: %d", tokens)
	}
	if b.used+tokens > b.limit {
		return fmt.Errorf("token budget exceeded: %d used + %d requested > %d limit", b.used, tokens, b.limit)
	}
	b.used += tokens
	return nil
}

// Reset returns the budget to unspent.
func (b *TokenBudget) Reset() {
	b.used = 0
}

// EstimateTokens approximates the token count of a text at four bytes
// per token, the same coarse heuristic the budget bands assume.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}
