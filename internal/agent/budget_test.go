package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenBudget(t *testing.T) {
	tests := []struct {
		name           string
		complexity     Complexity
		wantLimit      int
		wantComplexity Complexity
	}{
		{"simple", ComplexitySimple, 200, ComplexitySimple},
		{"medium", ComplexityMedium, 1000, ComplexityMedium},
		{"complex", ComplexityComplex, 2500, ComplexityComplex},
		{"unknown defaults to medium", Complexity("mystery"), 1000, ComplexityMedium},
		{"empty defaults to medium", Complexity(""), 1000, ComplexityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := NewTokenBudget(tt.complexity)

			assert.Equal(t, tt.wantLimit, budget.Limit())
			assert.Equal(t, tt.wantComplexity, budget.Complexity())
			assert.Equal(t, 0, budget.Used())
			assert.Equal(t, tt.wantLimit, budget.Remaining())
		})
	}
}

func TestTokenBudget_Ordering(t *testing.T) {
	simple := NewTokenBudget(ComplexitySimple)
	medium := NewTokenBudget(ComplexityMedium)
	complex := NewTokenBudget(ComplexityComplex)

	assert.Less(t, simple.Limit(), medium.Limit())
	assert.Less(t, medium.Limit(), complex.Limit())
}

func TestTokenBudget_Spend(t *testing.T) {
	t.Run("tracks usage", func(t *testing.T) {
		budget := NewTokenBudget(ComplexitySimple)

		require.NoError(t, budget.Spend(50))
		require.NoError(t, budget.Spend(100))

		assert.Equal(t, 150, budget.Used())
		assert.Equal(t, 50, budget.Remaining())
	})

	t.Run("rejects over-budget spend without mutating", func(t *testing.T) {
		budget := NewTokenBudget(ComplexitySimple)
		require.NoError(t, budget.Spend(150))

		err := budget.Spend(100)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "budget exceeded")
		assert.Equal(t, 150, budget.Used())
	})

	t.Run("allows spending exactly to the limit", func(t *testing.T) {
		budget := NewTokenBudget(ComplexitySimple)

		require.NoError(t, budget.Spend(200))
		assert.Equal(t, 0, budget.Remaining())
	})

	t.Run("rejects negative spend", func(t *testing.T) {
		budget := NewTokenBudget(ComplexityMedium)
		assert.Error(t, budget.Spend(-1))
	})
}

func TestTokenBudget_Reset(t *testing.T) {
	budget := NewTokenBudget(ComplexityMedium)
	require.NoError(t, budget.Spend(900))

	budget.Reset()

	assert.Equal(t, 0, budget.Used())
	assert.Equal(t, 1000, budget.Remaining())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ok"))
	assert.Equal(t, 26, EstimateTokens(strings.Repeat("x", 100)))
}
