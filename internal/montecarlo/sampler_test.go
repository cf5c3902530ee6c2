package montecarlo

import (
	"math/rand/v2"
	"testing"

	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSampler_DistinctInRange(t *testing.T) {
	s := NewRandomSampler(rand.New(rand.NewPCG(1, 2)))
	for trial := 0; trial < 200; trial++ {
		rows, err := s.Sample(20, 15)
		require.NoError(t, err)
		require.Len(t, rows, 15)

		seen := make(map[int]bool)
		for _, r := range rows {
			assert.GreaterOrEqual(t, r, 0)
			assert.Less(t, r, 20)
			assert.False(t, seen[r], "row %d repeated", r)
			seen[r] = true
		}
	}
}

func TestRandomSampler_FullPopulation(t *testing.T) {
	s := NewRandomSampler(rand.New(rand.NewPCG(3, 4)))
	rows, err := s.Sample(5, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, rows)
}

func TestRandomSampler_Errors(t *testing.T) {
	s := NewRandomSampler(rand.New(rand.NewPCG(1, 1)))

	_, err := s.Sample(3, 4)
	assert.ErrorIs(t, err, domain.ErrSampleSizeExceedsPopulation)

	_, err = s.Sample(3, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestSeededSamplers_Reproducible(t *testing.T) {
	a, err := SeededSamplers(42)(3).Sample(100, 10)
	require.NoError(t, err)
	b, err := SeededSamplers(42)(3).Sample(100, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := SeededSamplers(42)(4).Sample(100, 10)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestRandomSampler_RoughlyUniform(t *testing.T) {
	s := NewRandomSampler(rand.New(rand.NewPCG(5, 6)))
	counts := make([]int, 10)
	const draws = 20000
	for i := 0; i < draws; i++ {
		rows, err := s.Sample(10, 3)
		require.NoError(t, err)
		for _, r := range rows {
			counts[r]++
		}
	}
	// cada fila aparece con probabilidad 3/10
	for r, c := range counts {
		assert.InDelta(t, draws*3/10, c, 400, "row %d", r)
	}
}
