package montecarlo

import (
	"fmt"
	"math/rand/v2"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// Sampler elige k filas distintas de una población de n, sin reemplazo.
type Sampler interface {
	Sample(n, k int) ([]int, error)
}

// SamplerFactory devuelve el Sampler de la iteración i. Cada iteración tiene
// su propia fuente, así el resultado no depende del orden de ejecución.
type SamplerFactory func(iteration int) Sampler

// SeededSamplers deriva un generador PCG por iteración a partir de seed.
func SeededSamplers(seed uint64) SamplerFactory {
	return func(iteration int) Sampler {
		return &RandomSampler{rng: rand.New(rand.NewPCG(seed, uint64(iteration)))}
	}
}

// RandomSampler muestrea con el algoritmo de Floyd: O(k) por llamada,
// conjunto uniforme entre todos los subconjuntos de tamaño k.
type RandomSampler struct {
	rng *rand.Rand
}

// NewRandomSampler envuelve rng.
func NewRandomSampler(rng *rand.Rand) *RandomSampler {
	return &RandomSampler{rng: rng}
}

func (s *RandomSampler) Sample(n, k int) ([]int, error) {
	if err := checkSampleSize(n, k); err != nil {
		return nil, err
	}
	chosen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for j := n - k; j < n; j++ {
		t := s.rng.IntN(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func checkSampleSize(n, k int) error {
	if k <= 0 {
		return fmt.Errorf("sample size %d: %w", k, domain.ErrInvalidParameter)
	}
	if k > n {
		return fmt.Errorf("sample size %d > %d rows: %w", k, n, domain.ErrSampleSizeExceedsPopulation)
	}
	return nil
}
