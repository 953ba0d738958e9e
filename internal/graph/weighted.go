package graph

import (
	"math/rand/v2"
	"sync"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// Sampler draws weighted random choices. It is safe for concurrent use so a
// single Graph can be shared by many sessions.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a sampler over src. A nil src uses a randomly seeded PCG.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rng: rand.New(src)}
}

// Choose picks an index with probability proportional to its weight.
// Negative weights count as zero. When every weight is zero they are all
// treated as 1.
func (s *Sampler) Choose(weights []float64) (int, error) {
	if len(weights) == 0 {
		return -1, domain.ErrNoCandidates
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	uniform := total == 0
	if uniform {
		total = float64(len(weights))
	}

	s.mu.Lock()
	r := s.rng.Float64() * total
	s.mu.Unlock()

	acc := 0.0
	last := -1
	for i, w := range weights {
		if uniform {
			w = 1
		}
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i, nil
		}
	}
	// Float rounding can leave r == total.
	return last, nil
}
