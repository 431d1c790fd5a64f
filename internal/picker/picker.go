// Package picker provides the seeded randomness used to choose passages.
package picker

import (
	"math/rand"
	"sync"
	"time"
)

// Picker chooses elements uniformly at random. It is safe for concurrent use.
type Picker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Picker seeded from the current time.
func New() *Picker {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Picker.
func NewWithSeed(seed int64) *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(seed))}
}

// Intn returns a value in [0, n). n must be > 0.
func (p *Picker) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Intn(n)
}

// Pick returns a random element of list, or "" when list is empty.
func (p *Picker) Pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[p.Intn(len(list))]
}
