package proposal

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// defaultWeightCapacity bounds the learned-weight map. Old
	// (user, feature) pairs fall out least-recently-used.
	defaultWeightCapacity = 16384

	// defaultLearningRate is the online update step size.
	defaultLearningRate = 0.05

	// maxPersonalization bounds the total confidence adjustment a
	// user's learned weights may contribute.
	maxPersonalization = 0.15
)

// Weights holds per-user learned feature weights, updated online from
// review decisions. Each (user, feature) pair carries one scalar,
// nudged by the learning rate toward approvals and away from
// rejections. The map is a bounded LRU so a long-lived deployment
// cannot grow it without limit.
type Weights struct {
	mu    sync.Mutex
	cache *lru.Cache[string, float64]
	rate  float64
}

// NewWeights creates a weight store. Zero capacity or rate selects
// the defaults.
func NewWeights(capacity int, learningRate float64) (*Weights, error) {
	if capacity <= 0 {
		capacity = defaultWeightCapacity
	}
	if learningRate <= 0 {
		learningRate = defaultLearningRate
	}
	cache, err := lru.New[string, float64](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create weight cache: %w", err)
	}
	return &Weights{cache: cache, rate: learningRate}, nil
}

func weightKey(user, feature string) string {
	return user + "|" + feature
}

// Update applies one labeled example: label +1 for an approval, -1
// for a rejection, to every feature of the example.
func (w *Weights) Update(user string, features []string, label float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range features {
		k := weightKey(user, f)
		current, _ := w.cache.Get(k)
		w.cache.Add(k, current+w.rate*label)
	}
}

// Adjustment returns the confidence adjustment for a user and feature
// set: the sum of the learned weights, bounded to
// [-maxPersonalization, +maxPersonalization].
func (w *Weights) Adjustment(user string, features []string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	sum := 0.0
	for _, f := range features {
		if v, ok := w.cache.Get(weightKey(user, f)); ok {
			sum += v
		}
	}
	if sum > maxPersonalization {
		return maxPersonalization
	}
	if sum < -maxPersonalization {
		return -maxPersonalization
	}
	return sum
}

// Weight returns the raw learned weight for one (user, feature) pair.
func (w *Weights) Weight(user, feature string) (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cache.Get(weightKey(user, feature))
}

// Len returns the number of (user, feature) pairs currently held.
func (w *Weights) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cache.Len()
}
