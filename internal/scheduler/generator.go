package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Rand is the randomness the generator draws from, swappable in tests.
type Rand interface {
	Int63n(n int64) int64
}

// Clock supplies observation times.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

// Now returns the current UTC time truncated to microseconds, the precision
// every store keeps.
func (RealClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// lockedRand makes a *rand.Rand safe for concurrent ticks.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int63n(n)
}

// PriceGenerator draws synthetic prices uniformly from [min, max) in cent steps.
type PriceGenerator struct {
	min   decimal.Decimal
	cents int64 // number of cent steps in [min, max)
	rand  Rand
}

var hundred = decimal.NewFromInt(100)

func NewPriceGenerator(min, max decimal.Decimal, rnd Rand) (*PriceGenerator, error) {
	if !min.IsPositive() {
		return nil, fmt.Errorf("min price must be positive, got %s", min)
	}
	if !max.GreaterThan(min) {
		return nil, fmt.Errorf("max price %s must be greater than min price %s", max, min)
	}
	cents := max.Sub(min).Mul(hundred).Ceil().IntPart()
	if rnd == nil {
		rnd = NewRand(time.Now().UnixNano())
	}
	return &PriceGenerator{min: min, cents: cents, rand: rnd}, nil
}

// Next returns min + n/100 for n in [0, cents), which stays below max even
// when the bounds themselves carry sub-cent digits.
func (g *PriceGenerator) Next() decimal.Decimal {
	n := g.rand.Int63n(g.cents)
	return g.min.Add(decimal.New(n, -2))
}
