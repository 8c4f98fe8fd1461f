// Package prop is a small property-based checking harness: generators
// build random inputs from a seeded PRNG, trials run on a bounded worker
// group, and the first failing input is shrunk toward a minimal
// counterexample.
package prop

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Generator produces a value of type T from a PRNG and a size hint.
type Generator[T any] func(r *rand.Rand, size int) T

// Shrinker proposes smaller variants of v, most aggressive first.
type Shrinker[T any] func(v T) []T

// Property1 is a unary property predicate.
type Property1[A any] func(a A) bool

// Options control property checking. Zero fields take defaults.
type Options struct {
	Trials          int           // default 200
	Seed            int64         // 0 picks one from the clock
	Size            int           // size hint for generators, default 30
	Parallelism     int           // default GOMAXPROCS
	MaxShrinkRounds int           // default 200
	MaxShrinkTime   time.Duration // 0 disables the limit
}

func (o Options) withDefaults() Options {
	if o.Trials <= 0 {
		o.Trials = 200
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Size <= 0 {
		o.Size = 30
	}
	if o.Parallelism <= 0 {
		o.Parallelism = max(runtime.GOMAXPROCS(0), 1)
	}
	if o.MaxShrinkRounds <= 0 {
		o.MaxShrinkRounds = 200
	}
	return o
}

// Result is the outcome of a property check.
type Result struct {
	PassedTrials int
	Failed       bool
	FailingInput any
	ShrunkInput  any
	Seed         int64
	Duration     time.Duration
	ShrinkRounds int
}

var errCounterexample = errors.New("counterexample found")

// ForAll1 checks prop against opts.Trials generated inputs. Each trial
// draws from its own PRNG seeded from (Seed, trial), so a reported seed
// reproduces the same inputs regardless of scheduling.
func ForAll1[A any](gen Generator[A], shrink Shrinker[A], prop Property1[A], opts Options) Result {
	start := time.Now()
	opts = opts.withDefaults()

	var (
		passed  atomic.Int64
		mu      sync.Mutex
		failIdx = -1
		failing A
	)

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(opts.Parallelism)
	for i := 0; i < opts.Trials && ctx.Err() == nil; i++ {
		g.Go(func() error {
			a := gen(rand.New(rand.NewSource(deriveSeed(opts.Seed, i))), opts.Size)
			if prop(a) {
				passed.Add(1)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			// keep the earliest trial when several fail concurrently
			if failIdx < 0 || i < failIdx {
				failIdx, failing = i, a
			}
			return errCounterexample
		})
	}
	_ = g.Wait()

	res := Result{PassedTrials: int(passed.Load()), Seed: opts.Seed}
	if failIdx >= 0 {
		res.Failed = true
		res.FailingInput = failing
		if shrink != nil {
			best, rounds := shrinkFailure(failing, shrink, prop, opts)
			res.ShrunkInput, res.ShrinkRounds = best, rounds
		}
	}
	res.Duration = time.Since(start)
	return res
}

// shrinkFailure walks to the first still-failing candidate until no
// candidate fails or a budget runs out.
func shrinkFailure[A any](v A, shrink Shrinker[A], prop Property1[A], opts Options) (A, int) {
	var deadline time.Time
	if opts.MaxShrinkTime > 0 {
		deadline = time.Now().Add(opts.MaxShrinkTime)
	}

	rounds := 0
	for rounds < opts.MaxShrinkRounds {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		next, ok := firstFailing(shrink(v), prop)
		if !ok {
			break
		}
		v = next
		rounds++
	}
	return v, rounds
}

func firstFailing[A any](candidates []A, prop Property1[A]) (A, bool) {
	for _, c := range candidates {
		if !prop(c) {
			return c, true
		}
	}
	var zero A
	return zero, false
}

// deriveSeed mixes the base seed with the trial index.
func deriveSeed(base int64, idx int) int64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(base))
	binary.LittleEndian.PutUint64(b[8:], uint64(idx))
	h := sha256.Sum256(b[:])
	return int64(binary.LittleEndian.Uint64(h[:8]))
}
