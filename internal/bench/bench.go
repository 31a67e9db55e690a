// Package bench drives a work-stealing deque with one owner goroutine and N
// thief goroutines for a fixed duration, measuring how the asymmetric
// owner/thief contention spec.md describes behaves in practice. It is the
// reshaped counterpart of a symmetric N-producer/N-consumer MPMC harness: a
// work-stealing deque has exactly one producer-and-consumer end (the owner,
// who both pushes and pops) and an arbitrary number of consumer-only ends
// (the thieves).
package bench

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i5heu/GoWorkStealingDeque/internal/dequeiface"
)

// Config describes the concurrency shape of a single bench run.
type Config struct {
	// NumThieves is the number of goroutines concurrently calling Steal.
	NumThieves int

	// PopProbability is the owner's chance, on each iteration, of issuing
	// a Pop instead of a Push, once at least one element is outstanding.
	// Scenario 4 of spec.md calls for "randomised choice among
	// push/pop/steal" on the owner side; thieves always choose steal.
	PopProbability float64
}

// Result reports what a single RunTimedTest call observed.
type Result struct {
	Pushed   int64
	Popped   int64
	Stolen   int64
	Elapsed  time.Duration
}

// RunTimedTest spawns the owner and thief goroutines described by cfg,
// drives them against d for testDuration, then stops the owner, drains
// whatever remains via further owner Pops and thief Steals, and returns
// aggregate counts. valueGenerator produces the value to push for a given
// monotonically increasing push index.
func RunTimedTest[E any, D dequeiface.Interface[E]](
	d D,
	cfg Config,
	testDuration time.Duration,
	valueGenerator func(int) E,
) Result {
	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	start := time.Now()

	var pushed, popped, stolen int64
	var pushIdx int64

	var stop atomic.Bool
	go func() {
		<-ctx.Done()
		stop.Store(true)
	}()

	var ownerWG sync.WaitGroup
	ownerWG.Add(1)
	go func() {
		defer ownerWG.Done()
		rng := rand.New(rand.NewPCG(1, 2))
		for !stop.Load() {
			if d.Size() > 0 && rng.Float64() < cfg.PopProbability {
				if _, ok := d.Pop(); ok {
					atomic.AddInt64(&popped, 1)
				}
				continue
			}
			idx := pushIdx
			pushIdx++
			d.Push(valueGenerator(int(idx)))
			atomic.AddInt64(&pushed, 1)
		}
		// Drain whatever the owner still holds once production has
		// stopped, matching the teacher's drain-on-stop shape.
		for {
			if _, ok := d.Pop(); ok {
				atomic.AddInt64(&popped, 1)
			} else {
				break
			}
		}
	}()

	var thievesWG sync.WaitGroup
	thievesWG.Add(cfg.NumThieves)
	for i := 0; i < cfg.NumThieves; i++ {
		go func() {
			defer thievesWG.Done()
			for {
				if _, ok := d.Steal(); ok {
					atomic.AddInt64(&stolen, 1)
					continue
				}
				if stop.Load() && d.Empty() {
					return
				}
				runtime.Gosched()
			}
		}()
	}

	ownerWG.Wait()
	thievesWG.Wait()

	return Result{
		Pushed:  atomic.LoadInt64(&pushed),
		Popped:  atomic.LoadInt64(&popped),
		Stolen:  atomic.LoadInt64(&stolen),
		Elapsed: time.Since(start),
	}
}
