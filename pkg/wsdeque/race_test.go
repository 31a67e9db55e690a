package wsdeque

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

// TestSingleElementStealRace is spec.md scenario 1: exactly one of several
// concurrent thieves contesting a single element wins it.
func TestSingleElementStealRace(t *testing.T) {
	const nthieves = 4
	d := New[int](16)
	d.Push(100)

	var seen atomic.Int64
	var wg sync.WaitGroup
	wg.Add(nthieves)
	for i := 0; i < nthieves; i++ {
		go func() {
			defer wg.Done()
			if v, ok := d.Steal(); ok {
				if v != 100 {
					t.Errorf("steal returned %d, want 100", v)
				}
				seen.Add(1)
			}
		}()
	}
	wg.Wait()

	if seen.Load() != 1 {
		t.Fatalf("exactly one thief should have won the steal, got %d", seen.Load())
	}
}

// TestLastItemRacePopVsSteal is spec.md's "last-item race": one owner Pop
// races any number of concurrent Steals over a single remaining element;
// exactly one of them returns it.
func TestLastItemRacePopVsSteal(t *testing.T) {
	const trials = 2000
	const nthieves = 4

	for trial := 0; trial < trials; trial++ {
		d := New[int](16)
		d.Push(trial)

		var winners atomic.Int64
		var wg sync.WaitGroup
		wg.Add(nthieves)
		for i := 0; i < nthieves; i++ {
			go func() {
				defer wg.Done()
				if _, ok := d.Steal(); ok {
					winners.Add(1)
				}
			}()
		}

		if _, ok := d.Pop(); ok {
			winners.Add(1)
		}

		wg.Wait()

		if winners.Load() != 1 {
			t.Fatalf("trial %d: exactly one of pop/steal should win, got %d", trial, winners.Load())
		}
	}
}

// TestConcurrentProducerVsThievesTriviallyCopyable is spec.md scenario 2.
func TestConcurrentProducerVsThievesTriviallyCopyable(t *testing.T) {
	const total = 100_000
	const nthieves = 4

	wd := newWatchdog(t, "ProducerVsThieves")
	wd.Start()
	defer wd.Stop()

	d := New[int](1024)

	var stolen atomic.Int64
	var popped atomic.Int64
	stop := make(chan struct{})

	var thievesWG sync.WaitGroup
	thievesWG.Add(nthieves)
	for i := 0; i < nthieves; i++ {
		go func() {
			defer thievesWG.Done()
			for {
				if v, ok := d.Steal(); ok {
					if v != 1 {
						t.Errorf("stole %d, want 1", v)
					}
					stolen.Add(1)
					wd.Progress()
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		d.Push(1)
		if i%997 == 0 {
			wd.Progress()
		}
	}

	for {
		if _, ok := d.Pop(); ok {
			popped.Add(1)
			continue
		}
		break
	}
	close(stop)
	thievesWG.Wait()

	if got := stolen.Load() + popped.Load(); got != total {
		t.Fatalf("stolen(%d)+popped(%d) = %d, want %d", stolen.Load(), popped.Load(), got, total)
	}
}

// TestConcurrentProducerVsThievesNonTrivialElement is spec.md scenario 3:
// the same shape as scenario 2 but with a multi-field element carrying a
// variable-length string, to exercise the generic path against a non-scalar
// E.
func TestConcurrentProducerVsThievesNonTrivialElement(t *testing.T) {
	type job struct {
		Label int
		Name  string
	}

	const total = 20_000
	const nthieves = 4

	wd := newWatchdog(t, "NonTrivialElement")
	wd.Start()
	defer wd.Stop()

	d := New[job](1024)

	var mu sync.Mutex
	seen := make(map[int]bool, total)

	stop := make(chan struct{})
	var thievesWG sync.WaitGroup
	thievesWG.Add(nthieves)
	for i := 0; i < nthieves; i++ {
		go func() {
			defer thievesWG.Done()
			for {
				if v, ok := d.Steal(); ok {
					mu.Lock()
					seen[v.Label] = true
					mu.Unlock()
					wd.Progress()
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		d.Push(job{Label: i, Name: "payload-" + strconv.Itoa(i)})
		if i%997 == 0 {
			wd.Progress()
		}
	}

	for {
		if v, ok := d.Pop(); ok {
			mu.Lock()
			seen[v.Label] = true
			mu.Unlock()
			continue
		}
		break
	}
	close(stop)
	thievesWG.Wait()

	if len(seen) != total {
		t.Fatalf("saw %d distinct labels, want %d", len(seen), total)
	}
}

// TestGrowthTransparentToConcurrentStealers is spec.md's growth boundary
// behaviour: pushing past the current capacity doubles it without
// corrupting values a concurrent stealer observes mid-growth.
func TestGrowthTransparentToConcurrentStealers(t *testing.T) {
	const total = 5000
	const nthieves = 4

	wd := newWatchdog(t, "GrowthTransparency")
	wd.Start()
	defer wd.Stop()

	d := New[int](2)

	var mu sync.Mutex
	seen := make(map[int]bool, total)

	stop := make(chan struct{})
	var thievesWG sync.WaitGroup
	thievesWG.Add(nthieves)
	for i := 0; i < nthieves; i++ {
		go func() {
			defer thievesWG.Done()
			for {
				if v, ok := d.Steal(); ok {
					mu.Lock()
					if seen[v] {
						t.Errorf("duplicate value %d stolen", v)
					}
					seen[v] = true
					mu.Unlock()
					wd.Progress()
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		d.Push(i)
		if i%500 == 0 {
			wd.Progress()
		}
	}

	for {
		if v, ok := d.Pop(); ok {
			mu.Lock()
			if seen[v] {
				t.Errorf("duplicate value %d popped", v)
			}
			seen[v] = true
			mu.Unlock()
			continue
		}
		break
	}
	close(stop)
	thievesWG.Wait()

	if len(seen) != total {
		t.Fatalf("saw %d distinct values, want %d (conservation/exclusivity violated)", len(seen), total)
	}
}
