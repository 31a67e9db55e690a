// Package scheduler implements a small Cilk-style work-stealing worker pool
// on top of wsdeque.Deque: each worker owns exactly one deque, pops its own
// tasks first, checks the pool's shared root queue next, and steals from a
// randomly chosen peer when both are dry. It exists to exercise the deque in
// the role spec.md's purpose section names it for ("the per-worker task
// queue in a Cilk-style work-stealing scheduler"), and is grounded on the
// mutex-guarded work-stealing pool in
// other_examples/wyf-ACCEPT-eth2030__work_stealing.go: that file's
// mutex-guarded workDeque is kept here, narrowed to the one job an arbitrary
// caller actually needs a lock for — external Submit, which a worker's own
// lock-free deque cannot safely accept since its Push/Pop side is
// single-producer only. Worker-owned deques are still the lock-free
// wsdeque.Deque, rebuilt around it instead of a sync.Mutex-protected slice.
package scheduler

import (
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/i5heu/GoWorkStealingDeque/pkg/wsdeque"
)

// ErrClosed is returned by Submit once the pool has been shut down.
var ErrClosed = errors.New("scheduler: pool is closed")

// Task is a unit of work submitted to the pool. A task that wants to fan out
// further work calls Pool.Go (or Worker.Spawn, from inside a running task)
// to push more tasks onto the current worker's deque.
type Task func(w *Worker)

// Worker is the per-goroutine handle a running Task receives, giving it
// access to its own deque for further fan-out without exposing the pool's
// internals.
type Worker struct {
	id    int
	pool  *Pool
	deque *wsdeque.Deque[Task]
}

// Spawn pushes a new task onto this worker's own deque. Only valid from
// inside a Task running on this worker — it is, in effect, the owner-only
// Push call the deque's single-producer contract requires, enforced here by
// construction: a Worker value is only ever handed to the goroutine that
// owns its deque.
func (w *Worker) Spawn(t Task) {
	w.pool.inFlight.Add(1)
	w.deque.Push(t)
}

// ID returns the worker's index in [0, Pool.Workers()).
func (w *Worker) ID() int { return w.id }

// rootQueue is a mutex-guarded FIFO for tasks submitted from outside the
// pool. Unlike a worker's own wsdeque.Deque, it must tolerate concurrent
// pushes from arbitrary caller goroutines, which the deque's single-producer
// contract forbids.
type rootQueue struct {
	mu    sync.Mutex
	tasks []Task
}

func (q *rootQueue) push(t Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
}

func (q *rootQueue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// Pool is a fixed-size work-stealing worker pool.
type Pool struct {
	workers  []*Worker
	deques   []*wsdeque.Deque[Task]
	root     rootQueue
	wg       sync.WaitGroup
	closing  atomic.Bool
	inFlight atomic.Int64
	done     chan struct{}
}

// New creates a pool of numWorkers goroutines, each backed by a deque of the
// given initial capacity (DefaultCapacity is used if capacity <= 0). If
// numWorkers <= 0, runtime.NumCPU() is used, matching the corpus convention
// (teacher's pkg/multiheadqueue.New and the work-stealing reference file
// both default shard/worker counts to runtime.NumCPU()).
func New(numWorkers, capacity int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*Worker, numWorkers),
		deques:  make([]*wsdeque.Deque[Task], numWorkers),
		done:    make(chan struct{}),
	}

	for i := range p.deques {
		p.deques[i] = wsdeque.New[Task](capacity)
		p.workers[i] = &Worker{id: i, pool: p, deque: p.deques[i]}
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.workerLoop(p.workers[i])
	}

	return p
}

// Workers returns the number of worker goroutines in the pool.
func (p *Pool) Workers() int { return len(p.workers) }

// Submit enqueues a root task on the pool's shared root queue, to be picked
// up by whichever worker checks it next. It returns ErrClosed once Close has
// been called. Submit is safe to call from any goroutine, including
// concurrently with itself, since the root queue is mutex-guarded rather
// than one of the workers' single-producer deques.
func (p *Pool) Submit(t Task) error {
	if p.closing.Load() {
		return ErrClosed
	}
	p.inFlight.Add(1)
	p.root.push(t)
	return nil
}

// Wait blocks until every submitted task (and every task it transitively
// spawned) has run.
func (p *Pool) Wait() {
	for p.inFlight.Load() > 0 {
		runtime.Gosched()
	}
}

// Close signals every worker to stop once its own deque, the root queue, and
// every peer's deque are all observed empty, and waits for them to exit.
// Close must only be called once all submitted work is known to have
// completed (e.g. after Wait), since a worker that observes everything empty
// exits even if more work is about to be Submitted concurrently — matching
// spec.md's stated lack of any built-in backpressure or blocking/signalling
// primitive.
func (p *Pool) Close() {
	p.closing.Store(true)
	close(p.done)
	p.wg.Wait()
	for _, d := range p.deques {
		d.Close()
	}
}

func (p *Pool) workerLoop(w *Worker) {
	defer p.wg.Done()
	for {
		if t, ok := w.deque.Pop(); ok {
			t(w)
			p.inFlight.Add(-1)
			continue
		}

		if t, ok := p.root.pop(); ok {
			t(w)
			p.inFlight.Add(-1)
			continue
		}

		if t, ok := p.stealOne(w.id); ok {
			t(w)
			p.inFlight.Add(-1)
			continue
		}

		select {
		case <-p.done:
			return
		default:
			runtime.Gosched()
		}
	}
}

// stealOne tries every peer deque once, starting at a random offset so that
// repeated idle workers don't all hammer the same victim in lock-step.
func (p *Pool) stealOne(self int) (Task, bool) {
	n := len(p.deques)
	if n <= 1 {
		return nil, false
	}
	start := rand.IntN(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if idx == self {
			continue
		}
		if t, ok := p.deques[idx].Steal(); ok {
			return t, true
		}
	}
	return nil, false
}
