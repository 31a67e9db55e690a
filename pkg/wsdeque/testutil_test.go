package wsdeque

import (
	"sync/atomic"
	"testing"
	"time"
)

// progressWatchdog fails the test if no progress is reported for a while,
// so a genuine deadlock in a concurrent test shows up as a clear failure
// instead of a hung test run. Styled on the teacher's
// cmd/bench/race_condition_test.go progressWatchdog.
type progressWatchdog struct {
	t            *testing.T
	label        string
	lastProgress atomic.Int64
	done         chan struct{}
}

func newWatchdog(t *testing.T, label string) *progressWatchdog {
	wd := &progressWatchdog{t: t, label: label, done: make(chan struct{})}
	wd.lastProgress.Store(time.Now().UnixNano())
	return wd
}

func (wd *progressWatchdog) Start() {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				last := wd.lastProgress.Load()
				if time.Since(time.Unix(0, last)) > 15*time.Second {
					wd.t.Errorf("no progress in the last 15 seconds (%s likely stuck)", wd.label)
					return
				}
			case <-wd.done:
				return
			}
		}
	}()
}

func (wd *progressWatchdog) Progress() {
	wd.lastProgress.Store(time.Now().UnixNano())
}

func (wd *progressWatchdog) Stop() {
	close(wd.done)
}
