package runtime

import "sync"

// inflight counts running flows. Unlike sync.WaitGroup, add may race wait:
// hosts dispatching from several goroutines each wait for the counter to
// drain, which covers their own flows and whatever else is running.
type inflight struct {
	mu   sync.Mutex
	idle *sync.Cond
	n    int
}

func newInflight() *inflight {
	f := &inflight{}
	f.idle = sync.NewCond(&f.mu)
	return f
}

func (f *inflight) add() {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

func (f *inflight) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n < 0 {
		panic("runtime: negative inflight counter")
	}
	if f.n == 0 {
		f.idle.Broadcast()
	}
}

func (f *inflight) wait() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.n > 0 {
		f.idle.Wait()
	}
}
