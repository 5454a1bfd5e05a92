// Package locks implements per-path reader/writer locks with writer
// preference. A whole lock set is granted atomically or not at all, waits
// are cancellable through context, and the special Stomp mode takes write
// ownership that may coexist with other stompers on the same path.
package locks

import (
	"context"
	"sort"
	"sync"

	"github.com/hkdev/hk/pkg/logger"
)

var lockLog = logger.New("locks:table")

// Mode is the access mode for an acquisition.
type Mode int

const (
	// Read allows any number of concurrent readers.
	Read Mode = iota
	// Write is exclusive against everything else.
	Write
	// Stomp is a writer that tolerates other stompers on the same path,
	// trusting the tool's own locking.
	Stomp
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "stomp"
	}
}

type slot struct {
	readers        int
	writer         bool
	stompers       int
	pendingWriters int
}

func (s *slot) idle() bool {
	return s.readers == 0 && !s.writer && s.stompers == 0 && s.pendingWriters == 0
}

// Table is the process-wide lock table for one hook run.
type Table struct {
	mu    sync.Mutex
	slots map[string]*slot
	// gen is closed and replaced on every release so parked acquirers
	// re-evaluate their lock sets.
	gen chan struct{}
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{
		slots: map[string]*slot{},
		gen:   make(chan struct{}),
	}
}

// Guard is a scoped acquisition. Release is idempotent.
type Guard struct {
	table    *Table
	paths    []string
	mode     Mode
	released bool
	mu       sync.Mutex
}

// Acquire reserves every path in the set for the given mode, blocking until
// the whole set is free. The set is evaluated atomically: either every path
// is granted or the caller parks. Waits observe ctx cancellation.
func Acquire(ctx context.Context, t *Table, paths []string, mode Mode) (*Guard, error) {
	set := normalize(paths)
	for {
		t.mu.Lock()
		if t.grantable(set, mode) {
			t.grant(set, mode)
			t.mu.Unlock()
			lockLog.Printf("acquired %s on %d paths", mode, len(set))
			return &Guard{table: t, paths: set, mode: mode}, nil
		}
		if mode == Write || mode == Stomp {
			for _, p := range set {
				t.slot(p).pendingWriters++
			}
		}
		wait := t.gen
		t.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			if mode == Write || mode == Stomp {
				t.mu.Lock()
				for _, p := range set {
					t.slot(p).pendingWriters--
				}
				t.cleanup(set)
				t.mu.Unlock()
				t.wake()
			}
			return nil, ctx.Err()
		}

		if mode == Write || mode == Stomp {
			t.mu.Lock()
			for _, p := range set {
				t.slot(p).pendingWriters--
			}
			t.mu.Unlock()
		}
	}
}

// TryAcquire is the non-blocking variant; it returns a nil Guard when the
// set cannot be reserved immediately.
func TryAcquire(t *Table, paths []string, mode Mode) *Guard {
	set := normalize(paths)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.grantable(set, mode) {
		return nil
	}
	t.grant(set, mode)
	return &Guard{table: t, paths: set, mode: mode}
}

// Release frees the guard's paths. Safe to call more than once.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	g.mu.Unlock()

	t := g.table
	t.mu.Lock()
	for _, p := range g.paths {
		s := t.slot(p)
		switch g.mode {
		case Read:
			s.readers--
		case Write:
			s.writer = false
		case Stomp:
			s.stompers--
		}
	}
	t.cleanup(g.paths)
	t.mu.Unlock()
	t.wake()
}

// Paths returns the sorted path set this guard holds.
func (g *Guard) Paths() []string { return g.paths }

// Mode returns the guard's access mode.
func (g *Guard) Mode() Mode { return g.mode }

// grantable checks the whole set under the table mutex. Writer preference:
// a parked writer on a path blocks new readers, so a steady stream of reads
// cannot starve writes.
func (t *Table) grantable(set []string, mode Mode) bool {
	for _, p := range set {
		s := t.slots[p]
		if s == nil {
			continue
		}
		switch mode {
		case Read:
			if s.writer || s.stompers > 0 || s.pendingWriters > 0 {
				return false
			}
		case Write:
			if s.writer || s.stompers > 0 || s.readers > 0 {
				return false
			}
		case Stomp:
			if s.writer || s.readers > 0 {
				return false
			}
		}
	}
	return true
}

func (t *Table) grant(set []string, mode Mode) {
	for _, p := range set {
		s := t.slot(p)
		switch mode {
		case Read:
			s.readers++
		case Write:
			s.writer = true
		case Stomp:
			s.stompers++
		}
	}
}

func (t *Table) slot(p string) *slot {
	s := t.slots[p]
	if s == nil {
		s = &slot{}
		t.slots[p] = s
	}
	return s
}

func (t *Table) cleanup(set []string) {
	for _, p := range set {
		if s := t.slots[p]; s != nil && s.idle() {
			delete(t.slots, p)
		}
	}
}

func (t *Table) wake() {
	t.mu.Lock()
	close(t.gen)
	t.gen = make(chan struct{})
	t.mu.Unlock()
}

func normalize(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	set := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		set = append(set, p)
	}
	sort.Strings(set)
	return set
}
