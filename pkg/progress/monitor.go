package progress

import (
	"context"
	"io"
	"log"
	"sync"
	"time"
)

const clearScreen = "\033[H\033[2J"

// Monitor polls a Tracker on a fixed interval, renders each snapshot and
// fans it out to subscribers. It never influences scheduling.
type Monitor struct {
	Tracker  *Tracker
	Interval time.Duration
	Out      io.Writer
	// Clear repaints the terminal before each render.
	Clear bool

	mu     sync.Mutex
	latest Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

func NewMonitor(t *Tracker, interval time.Duration, out io.Writer) *Monitor {
	return &Monitor{Tracker: t, Interval: interval, Out: out, subs: make(map[int]chan Snapshot)}
}

// Latest is the most recent snapshot, zero before the first poll.
func (m *Monitor) Latest() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// Subscribe returns a channel receiving every new snapshot. Slow readers only
// see the newest one. The cancel func must be called to release it.
func (m *Monitor) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = make(map[int]chan Snapshot)
	}
	id := m.nextID
	m.nextID++
	ch := make(chan Snapshot, 1)
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// Poll takes one snapshot, renders it and notifies subscribers.
func (m *Monitor) Poll() (Snapshot, error) {
	snap, err := m.Tracker.Snapshot()
	if err != nil {
		return Snapshot{}, err
	}
	if m.Out != nil {
		if m.Clear {
			io.WriteString(m.Out, clearScreen)
		}
		if err := Render(m.Out, snap); err != nil {
			return snap, err
		}
	}

	m.mu.Lock()
	m.latest = snap
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
	m.mu.Unlock()
	return snap, nil
}

// Run polls until ctx is done. Read errors are logged and retried on the
// next tick.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := m.Poll(); err != nil {
			log.Printf("[monitor] %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
