package runner

import (
	"log"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Handle is a child under supervision. Done is closed once Wait returned.
type Handle struct {
	ID   string
	proc Process
	done chan struct{}
	err  error
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err is the exit error; only meaningful after Done is closed.
func (h *Handle) Err() error {
	<-h.done
	return h.err
}

func (h *Handle) Pid() int {
	return h.proc.Pid()
}

// Supervisor owns the registry of live children.
type Supervisor struct {
	mu   sync.Mutex
	live map[string]*Handle
}

func NewSupervisor() *Supervisor {
	return &Supervisor{live: make(map[string]*Handle)}
}

// Track registers p and reaps it in the background. The entry leaves the
// registry as soon as the child exits.
func (s *Supervisor) Track(id string, p Process) *Handle {
	h := &Handle{ID: id, proc: p, done: make(chan struct{})}

	s.mu.Lock()
	s.live[id] = h
	s.mu.Unlock()

	go func() {
		h.err = p.Wait()
		s.mu.Lock()
		delete(s.live, id)
		s.mu.Unlock()
		close(h.done)
	}()
	return h
}

// Live lists the ids of children that have not exited yet.
func (s *Supervisor) Live() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stop asks h to terminate, force-kills it after grace and returns once it
// has exited. It reports whether the kill was needed.
func (s *Supervisor) Stop(h *Handle, grace time.Duration) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	if err := h.proc.Signal(syscall.SIGTERM); err != nil {
		log.Printf("[supervisor] SIGTERM %s (pid %d): %v", h.ID, h.Pid(), err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-h.done:
		return false
	case <-timer.C:
	}

	log.Printf("[supervisor] %s (pid %d) still alive after %s, killing", h.ID, h.Pid(), grace)
	if err := h.proc.Kill(); err != nil {
		log.Printf("[supervisor] kill %s: %v", h.ID, err)
	}
	<-h.done
	return true
}
