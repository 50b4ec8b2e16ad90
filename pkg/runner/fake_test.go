package runner

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// fakeLauncher hands out in-memory processes whose lifetime is decided by
// behave.
type fakeLauncher struct {
	behave func(cmd Command) (exitAfter time.Duration, exitErr error, ignoreTerm bool)
	// onLaunch runs inside Launch, before the process is returned.
	onLaunch func(cmd Command)

	mu       sync.Mutex
	commands []Command
	procs    []*fakeProcess

	running    atomic.Int32
	maxRunning atomic.Int32
	nextPid    atomic.Int32
}

func (l *fakeLauncher) Launch(cmd Command) (Process, error) {
	if l.onLaunch != nil {
		l.onLaunch(cmd)
	}
	after, exitErr, ignoreTerm := time.Duration(-1), error(nil), false
	if l.behave != nil {
		after, exitErr, ignoreTerm = l.behave(cmd)
	}

	n := l.running.Add(1)
	for {
		max := l.maxRunning.Load()
		if n <= max || l.maxRunning.CompareAndSwap(max, n) {
			break
		}
	}

	p := &fakeProcess{
		pid:        int(l.nextPid.Add(1)),
		exit:       make(chan error, 1),
		ignoreTerm: ignoreTerm,
		launcher:   l,
	}
	l.mu.Lock()
	l.commands = append(l.commands, cmd)
	l.procs = append(l.procs, p)
	l.mu.Unlock()

	if after >= 0 {
		time.AfterFunc(after, func() { p.finish(exitErr) })
	}
	return p, nil
}

func (l *fakeLauncher) launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.commands)
}

func (l *fakeLauncher) processes() []*fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeProcess{}, l.procs...)
}

type fakeProcess struct {
	pid        int
	exit       chan error
	once       sync.Once
	ignoreTerm bool
	launcher   *fakeLauncher

	mu      sync.Mutex
	signals []os.Signal
	killed  bool
}

func (p *fakeProcess) finish(err error) {
	p.once.Do(func() {
		p.launcher.running.Add(-1)
		p.exit <- err
	})
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Wait() error { return <-p.exit }

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	if sig == syscall.SIGTERM && !p.ignoreTerm {
		p.finish(errors.New("signal: terminated"))
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.finish(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) state() (signals []os.Signal, killed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]os.Signal{}, p.signals...), p.killed
}
