package runner

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

const (
	markerOpen  = "#----->"
	markerClose = "#<-----"
)

var ErrNoMarkerBlock = errors.New("makefile has no selection marker block")

// Selector binds a job to the external tool's input selection and starts
// the tool. Implementations must never let one job observe another job's
// selection.
type Selector interface {
	Start(job sweeptypes.Job, l Launcher) (Process, error)
}

// MakeTarget describes how the external tool is driven through make.
type MakeTarget struct {
	Binary string
	Dir    string
	Target string
	// Makefile returns the per-algorithm makefile.
	Makefile func(alg sweeptypes.Algorithm) string
}

func (m MakeTarget) command(makefile string, extra ...string) Command {
	target := m.Target
	if target == "" {
		target = "run"
	}
	binary := m.Binary
	if binary == "" {
		binary = "make"
	}
	return Command{
		Name: binary,
		Args: append([]string{"-f", makefile, target}, extra...),
		Dir:  m.Dir,
	}
}

// ArgSelector passes the selection as make command-line variables, which
// override the makefile's own assignments. Nothing on disk is shared.
type ArgSelector struct {
	MakeTarget
}

func (s ArgSelector) Start(job sweeptypes.Job, l Launcher) (Process, error) {
	cmd := s.command(s.Makefile(job.Algorithm),
		"INPUTFILE="+job.Name(),
		"ALGFILE="+job.Algorithm.PeerClass(),
	)
	return l.Launch(cmd)
}

// FileSelector writes a per-job copy of the makefile with the marker block
// rewritten. Writing the copy and spawning happen under one lock.
type FileSelector struct {
	MakeTarget
	// WorkDir receives the derived makefiles.
	WorkDir string

	mu sync.Mutex
}

func (s *FileSelector) Start(job sweeptypes.Job, l Launcher) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, err := os.ReadFile(s.Makefile(job.Algorithm))
	if err != nil {
		return nil, fmt.Errorf("read makefile: %w", err)
	}
	derived, err := RewriteSelection(template, job.Name(), job.Algorithm.PeerClass())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Makefile(job.Algorithm), err)
	}

	if err := os.MkdirAll(s.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	path := s.DerivedPath(job)
	if err := os.WriteFile(path, derived, 0644); err != nil {
		return nil, fmt.Errorf("write derived makefile: %w", err)
	}

	p, err := l.Launch(s.command(path))
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return &cleanupProcess{Process: p, cleanup: func() { os.Remove(path) }}, nil
}

// DerivedPath is the makefile copy used for job.
func (s *FileSelector) DerivedPath(job sweeptypes.Job) string {
	base := strings.TrimSuffix(job.Name(), filepath.Ext(job.Name()))
	return filepath.Join(s.WorkDir, fmt.Sprintf("makefile_%s_%s", job.Algorithm, base))
}

// RewriteSelection replaces the lines between the selection markers with
// INPUTFILE and ALGFILE assignments.
func RewriteSelection(makefile []byte, inputFile, algFile string) ([]byte, error) {
	var (
		out    bytes.Buffer
		inside bool
		found  bool
	)
	sc := bufio.NewScanner(bytes.NewReader(makefile))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, markerOpen):
			inside, found = true, true
			fmt.Fprintf(&out, "%s\nINPUTFILE := %s\nALGFILE := %s\n%s\n", markerOpen, inputFile, algFile, markerClose)
		case strings.Contains(line, markerClose):
			inside = false
		case inside:
		default:
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoMarkerBlock
	}
	if inside {
		return nil, fmt.Errorf("%w: unterminated", ErrNoMarkerBlock)
	}
	return out.Bytes(), nil
}

type cleanupProcess struct {
	Process
	cleanup func()
}

func (p *cleanupProcess) Wait() error {
	err := p.Process.Wait()
	p.cleanup()
	return err
}
