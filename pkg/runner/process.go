package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Process is a started child.
type Process interface {
	Pid() int
	Wait() error
	Signal(sig os.Signal) error
	Kill() error
}

type Launcher interface {
	Launch(cmd Command) (Process, error)
}

// ExecLauncher starts children with os/exec. Each child leads its own
// process group so signals reach whatever make spawns underneath.
type ExecLauncher struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (l ExecLauncher) Launch(c Command) (Process, error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Signal(sig os.Signal) error {
	return signalGroup(p.cmd.Process, sig)
}

func (p *execProcess) Kill() error {
	return killGroup(p.cmd.Process)
}
