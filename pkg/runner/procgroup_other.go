//go:build !unix

package runner

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func signalGroup(p *os.Process, sig os.Signal) error {
	return p.Signal(sig)
}

func killGroup(p *os.Process) error {
	return p.Kill()
}
