// Package scripts writes cluster submission scripts that run a job list in
// batches of MaxConcurrency.
package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

// DefaultTemplate targets an OAR scheduler; {{.Alg}} and {{.List}} are
// substituted per batch.
const DefaultTemplate = `#!/bin/bash

#OAR -l { host in ('big16','big17','big18', 'big19', 'big20')}/core=48,walltime=1000:0:0

source /etc/profile.d/modules.sh
module purge

{{.Binary}} run --alg "{{.Alg}}" --list '{{.List}}'
`

type batch struct {
	Binary string
	Alg    string
	List   string
}

// Writer emits one executable script per batch.
type Writer struct {
	Dir       string
	BatchSize int
	Binary    string
	tmpl      *template.Template
}

func NewWriter(dir string, batchSize int, binary, tmpl string) (*Writer, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", batchSize)
	}
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	t, err := template.New("script").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse script template: %w", err)
	}
	if binary == "" {
		binary = "./sweep"
	}
	return &Writer{Dir: dir, BatchSize: batchSize, Binary: binary, tmpl: t}, nil
}

// Batches splits jobs into consecutive groups of at most size.
func Batches(jobs []sweeptypes.Job, size int) [][]sweeptypes.Job {
	var out [][]sweeptypes.Job
	for start := 0; start < len(jobs); start += size {
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		out = append(out, jobs[start:end])
	}
	return out
}

// Write produces script_<alg>_<i>.sh for i starting at 1 and returns the
// paths written.
func (w *Writer) Write(alg sweeptypes.Algorithm, jobs []sweeptypes.Job) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", w.Dir, err)
	}
	var paths []string
	for i, b := range Batches(jobs, w.BatchSize) {
		list, err := sweeptypes.EncodeJobList(b)
		if err != nil {
			return paths, err
		}
		if strings.Contains(list, "'") {
			return paths, fmt.Errorf("job list contains a single quote: %s", list)
		}
		var sb strings.Builder
		if err := w.tmpl.Execute(&sb, batch{Binary: w.Binary, Alg: string(alg), List: list}); err != nil {
			return paths, fmt.Errorf("render script: %w", err)
		}
		path := filepath.Join(w.Dir, fmt.Sprintf("script_%s_%d.sh", alg, i+1))
		if err := os.WriteFile(path, []byte(sb.String()), 0755); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
