package sweeptypes

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// JobState follows Queued -> Running -> {Succeeded, Failed, Cancelled}.
type JobState int

const (
	Queued JobState = iota
	Running
	Succeeded
	Failed
	Cancelled
)

func (s JobState) String() string {
	switch s {
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

func (s JobState) Terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

func (s JobState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Job is one external-tool invocation over one configuration file.
type Job struct {
	ID         string    `json:"id"`
	Algorithm  Algorithm `json:"algorithm"`
	ConfigFile string    `json:"config_file"`
}

// Name is the token the simulator appends to the status log for this job.
func (j Job) Name() string {
	return filepath.Base(j.ConfigFile)
}

// Pair is the [peerClass, configFileName] form used by job lists.
func (j Job) Pair() [2]string {
	return [2]string{j.Algorithm.PeerClass(), j.Name()}
}

// ParseJobList decodes a JSON array of [peerClass, configFileName] pairs.
func ParseJobList(data string) ([]Job, error) {
	var pairs [][2]string
	if err := json.Unmarshal([]byte(data), &pairs); err != nil {
		return nil, fmt.Errorf("parse job list: %w", err)
	}
	jobs := make([]Job, 0, len(pairs))
	for i, p := range pairs {
		alg, err := AlgorithmForPeer(p[0])
		if err != nil {
			return nil, fmt.Errorf("job list entry %d: %w", i, err)
		}
		if p[1] == "" || strings.ContainsAny(p[1], `/\`) {
			return nil, fmt.Errorf("job list entry %d: invalid config file name %q", i, p[1])
		}
		jobs = append(jobs, Job{Algorithm: alg, ConfigFile: p[1]})
	}
	return jobs, nil
}

// EncodeJobList is the inverse of ParseJobList.
func EncodeJobList(jobs []Job) (string, error) {
	pairs := make([][2]string, len(jobs))
	for i, j := range jobs {
		pairs[i] = j.Pair()
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
