package generator

import "github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"

// Input file layout of the simulator: one file per (algorithm, combination)
// holding one experiment per (n, f, p).

type experimentFile struct {
	Experiments []experiment `json:"experiments"`
}

type experiment struct {
	Parameters   parameters   `json:"parameters"`
	Distribution Distribution `json:"distribution"`
	Topology     topology     `json:"topology"`
	LogFile      string       `json:"logFile"`
	Tests        int          `json:"tests"`
	Rounds       int          `json:"rounds"`
	Algorithm    string       `json:"algorithm"`
	OutputStatus string       `json:"output_status"`
}

type parameters struct {
	DebugPrints    bool                   `json:"debug_prints"`
	N              int                    `json:"n"`
	F              int                    `json:"f"`
	Percentage     int                    `json:"percentage"`
	ByzantineNodes []int                  `json:"byzantine_nodes"`
	Sender         int                    `json:"sender"`
	HonestGroup0   []int                  `json:"honest_group_0"`
	HonestGroup1   []int                  `json:"honest_group_1"`
	Combination    sweeptypes.Combination `json:"combination"`
}

type topology struct {
	Type         string `json:"type"`
	InitialPeers int    `json:"initialPeers"`
	TotalPeers   int    `json:"totalPeers"`
}

// ReadConfigFile returns the (n, f, p) count and trials of a written config
// file, which is what the progress monitor needs to size a job.
func ReadConfigFile(path string) (records, trials int, err error) {
	var file experimentFile
	if err := readJSON(path, &file); err != nil {
		return 0, 0, err
	}
	for _, e := range file.Experiments {
		trials += e.Tests
	}
	return len(file.Experiments), trials, nil
}
