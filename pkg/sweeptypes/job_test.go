package sweeptypes

import "testing"

func TestJobList(t *testing.T) {
	jobs, err := ParseJobList(`[["Alg24Peer","alg24_same_same_same.json"],["BrachaPeer","bracha_silent_same.json"]]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 || jobs[0].Algorithm != Alg24 || jobs[1].Name() != "bracha_silent_same.json" {
		t.Fatalf("jobs = %+v", jobs)
	}

	encoded, err := EncodeJobList(jobs)
	if err != nil {
		t.Fatal(err)
	}
	if encoded != `[["Alg24Peer","alg24_same_same_same.json"],["BrachaPeer","bracha_silent_same.json"]]` {
		t.Errorf("encoded = %s", encoded)
	}

	for _, bad := range []string{
		`[["PaxosPeer","x.json"]]`,
		`[["Alg23Peer","../x.json"]]`,
		`[["Alg23Peer",""]]`,
		`not json`,
	} {
		if _, err := ParseJobList(bad); err == nil {
			t.Errorf("%s accepted", bad)
		}
	}
}

func TestJobState(t *testing.T) {
	if Running.Terminal() || Queued.Terminal() {
		t.Error("non-terminal state reported terminal")
	}
	for _, s := range []JobState{Succeeded, Failed, Cancelled} {
		if !s.Terminal() {
			t.Errorf("%s not terminal", s)
		}
	}
	b, _ := Cancelled.MarshalJSON()
	if string(b) != `"cancelled"` {
		t.Errorf("MarshalJSON = %s", b)
	}
}
