package main

import (
	"testing"

	"github.com/lorenzo-12/quantas-link-delay/pkg/runner"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

func TestParseSelections(t *testing.T) {
	sel, err := parseSelections([]string{"alg23:silent", "bracha:silent_silent", "alg24:opposite_silent_silent"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sel) != 3 || sel[1].Algorithm != sweeptypes.Bracha || sel[1].Combination != "silent_silent" {
		t.Errorf("selections = %+v", sel)
	}

	for _, bad := range []string{"alg23", "paxos:silent", "alg23:silent_silent", "bracha:loud_silent"} {
		if _, err := parseSelections([]string{bad}); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestNewSelector(t *testing.T) {
	settings.Root = t.TempDir()
	settings.MakeBinary = "make"

	sel, err := newSelector("args")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sel.(runner.ArgSelector); !ok {
		t.Errorf("args selector is %T", sel)
	}
	sel, err = newSelector("file")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sel.(*runner.FileSelector); !ok {
		t.Errorf("file selector is %T", sel)
	}
	if _, err := newSelector("env"); err == nil {
		t.Error("unknown selector accepted")
	}
}
