package progress

import (
	"fmt"
	"io"
	"strings"
)

const barWidth = 100

// FormatRow renders `name: [####....] pct%  - count/expected`.
func FormatRow(r Row) string {
	return fmt.Sprintf("%-40s: [%s%s] %-3d%%  - %4d/%d",
		r.Name,
		strings.Repeat("#", r.Percent),
		strings.Repeat(".", barWidth-r.Percent),
		r.Percent, r.Count, r.Expected)
}

// Render writes the per-job rows grouped by algorithm, each group followed by
// its aggregate row and a blank line.
func Render(w io.Writer, s Snapshot) error {
	var b strings.Builder
	b.WriteString("Status so far:\n")

	totals := make(map[string]Row, len(s.Groups))
	for _, g := range s.Groups {
		totals[g.Name] = g
	}

	for i, r := range s.Jobs {
		b.WriteString(FormatRow(r))
		b.WriteByte('\n')
		last := i == len(s.Jobs)-1 || s.Jobs[i+1].Group != r.Group
		if !last {
			continue
		}
		if total, ok := totals[r.Group]; ok && r.Group != "" {
			total.Name = "[" + r.Group + "]"
			b.WriteString(FormatRow(total))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	if s.Unknown > 0 {
		fmt.Fprintf(&b, "(%d unrecognised status lines)\n", s.Unknown)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
