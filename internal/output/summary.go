package output

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/filewatch/internal/domain"
)

// SummaryRow is one source's line in the exit summary.
type SummaryRow struct {
	Source      domain.Source
	State       domain.SourceState
	Lines       uint64
	Bytes       uint64
	Truncations uint64
	Errors      uint64
	LastErr     string
}

// WriteSummary renders the per-source exit table.
func WriteSummary(w io.Writer, rows []SummaryRow) error {
	table := tablewriter.NewWriter(w)
	table.Header("Source", "Path", "State", "Lines", "Bytes", "Truncations", "Errors", "Last Error")

	var lines, bytes uint64
	for _, r := range rows {
		lines += r.Lines
		bytes += r.Bytes
		if err := table.Append([]string{
			r.Source.String(),
			r.Source.Path,
			StateStyle(r.State, r.Errors).Render(r.State.String()),
			humanize.Comma(int64(r.Lines)),
			humanize.Bytes(r.Bytes),
			humanize.Comma(int64(r.Truncations)),
			humanize.Comma(int64(r.Errors)),
			r.LastErr,
		}); err != nil {
			return fmt.Errorf("summary row %s: %w", r.Source, err)
		}
	}
	table.Footer("", "total", "", humanize.Comma(int64(lines)), humanize.Bytes(bytes), "", "", "")
	return table.Render()
}
