// Command benchguard fails CI when the viewer's hot paths (merging, store
// appends, filter rebuilds, viewport resolution) get slower between two
// `go test -bench -benchmem` runs.
package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

type cli struct {
	Base           string  `required:"" type:"existingfile" help:"Benchmark output of the base revision"`
	Head           string  `required:"" type:"existingfile" help:"Benchmark output of the head revision"`
	Match          string  `default:"^Benchmark" help:"Only compare benchmarks whose name matches this regex"`
	MaxTimeRatio   float64 `default:"2.0" help:"Fail if time/op regresses by more than this ratio"`
	MaxBytesRatio  float64 `default:"1.5" help:"Fail if B/op regresses by more than this ratio"`
	MaxAllocsRatio float64 `default:"1.5" help:"Fail if allocs/op regresses by more than this ratio"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c, kong.Name("benchguard"), kong.UsageOnError())
	code, err := c.run(os.Stdout)
	kctx.FatalIfErrorf(err)
	os.Exit(code)
}

func (c *cli) run(w io.Writer) (int, error) {
	filter, err := regexp.Compile(c.Match)
	if err != nil {
		return 2, fmt.Errorf("invalid --match: %w", err)
	}
	base, err := parseFile(c.Base)
	if err != nil {
		return 2, fmt.Errorf("failed to parse base: %w", err)
	}
	head, err := parseFile(c.Head)
	if err != nil {
		return 2, fmt.Errorf("failed to parse head: %w", err)
	}

	compared, regressions := compare(base, head, limits{
		Time:   c.MaxTimeRatio,
		Bytes:  c.MaxBytesRatio,
		Allocs: c.MaxAllocsRatio,
	}, filter)
	if compared == 0 {
		return 2, fmt.Errorf("no overlapping benchmarks found between base and head outputs")
	}
	if len(regressions) == 0 {
		fmt.Fprintf(w, "benchguard: ok (%d benchmarks compared)\n", compared)
		return 0, nil
	}

	fmt.Fprintf(w, "benchguard: found %d regressions (%d benchmarks compared)\n", len(regressions), compared)
	if err := report(w, regressions); err != nil {
		return 2, err
	}
	return 1, nil
}

func parseFile(path string) (map[string]result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func report(w io.Writer, regressions []regression) error {
	table := tablewriter.NewWriter(w)
	table.Header("Benchmark", "Metric", "Base", "Head", "Ratio")
	for _, r := range regressions {
		if err := table.Append([]string{r.Name, r.Metric, formatMetric(r.Metric, r.Base), formatMetric(r.Metric, r.Head), fmt.Sprintf("x%.2f", r.Ratio)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatMetric(metric string, v float64) string {
	switch metric {
	case "time/op":
		return time.Duration(v).String()
	case "B/op":
		return humanize.IBytes(uint64(v))
	default:
		return humanize.Comma(int64(v))
	}
}
