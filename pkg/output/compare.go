package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
)

// Ranking is one line of the comparison.
type Ranking struct {
	Result *benchmark.Result
	// Slowdown is baseline ips / result ips, zero for the baseline.
	Slowdown float64
}

// Rank orders results by throughput, fastest first. Equal throughputs keep
// their collection order. The first entry is the baseline.
func Rank(results []*benchmark.Result) []Ranking {
	sorted := make([]*benchmark.Result, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IPS() > sorted[j].IPS()
	})

	rankings := make([]Ranking, 0, len(sorted))

	for i, r := range sorted {
		ranking := Ranking{Result: r}
		if i > 0 {
			ranking.Slowdown = sorted[0].IPS() / r.IPS()
		}

		rankings = append(rankings, ranking)
	}

	return rankings
}

// WriteComparison renders rankings. With showExecutable, each job name is
// followed by its executable in parentheses.
func WriteComparison(w io.Writer, rankings []Ranking, showExecutable bool) error {
	out := &sink{w: w}

	out.print("\nComparison:\n")

	for i, r := range rankings {
		name := r.Result.JobName()
		if showExecutable {
			name = fmt.Sprintf("%s (%s)", name, r.Result.Executable)
		}

		out.printf("%*s: %11.1f i/s", NameLength, name, r.Result.IPS())

		if i > 0 {
			out.printf(" - %.2fx slower", r.Slowdown)
		}

		out.print("\n")
	}

	out.print("\n")

	return out.err
}
