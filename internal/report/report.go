package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"goviper/domain/activity"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gonum.org/v1/gonum/stat/distuv"
)

// Entry is one ranked regulator of a sample
type Entry struct {
	Regulator string
	NES       float64
	PValue    float64
	// Spread is ES for analytic runs and the bootstrap SD otherwise.
	Spread float64
}

// TopRegulators ranks the regulators of sample j by |NES|, largest first,
// and keeps at most n. Ties keep network order.
func TopRegulators(run *activity.Run, j, n int) []Entry {
	regs := run.Regulators()
	entries := make([]Entry, len(regs))
	for i, reg := range regs {
		e := Entry{Regulator: reg}
		if run.Bootstrap != nil {
			e.NES = run.Bootstrap.NES.At(i, j)
			e.Spread = run.Bootstrap.SD.At(i, j)
		} else {
			e.NES = run.Result.NES.At(i, j)
			e.Spread = run.Result.ES.At(i, j)
		}
		e.PValue = 2 * distuv.UnitNormal.Survival(math.Abs(e.NES))
		entries[i] = e
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return math.Abs(entries[a].NES) > math.Abs(entries[b].NES)
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Markdown renders the top n regulators of every sample
func Markdown(run *activity.Run, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Regulator activity run %s\n\n", run.ID)
	fmt.Fprintf(&b, "- Created: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Regulators: %d\n", len(run.Regulators()))
	fmt.Fprintf(&b, "- Samples: %d\n", len(run.Samples()))
	fmt.Fprintf(&b, "- Minimum regulon size: %g\n", run.Options.MinSize)
	switch {
	case run.Bootstrap != nil:
		fmt.Fprintf(&b, "- Bootstrap iterations: %d\n", run.Options.Bootstraps)
	case run.Calibrated:
		b.WriteString("- NES calibrated against a null model\n")
	}
	if run.Options.Pleiotropy {
		fmt.Fprintf(&b, "- Pleiotropy correction: %s, penalty %g%%\n",
			run.Options.PleiotropyOptions.Method, run.Options.PleiotropyOptions.Penalty)
	}
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", run.Fingerprint)

	if len(run.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range run.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	spread := "ES"
	if run.Bootstrap != nil {
		spread = "SD"
	}
	for j, sample := range run.Samples() {
		fmt.Fprintf(&b, "\n## %s\n\n", sample)
		entries := TopRegulators(run, j, n)
		if len(entries) == 0 {
			b.WriteString("No regulator reached the minimum regulon size.\n")
			continue
		}
		fmt.Fprintf(&b, "| Rank | Regulator | NES | %s | p-value |\n", spread)
		b.WriteString("|---:|---|---:|---:|---:|\n")
		for k, e := range entries {
			fmt.Fprintf(&b, "| %d | %s | %.3f | %.3f | %.2e |\n", k+1, e.Regulator, e.NES, e.Spread, e.PValue)
		}
	}
	return b.String()
}

// HTML renders the markdown report as an HTML fragment
func HTML(run *activity.Run, n int) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(Markdown(run, n)), p, renderer)
}
