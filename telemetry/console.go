package telemetry

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"github.com/pthm-cable/popsim/components"
)

// ConsoleReporter prints a coloured summary of each species' reports.
type ConsoleReporter struct {
	w  io.Writer
	au aurora.Aurora
}

// NewConsoleReporter creates a console reporter. colors=false prints plain text.
func NewConsoleReporter(w io.Writer, colors bool) *ConsoleReporter {
	return &ConsoleReporter{w: w, au: aurora.NewAurora(colors)}
}

// WriteReports implements ReportSink.
func (c *ConsoleReporter) WriteReports(species string, reports []Report) error {
	if _, err := fmt.Fprintln(c.w, c.au.Bold(c.au.Cyan(species))); err != nil {
		return err
	}
	for _, r := range reports {
		mortality := c.au.Green(formatNumber(r.MortalityRate) + "%")
		if r.MortalityRate >= 100 {
			mortality = c.au.Red(formatNumber(r.MortalityRate) + "%")
		}
		extinctions := c.au.Green(r.Extinctions)
		if r.Extinctions > 0 {
			extinctions = c.au.Yellow(r.Extinctions)
		}

		fmt.Fprintf(c.w, "  %s\n", c.au.Bold(r.Habitat))
		fmt.Fprintf(c.w, "    average population %s  max %d  mortality %s  extinctions %v/%d\n",
			formatNumber(r.AveragePopulation), r.MaxPopulation, mortality, extinctions, r.Iterations)

		fmt.Fprint(c.w, "    deaths:")
		for _, cause := range components.Causes {
			pct := r.CausePct(cause)
			label := c.au.Faint(cause.Label())
			if pct > 0 {
				label = c.au.Magenta(cause.Label())
			}
			fmt.Fprintf(c.w, " %s %s%%", label, formatNumber(pct))
		}
		if _, err := fmt.Fprintln(c.w); err != nil {
			return err
		}
	}
	return nil
}
