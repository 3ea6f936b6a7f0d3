package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Markdown renders the report as bracketed sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Customers: %d\n", r.Customers))
	b.WriteString(fmt.Sprintf("Products: %d\n", r.Products))
	b.WriteString(fmt.Sprintf("Transactions: %d (joined %d)\n\n", r.Joined+r.Unjoined, r.Joined))

	b.WriteString("[DATA QUALITY]\n")
	for _, a := range r.Audits {
		b.WriteString(fmt.Sprintf("- %s: %d rows, %d missing cells, %d duplicate rows\n", a.Name, a.Rows, a.MissingTotal(), a.Duplicates))
		for _, c := range a.Columns {
			if c.Missing > 0 {
				b.WriteString(fmt.Sprintf("  • %s: %d missing\n", c.Name, c.Missing))
			}
		}
	}

	if len(r.Stats) > 0 {
		b.WriteString("\n[TRANSACTION STATISTICS]\n")
		b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, s := range r.Stats {
			b.WriteString(fmt.Sprintf("| %s | %d | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g |\n",
				s.Name, s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max))
		}
	}

	if len(r.Daily) > 0 {
		b.WriteString("\n[TRANSACTIONS OVER TIME]\n")
		peak := r.Daily[0]
		for _, d := range r.Daily[1:] {
			if d.Value > peak.Value {
				peak = d
			}
		}
		b.WriteString(fmt.Sprintf("Days with activity: %d (%s to %s)\n", len(r.Daily), r.Daily[0].Label, r.Daily[len(r.Daily)-1].Label))
		b.WriteString(fmt.Sprintf("Busiest day: %s (%d transactions)\n", peak.Label, int(peak.Value)))
	}

	writeCounts(&b, "TOP PRODUCTS BY QUANTITY", r.TopProducts, "%.0f")
	writeCounts(&b, "REVENUE BY REGION", r.RevenueByRegion, "%.2f")
	writeCounts(&b, "REVENUE BY CATEGORY", r.RevenueByCategory, "%.2f")
	writeCounts(&b, "SIGNUPS PER YEAR", r.SignupsPerYear, "%.0f")

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				v := r.Corr.Values[i][j]
				if math.IsNaN(v) {
					b.WriteString(fmt.Sprintf("- %s ~ %s: n/a\n", r.Corr.Columns[i], r.Corr.Columns[j]))
					continue
				}
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", r.Corr.Columns[i], r.Corr.Columns[j], v))
			}
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeCounts(b *strings.Builder, title string, cs []Count, format string) {
	if len(cs) == 0 {
		return
	}
	b.WriteString("\n[" + title + "]\n")
	for _, c := range cs {
		b.WriteString(fmt.Sprintf("- %s: "+format+"\n", safeVal(c.Label), c.Value))
	}
}
