// Package charts renders the exploratory and segmentation views as
// standalone HTML pages. Nothing here feeds back into the computations.
package charts

import (
	"bytes"
	"fmt"
	"io"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/retailseg/internal/analysis"
	"github.com/KaramelBytes/retailseg/internal/segment"
)

// File names written under the charts directory.
const (
	EDAFile      = "eda.html"
	ClustersFile = "clusters.html"
)

type renderer interface {
	Render(w io.Writer) error
}

func initOpts(id, title string) echarts.GlobalOpts {
	return echarts.WithInitializationOpts(opts.Initialization{PageTitle: title, ChartID: id})
}

func titled(title, x, y string) []echarts.GlobalOpts {
	return []echarts.GlobalOpts{
		echarts.WithTitleOpts(opts.Title{Title: title}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		echarts.WithXAxisOpts(opts.XAxis{Name: x}),
		echarts.WithYAxisOpts(opts.YAxis{Name: y}),
	}
}

func labels(cs []analysis.Count) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Label
	}
	return out
}

func barData(cs []analysis.Count) []opts.BarData {
	out := make([]opts.BarData, len(cs))
	for i, c := range cs {
		out[i] = opts.BarData{Value: c.Value}
	}
	return out
}

func bar(id, title, x, y string, cs []analysis.Count) *echarts.Bar {
	b := echarts.NewBar()
	b.SetGlobalOptions(append(titled(title, x, y), initOpts(id, title))...)
	b.SetXAxis(labels(cs)).AddSeries(y, barData(cs))
	return b
}

// TransactionsOverTime is the daily transaction count line.
func TransactionsOverTime(rep *analysis.Report) *echarts.Line {
	l := echarts.NewLine()
	l.SetGlobalOptions(append(titled("Transactions Over Time", "Date", "Transactions"), initOpts("transactions_over_time", "Transactions Over Time"))...)
	data := make([]opts.LineData, len(rep.Daily))
	for i, d := range rep.Daily {
		data[i] = opts.LineData{Value: d.Value}
	}
	l.SetXAxis(labels(rep.Daily)).AddSeries("Transactions", data)
	return l
}

// EDAPage collects every exploratory chart on one page.
func EDAPage(rep *analysis.Report) *components.Page {
	page := components.NewPage()
	page.PageTitle = "Retail EDA"
	page.AddCharts(
		TransactionsOverTime(rep),
		bar("top_products", fmt.Sprintf("Top %d Best-Selling Products", len(rep.TopProducts)), "Product", "Quantity Sold", rep.TopProducts),
		bar("revenue_by_region", "Revenue by Region", "Region", "Revenue", rep.RevenueByRegion),
		bar("revenue_by_category", "Revenue by Product Category", "Category", "Revenue", rep.RevenueByCategory),
		bar("signups_per_year", "Customers Signing Up per Year", "Year", "Customers", rep.SignupsPerYear),
	)
	return page
}

// ClusterScatter plots the 2-D projection with one series per cluster.
func ClusterScatter(points []segment.Point, k int) *echarts.Scatter {
	s := echarts.NewScatter()
	s.SetGlobalOptions(append(titled(fmt.Sprintf("Customer Segments (k=%d)", k), "PC1", "PC2"), initOpts("clusters", "Customer Segments"))...)
	byLabel := make([][]opts.ScatterData, k)
	for _, p := range points {
		if p.Label < 0 || p.Label >= k {
			continue
		}
		byLabel[p.Label] = append(byLabel[p.Label], opts.ScatterData{
			Name:  p.CustomerID,
			Value: []interface{}{p.PC1, p.PC2},
		})
	}
	for label, data := range byLabel {
		s.AddSeries(fmt.Sprintf("Cluster %d", label), data).
			SetSeriesOptions(echarts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	}
	return s
}

func render(name string, r renderer) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderEDA renders the exploratory page, stored as EDAFile.
func RenderEDA(rep *analysis.Report) ([]byte, error) {
	return render(EDAFile, EDAPage(rep))
}

// RenderClusters renders the segment scatter, stored as ClustersFile.
func RenderClusters(points []segment.Point, k int) ([]byte, error) {
	return render(ClustersFile, ClusterScatter(points, k))
}
