package analysis

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/KaramelBytes/retailseg/internal/dataset"
	"github.com/KaramelBytes/retailseg/internal/errs"
)

// Options controls AnalyzeRetail.
type Options struct {
	// TopProducts limits the best-seller list; 0 means 10.
	TopProducts int
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options { return Options{TopProducts: 10} }

// Count is one labelled aggregate, e.g. revenue of a region.
type Count struct {
	Label string
	Value float64
}

// NamedSummary pairs a column name with its summary.
type NamedSummary struct {
	Name string
	Summary
}

// Report is the exploratory view of a retail dataset.
type Report struct {
	Audits    []TableAudit
	Customers int
	Products  int
	Joined    int // transactions matching both a customer and a product
	Unjoined  int

	Stats             []NamedSummary // Quantity, Price, TotalValue over joined rows
	Daily             []Count        // transactions per calendar day, ascending date
	TopProducts       []Count        // quantity sold, descending
	RevenueByRegion   []Count        // by region name
	RevenueByCategory []Count        // descending revenue
	SignupsPerYear    []Count        // ascending year
	Corr              *CorrMatrix
	Warnings          []string
}

// AnalyzeRetail audits the raw tables and aggregates the transactions that
// join to both a customer and a product.
func AnalyzeRetail(ds *dataset.Dataset, opt Options) (*Report, error) {
	if opt.TopProducts <= 0 {
		opt.TopProducts = DefaultOptions().TopProducts
	}
	if len(ds.Products) == 0 {
		return nil, errs.Dataf(dataset.TableProducts, "exploratory analysis needs the product table")
	}
	rep := &Report{Customers: len(ds.Customers), Products: len(ds.Products)}
	for _, t := range ds.Tables {
		rep.Audits = append(rep.Audits, Audit(t))
	}

	customers := ds.CustomerIndex()
	products := ds.ProductIndex()
	var qty, price, total []float64
	daily := map[string]float64{}
	byProduct := map[string]float64{}
	byRegion := map[string]float64{}
	byCategory := map[string]float64{}
	undated := 0
	for _, tx := range ds.Transactions {
		c, okc := customers[tx.CustomerID]
		p, okp := products[tx.ProductID]
		if !okc || !okp {
			rep.Unjoined++
			continue
		}
		rep.Joined++
		qty = append(qty, float64(tx.Quantity))
		price = append(price, tx.UnitPrice)
		total = append(total, tx.TotalValue)
		if tx.Timestamp.IsZero() {
			undated++
		} else {
			daily[tx.Timestamp.Format("2006-01-02")]++
		}
		name := p.Name
		if name == "" {
			name = p.ID
		}
		byProduct[name] += float64(tx.Quantity)
		byRegion[c.Region] += tx.TotalValue
		byCategory[p.Category] += tx.TotalValue
	}
	if rep.Joined == 0 {
		return nil, errs.Dataf(dataset.TableTransactions, "no transaction joins to both a customer and a product")
	}
	if rep.Unjoined > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d transactions reference an unknown customer or product and were left out", rep.Unjoined))
	}
	if undated > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d transactions have no date and are missing from the daily series", undated))
	}

	rep.Stats = []NamedSummary{
		{Name: "Quantity", Summary: Describe(qty)},
		{Name: "Price", Summary: Describe(price)},
		{Name: "TotalValue", Summary: Describe(total)},
	}
	rep.Corr = Correlate([]string{"Quantity", "Price", "TotalValue"}, [][]float64{qty, price, total})

	rep.Daily = byLabel(daily)
	rep.TopProducts = byValueDesc(byProduct)
	if len(rep.TopProducts) > opt.TopProducts {
		rep.TopProducts = rep.TopProducts[:opt.TopProducts]
	}
	rep.RevenueByRegion = byLabel(byRegion)
	rep.RevenueByCategory = byValueDesc(byCategory)

	years := map[string]float64{}
	for _, c := range ds.Customers {
		if !c.SignupDate.IsZero() {
			years[strconv.Itoa(c.SignupDate.Year())]++
		}
	}
	rep.SignupsPerYear = byLabel(years)
	return rep, nil
}

func byLabel(m map[string]float64) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func byValueDesc(m map[string]float64) []Count {
	out := byLabel(m)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}
