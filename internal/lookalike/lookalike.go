// Package lookalike recommends, for a set of target customers, the other
// customers whose purchase profile is most similar by cosine similarity.
package lookalike

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/retailseg/internal/dataset"
	"github.com/KaramelBytes/retailseg/internal/errs"
	"github.com/KaramelBytes/retailseg/internal/features"
	"github.com/KaramelBytes/retailseg/internal/logging"
	"github.com/KaramelBytes/retailseg/internal/utils"
)

// Profile summarises one customer's purchases.
type Profile struct {
	CustomerID    string
	TotalSpend    float64
	MeanSpend     float64
	TotalQuantity int
	Category      string // most frequent product category
	Region        string
}

// Match is one recommended customer.
type Match struct {
	CustomerID string
	Score      float64
}

// Recommendation lists the matches of one target customer, best first.
type Recommendation struct {
	CustomerID string
	Matches    []Match
}

// Options controls Recommend.
type Options struct {
	Targets int // first N profiles get recommendations; 0 means all
	Top     int // matches per target
}

// DefaultOptions returns 20 targets with 3 matches each.
func DefaultOptions() Options { return Options{Targets: 20, Top: 3} }

// BuildProfiles joins transactions to customers and products. A transaction
// with an unknown customer fails the build under features.Reject and is left
// out under features.Drop; one with an unknown product is always left out.
// Category ties go to the alphabetically first category.
func BuildProfiles(ds *dataset.Dataset, unmatched features.UnmatchedPolicy) ([]Profile, error) {
	if unmatched == "" {
		unmatched = features.Reject
	}
	if len(ds.Products) == 0 {
		return nil, errs.Dataf(dataset.TableProducts, "lookalike profiles need the product table")
	}
	customers := ds.CustomerIndex()
	products := ds.ProductIndex()

	type acc struct {
		p      Profile
		n      int
		counts map[string]int
	}
	byID := make(map[string]*acc)
	skipped := 0
	for i, tx := range ds.Transactions {
		c, okc := customers[tx.CustomerID]
		if !okc && unmatched == features.Reject {
			return nil, &errs.DataError{
				Table:  dataset.TableTransactions,
				Row:    i + 1,
				Column: "CustomerID",
				Msg:    "references unknown customer " + tx.CustomerID,
			}
		}
		pr, okp := products[tx.ProductID]
		if !okc || !okp {
			skipped++
			continue
		}
		a := byID[c.ID]
		if a == nil {
			a = &acc{p: Profile{CustomerID: c.ID, Region: c.Region}, counts: map[string]int{}}
			byID[c.ID] = a
		}
		a.p.TotalSpend += tx.TotalValue
		a.p.TotalQuantity += tx.Quantity
		a.n++
		a.counts[pr.Category]++
	}
	if skipped > 0 {
		logging.With("lookalike").Warn().Int("skipped", skipped).Msg("transactions without a matching customer or product")
	}
	if len(byID) == 0 {
		return nil, errs.Dataf("profiles", "no transaction joins to both a customer and a product")
	}

	out := make([]Profile, 0, len(byID))
	for _, a := range byID {
		a.p.MeanSpend = a.p.TotalSpend / float64(a.n)
		a.p.Category = mode(a.counts)
		out = append(out, a.p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

func mode(counts map[string]int) string {
	best, bestN := "", -1
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

// Vectors encodes profiles as min-max scaled spend and quantity followed by
// full one-hot region and category indicators.
func Vectors(ps []Profile) [][]float64 {
	cols := [][]float64{make([]float64, len(ps)), make([]float64, len(ps)), make([]float64, len(ps))}
	regions := make([]string, len(ps))
	cats := make([]string, len(ps))
	for i, p := range ps {
		cols[0][i], cols[1][i], cols[2][i] = p.TotalSpend, p.MeanSpend, float64(p.TotalQuantity)
		regions[i], cats[i] = p.Region, p.Category
	}
	sc := features.FitScaler(cols)
	regionCols := indexOf(features.Categories(regions))
	catCols := indexOf(features.Categories(cats))

	width := 3 + len(regionCols) + len(catCols)
	out := make([][]float64, len(ps))
	for i, p := range ps {
		v := make([]float64, width)
		for j := range cols {
			v[j] = sc.Scale(j, cols[j][i])
		}
		v[3+regionCols[p.Region]] = 1
		v[3+len(regionCols)+catCols[p.Category]] = 1
		out[i] = v
	}
	return out
}

func indexOf(values []string) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		m[v] = i
	}
	return m
}

// CosineSim returns the cosine of the angle between a and b, or 0 when the
// lengths differ or either vector is zero.
func CosineSim(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Recommend scores every target against every other profile. The target is
// never its own match. Equal scores go to the smaller customer id.
func Recommend(ps []Profile, opt Options) ([]Recommendation, error) {
	if opt.Top < 1 {
		return nil, errs.Configf("lookalike.top", "must be at least 1, got %d", opt.Top)
	}
	if opt.Targets < 0 {
		return nil, errs.Configf("lookalike.targets", "must not be negative, got %d", opt.Targets)
	}
	targets := opt.Targets
	if targets == 0 || targets > len(ps) {
		targets = len(ps)
	}
	vecs := Vectors(ps)

	recs := make([]Recommendation, 0, targets)
	for i := 0; i < targets; i++ {
		cands := make([]Match, 0, len(ps)-1)
		for j := range ps {
			if j == i {
				continue
			}
			cands = append(cands, Match{CustomerID: ps[j].CustomerID, Score: CosineSim(vecs[i], vecs[j])})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].Score != cands[b].Score {
				return cands[a].Score > cands[b].Score
			}
			return cands[a].CustomerID < cands[b].CustomerID
		})
		if len(cands) > opt.Top {
			cands = cands[:opt.Top]
		}
		for k := range cands {
			cands[k].Score = round4(cands[k].Score)
		}
		recs = append(recs, Recommendation{CustomerID: ps[i].CustomerID, Matches: cands})
	}
	return recs, nil
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

// Format renders matches as "C0001:0.9876|C0002:0.9123".
func (r Recommendation) Format() string {
	parts := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		parts[i] = fmt.Sprintf("%s:%s", m.CustomerID, strconv.FormatFloat(m.Score, 'f', 4, 64))
	}
	return strings.Join(parts, "|")
}

// EncodeCSV encodes the cust_id,lookalikes table.
func EncodeCSV(recs []Recommendation) ([]byte, error) {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{r.CustomerID, r.Format()}
	}
	return utils.EncodeCSV([]string{"cust_id", "lookalikes"}, rows)
}
