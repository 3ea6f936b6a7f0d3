// Package features turns raw transactions into one profile row per customer
// and encodes profiles into a numeric matrix for distance-based models.
package features

import (
	"sort"

	"github.com/KaramelBytes/retailseg/internal/dataset"
	"github.com/KaramelBytes/retailseg/internal/errs"
	"github.com/KaramelBytes/retailseg/internal/logging"
)

// Profile is the aggregated view of one customer with at least one transaction.
type Profile struct {
	CustomerID       string
	TotalSpend       float64
	MeanSpend        float64
	TotalQuantity    int
	TransactionCount int
	Region           string
	SignupYear       int
}

// UnmatchedPolicy decides what happens to transactions whose customer_id is
// not in the customer table.
type UnmatchedPolicy string

const (
	// Reject fails the build with a DataError on the first unmatched row.
	Reject UnmatchedPolicy = "reject"
	// Drop skips unmatched rows and logs one warning with the count.
	Drop UnmatchedPolicy = "drop"
)

// BuildOptions controls Build.
type BuildOptions struct {
	Unmatched UnmatchedPolicy
}

// BuildResult is the profile table plus bookkeeping about skipped rows.
type BuildResult struct {
	Profiles []Profile // sorted by CustomerID
	Dropped  int       // transactions skipped under Drop
}

// Build aggregates transactions per customer and joins the customer's static
// attributes. Customers without transactions do not appear.
func Build(customers []dataset.Customer, txs []dataset.Transaction, opt BuildOptions) (*BuildResult, error) {
	if opt.Unmatched == "" {
		opt.Unmatched = Reject
	}
	byID := make(map[string]*dataset.Customer, len(customers))
	for i := range customers {
		byID[customers[i].ID] = &customers[i]
	}

	acc := make(map[string]*Profile)
	res := &BuildResult{}
	for i, tx := range txs {
		c, ok := byID[tx.CustomerID]
		if !ok {
			if opt.Unmatched == Drop {
				res.Dropped++
				continue
			}
			return nil, &errs.DataError{
				Table:  dataset.TableTransactions,
				Row:    i + 1,
				Column: "CustomerID",
				Msg:    "references unknown customer " + tx.CustomerID,
			}
		}
		p := acc[tx.CustomerID]
		if p == nil {
			if c.SignupDate.IsZero() {
				return nil, &errs.DataError{Table: dataset.TableCustomers, Column: "SignupDate", Msg: "missing signup date for " + c.ID}
			}
			p = &Profile{CustomerID: c.ID, Region: c.Region, SignupYear: c.SignupDate.Year()}
			acc[tx.CustomerID] = p
		}
		p.TotalSpend += tx.TotalValue
		p.TotalQuantity += tx.Quantity
		p.TransactionCount++
	}
	if res.Dropped > 0 {
		logging.With("features").Warn().Int("dropped", res.Dropped).Msg("transactions reference unknown customers; dropped")
	}
	if len(acc) == 0 {
		return nil, errs.Dataf("profiles", "no customer has a matching transaction")
	}

	ids := make([]string, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res.Profiles = make([]Profile, 0, len(ids))
	for _, id := range ids {
		p := acc[id]
		p.MeanSpend = p.TotalSpend / float64(p.TransactionCount)
		res.Profiles = append(res.Profiles, *p)
	}
	return res, nil
}
