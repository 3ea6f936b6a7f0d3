// Package datasettest writes small, deterministic retail datasets for tests.
package datasettest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/retailseg/internal/dataset"
)

var (
	regions    = []string{"Asia", "Europe", "North America", "South America"}
	categories = []string{"Books", "Clothing", "Electronics", "Home Decor"}
)

// Options shapes the generated data.
type Options struct {
	Customers      int
	PerCustomer    int
	Identical      bool   // every customer gets the same region and purchases
	OrphanCustomer string // if set, one extra transaction references this id
	ExtraCustomers int    // customers with no transactions
}

// Write generates Customers.csv, Products.csv and Transactions.csv in dir
// and returns their paths.
func Write(t testing.TB, dir string, opt Options) dataset.Paths {
	t.Helper()
	if opt.PerCustomer <= 0 {
		opt.PerCustomer = 3
	}

	var cust strings.Builder
	cust.WriteString("CustomerID,CustomerName,Region,SignupDate\n")
	total := opt.Customers + opt.ExtraCustomers
	for i := 0; i < total; i++ {
		region := regions[i%len(regions)]
		year := 2022 + i%3
		if opt.Identical {
			region, year = regions[0], 2022
		}
		fmt.Fprintf(&cust, "C%04d,Customer %d,%s,%d-%02d-%02d\n", i+1, i+1, region, year, 1+i%12, 1+i%28)
	}

	var prod strings.Builder
	prod.WriteString("ProductID,ProductName,Category,Price\n")
	for p := 0; p < 8; p++ {
		fmt.Fprintf(&prod, "P%03d,Item %d,%s,%.2f\n", p+1, p+1, categories[p%len(categories)], 10+float64(p)*7.5)
	}

	var tx strings.Builder
	tx.WriteString("TransactionID,CustomerID,ProductID,TransactionDate,Quantity,TotalValue,Price\n")
	n := 0
	for i := 0; i < opt.Customers; i++ {
		for j := 0; j < opt.PerCustomer; j++ {
			n++
			qty := 1 + (i*7+j*3)%4
			price := 20 + float64((i*13+j*29)%97)*5
			prodID := 1 + (i+j)%8
			if opt.Identical {
				qty, price, prodID = 2, 50, 1+j%8
			}
			fmt.Fprintf(&tx, "T%05d,C%04d,P%03d,2024-%02d-%02d 10:%02d:00,%d,%.2f,%.2f\n",
				n, i+1, prodID, 1+(i+j)%12, 1+(i*3+j)%28, j%60, qty, float64(qty)*price, price)
		}
	}
	if opt.OrphanCustomer != "" {
		n++
		fmt.Fprintf(&tx, "T%05d,%s,P001,2024-03-03 09:00:00,1,10.00,10.00\n", n, opt.OrphanCustomer)
	}

	p := dataset.InDir(dir)
	for path, body := range map[string]string{p.Customers: cust.String(), p.Products: prod.String(), p.Transactions: tx.String()} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return p
}

// Load writes a dataset with Write and loads it.
func Load(t testing.TB, opt Options) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(Write(t, t.TempDir(), opt))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return ds
}
