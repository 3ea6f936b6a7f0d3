// Package dataset loads the retail customer, product and transaction tables
// into typed records, keeping the raw tables for auditing.
package dataset

import (
	"fmt"
	"path/filepath"
)

// Default file names inside a data directory.
const (
	CustomersFile    = "Customers.csv"
	ProductsFile     = "Products.csv"
	TransactionsFile = "Transactions.csv"
)

// Paths locates the three input tables. Products may be empty.
type Paths struct {
	Customers    string
	Products     string
	Transactions string
}

// InDir returns the default file names under dir.
func InDir(dir string) Paths {
	return Paths{
		Customers:    filepath.Join(dir, CustomersFile),
		Products:     filepath.Join(dir, ProductsFile),
		Transactions: filepath.Join(dir, TransactionsFile),
	}
}

// Dataset holds the parsed records and the raw tables they came from.
type Dataset struct {
	Customers    []Customer
	Products     []Product
	Transactions []Transaction

	// Raw tables in load order: customers, products (if loaded), transactions.
	Tables []*Table
}

// Load reads and parses the tables named in p.
func Load(p Paths) (*Dataset, error) {
	if p.Customers == "" || p.Transactions == "" {
		return nil, fmt.Errorf("customers and transactions paths are required")
	}
	ds := &Dataset{}

	ct, err := ReadTable(p.Customers, 0)
	if err != nil {
		return nil, err
	}
	if ds.Customers, err = ParseCustomers(ct); err != nil {
		return nil, err
	}
	ds.Tables = append(ds.Tables, ct)

	if p.Products != "" {
		pt, err := ReadTable(p.Products, 0)
		if err != nil {
			return nil, err
		}
		if ds.Products, err = ParseProducts(pt); err != nil {
			return nil, err
		}
		ds.Tables = append(ds.Tables, pt)
	}

	tt, err := ReadTable(p.Transactions, 0)
	if err != nil {
		return nil, err
	}
	if ds.Transactions, err = ParseTransactions(tt); err != nil {
		return nil, err
	}
	ds.Tables = append(ds.Tables, tt)
	return ds, nil
}

// CustomerIndex maps customer id to record.
func (d *Dataset) CustomerIndex() map[string]*Customer {
	m := make(map[string]*Customer, len(d.Customers))
	for i := range d.Customers {
		m[d.Customers[i].ID] = &d.Customers[i]
	}
	return m
}

// ProductIndex maps product id to record.
func (d *Dataset) ProductIndex() map[string]*Product {
	m := make(map[string]*Product, len(d.Products))
	for i := range d.Products {
		m[d.Products[i].ID] = &d.Products[i]
	}
	return m
}
