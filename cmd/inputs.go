package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retailseg/internal/dataset"
)

// inputFlags locates the three tables: a data directory with the default
// file names, individually overridable.
type inputFlags struct {
	dataDir      string
	customers    string
	products     string
	transactions string
}

func (in *inputFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&in.dataDir, "data-dir", "", "directory holding Customers.csv, Products.csv and Transactions.csv")
	c.Flags().StringVar(&in.customers, "customers", "", "path to the customers table")
	c.Flags().StringVar(&in.products, "products", "", "path to the products table")
	c.Flags().StringVar(&in.transactions, "transactions", "", "path to the transactions table")
}

// paths resolves the table locations. A products file implied by --data-dir
// is dropped when it does not exist and products are optional.
func (in *inputFlags) paths(needProducts bool) (dataset.Paths, error) {
	var p dataset.Paths
	if in.dataDir != "" {
		p = dataset.InDir(in.dataDir)
		if !needProducts && in.products == "" {
			if _, err := os.Stat(p.Products); errors.Is(err, fs.ErrNotExist) {
				p.Products = ""
			}
		}
	}
	if in.customers != "" {
		p.Customers = in.customers
	}
	if in.products != "" {
		p.Products = in.products
	}
	if in.transactions != "" {
		p.Transactions = in.transactions
	}

	var missing []string
	if p.Customers == "" {
		missing = append(missing, "--customers")
	}
	if p.Transactions == "" {
		missing = append(missing, "--transactions")
	}
	if needProducts && p.Products == "" {
		missing = append(missing, "--products")
	}
	if len(missing) > 0 {
		return p, fmt.Errorf("missing input: set --data-dir or %s", strings.Join(missing, ", "))
	}
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
