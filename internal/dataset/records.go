package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/retailseg/internal/errs"
)

// Customer is one row of the customer table.
type Customer struct {
	ID         string
	Name       string
	Region     string
	SignupDate time.Time
}

// Product is one row of the product table.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    float64
}

// Transaction is one purchase line. TotalValue = Quantity × UnitPrice.
type Transaction struct {
	ID         string
	CustomerID string
	ProductID  string
	Timestamp  time.Time // zero when the file carries no TransactionDate
	Quantity   int
	UnitPrice  float64
	TotalValue float64
}

const (
	TableCustomers    = "customers"
	TableProducts     = "products"
	TableTransactions = "transactions"
)

// ParseCustomers converts a raw table into customers, enforcing unique ids
// and parseable signup dates.
func ParseCustomers(t *Table) ([]Customer, error) {
	idx, err := t.require(TableCustomers, "CustomerID", "Region", "SignupDate")
	if err != nil {
		return nil, err
	}
	nameIdx := t.Index("CustomerName")
	seen := make(map[string]int, len(t.Rows))
	out := make([]Customer, 0, len(t.Rows))
	for i, row := range t.Rows {
		line := i + 1
		c := Customer{ID: row[idx[0]], Region: row[idx[1]]}
		if c.ID == "" {
			return nil, &errs.DataError{Table: TableCustomers, Row: line, Column: "CustomerID", Msg: "empty key"}
		}
		if prev, dup := seen[c.ID]; dup {
			return nil, &errs.DataError{Table: TableCustomers, Row: line, Column: "CustomerID", Msg: "duplicate key " + c.ID + " (first at row " + strconv.Itoa(prev) + ")"}
		}
		seen[c.ID] = line
		if c.Region == "" {
			return nil, &errs.DataError{Table: TableCustomers, Row: line, Column: "Region", Msg: "missing region"}
		}
		d, err := ParseDate(row[idx[2]])
		if err != nil {
			return nil, &errs.DataError{Table: TableCustomers, Row: line, Column: "SignupDate", Msg: "unparseable date", Err: err}
		}
		c.SignupDate = d
		if nameIdx >= 0 {
			c.Name = row[nameIdx]
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseProducts converts a raw table into products. Price is optional.
func ParseProducts(t *Table) ([]Product, error) {
	idx, err := t.require(TableProducts, "ProductID", "Category")
	if err != nil {
		return nil, err
	}
	nameIdx, priceIdx := t.Index("ProductName"), t.Index("Price")
	seen := make(map[string]struct{}, len(t.Rows))
	out := make([]Product, 0, len(t.Rows))
	for i, row := range t.Rows {
		line := i + 1
		p := Product{ID: row[idx[0]], Category: row[idx[1]]}
		if p.ID == "" {
			return nil, &errs.DataError{Table: TableProducts, Row: line, Column: "ProductID", Msg: "empty key"}
		}
		if _, dup := seen[p.ID]; dup {
			return nil, &errs.DataError{Table: TableProducts, Row: line, Column: "ProductID", Msg: "duplicate key " + p.ID}
		}
		seen[p.ID] = struct{}{}
		if nameIdx >= 0 {
			p.Name = row[nameIdx]
		}
		if priceIdx >= 0 && row[priceIdx] != "" {
			v, ok := parseFloat(row[priceIdx])
			if !ok || v <= 0 {
				return nil, &errs.DataError{Table: TableProducts, Row: line, Column: "Price", Msg: "must be a positive number"}
			}
			p.Price = v
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseTransactions converts a raw table into transactions. Either Price or
// TotalValue must be present; the missing one is derived from Quantity.
func ParseTransactions(t *Table) ([]Transaction, error) {
	idx, err := t.require(TableTransactions, "TransactionID", "CustomerID", "ProductID", "Quantity")
	if err != nil {
		return nil, err
	}
	priceIdx, totalIdx, dateIdx := t.Index("Price"), t.Index("TotalValue"), t.Index("TransactionDate")
	if priceIdx < 0 && totalIdx < 0 {
		return nil, &errs.DataError{Table: TableTransactions, Column: "Price|TotalValue", Msg: "required column missing"}
	}
	seen := make(map[string]struct{}, len(t.Rows))
	out := make([]Transaction, 0, len(t.Rows))
	for i, row := range t.Rows {
		line := i + 1
		tx := Transaction{ID: row[idx[0]], CustomerID: row[idx[1]], ProductID: row[idx[2]]}
		if tx.ID == "" {
			return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "TransactionID", Msg: "empty key"}
		}
		if _, dup := seen[tx.ID]; dup {
			return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "TransactionID", Msg: "duplicate key " + tx.ID}
		}
		seen[tx.ID] = struct{}{}
		if tx.CustomerID == "" {
			return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "CustomerID", Msg: "empty foreign key"}
		}
		q, ok := parseQuantity(row[idx[3]])
		if !ok {
			return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "Quantity", Msg: "must be a positive integer, got " + strconv.Quote(row[idx[3]])}
		}
		tx.Quantity = q

		var price, total float64
		hasPrice, hasTotal := false, false
		if priceIdx >= 0 && row[priceIdx] != "" {
			v, ok := parseFloat(row[priceIdx])
			if !ok || v <= 0 {
				return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "Price", Msg: "must be a positive number"}
			}
			price, hasPrice = v, true
		}
		if totalIdx >= 0 && row[totalIdx] != "" {
			v, ok := parseFloat(row[totalIdx])
			if !ok || v <= 0 {
				return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "TotalValue", Msg: "must be a positive number"}
			}
			total, hasTotal = v, true
		}
		switch {
		case hasPrice && hasTotal:
			tx.UnitPrice, tx.TotalValue = price, total
		case hasPrice:
			tx.UnitPrice, tx.TotalValue = price, price*float64(q)
		case hasTotal:
			tx.UnitPrice, tx.TotalValue = total/float64(q), total
		default:
			return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "Price|TotalValue", Msg: "both empty"}
		}

		if dateIdx >= 0 && row[dateIdx] != "" {
			ts, err := ParseDate(row[dateIdx])
			if err != nil {
				return nil, &errs.DataError{Table: TableTransactions, Row: line, Column: "TransactionDate", Msg: "unparseable date", Err: err}
			}
			tx.Timestamp = ts
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseQuantity accepts "3" and integral floats such as "3.0".
func parseQuantity(s string) (int, bool) {
	v := strings.TrimSpace(s)
	if n, err := strconv.Atoi(v); err == nil {
		return n, n > 0
	}
	f, ok := parseFloat(v)
	if !ok || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
