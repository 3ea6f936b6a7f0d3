package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/retailseg/internal/errs"
)

// Table is a raw delimited file: header plus trimmed string cells.
// Every row has exactly len(Header) cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadTable reads a delimited file. If delim is 0 it is chosen from the
// file extension (.tsv → tab, otherwise comma).
func ReadTable(path string, delim rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.DataError{Table: filepath.Base(path), Msg: "open", Err: err}
	}
	defer f.Close()
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadTableFrom(filepath.Base(path), f, delim)
}

// ReadTableFrom reads a delimited stream under the given table name.
func ReadTableFrom(name string, r io.Reader, delim rune) (*Table, error) {
	if delim == 0 {
		delim = ','
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.Dataf(name, "empty file: missing header row")
		}
		return nil, &errs.DataError{Table: name, Msg: "read header", Err: err}
	}
	// Strip a UTF-8 BOM left by spreadsheet exports.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	ncol := len(header)
	t := &Table{Name: name, Header: make([]string, ncol)}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(h)
	}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &errs.DataError{Table: name, Row: len(t.Rows) + 1, Msg: "read row", Err: err}
		}
		row := make([]string, ncol)
		for j := 0; j < ncol && j < len(rec); j++ {
			row[j] = strings.TrimSpace(rec[j])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Index returns the position of column, matching case-insensitively and
// ignoring '_', '-' and spaces; -1 if absent.
func (t *Table) Index(column string) int {
	want := normalizeHeader(column)
	for i, h := range t.Header {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

// require resolves all named columns or fails with a DataError naming the first missing one.
func (t *Table) require(table string, columns ...string) ([]int, error) {
	out := make([]int, len(columns))
	for i, c := range columns {
		idx := t.Index(c)
		if idx < 0 {
			return nil, &errs.DataError{Table: table, Column: c, Msg: "required column missing"}
		}
		out[i] = idx
	}
	return out, nil
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case '_', '-', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func (t *Table) String() string {
	return fmt.Sprintf("%s (%d rows, %d columns)", t.Name, len(t.Rows), len(t.Header))
}
