package features

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/KaramelBytes/retailseg/internal/dataset"
	"github.com/KaramelBytes/retailseg/internal/errs"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func sampleCustomers() []dataset.Customer {
	return []dataset.Customer{
		{ID: "C2", Region: "Europe", SignupDate: day(2023, 5, 1)},
		{ID: "C1", Region: "Asia", SignupDate: day(2022, 1, 9)},
		{ID: "C3", Region: "South America", SignupDate: day(2024, 7, 2)},
		{ID: "C4", Region: "Asia", SignupDate: day(2022, 3, 3)}, // no transactions
	}
}

func sampleTransactions() []dataset.Transaction {
	return []dataset.Transaction{
		{ID: "T1", CustomerID: "C1", Quantity: 2, TotalValue: 100},
		{ID: "T2", CustomerID: "C2", Quantity: 1, TotalValue: 40},
		{ID: "T3", CustomerID: "C1", Quantity: 3, TotalValue: 50},
		{ID: "T4", CustomerID: "C3", Quantity: 5, TotalValue: 300},
	}
}

func TestBuildAggregatesPerCustomer(t *testing.T) {
	res, err := Build(sampleCustomers(), sampleTransactions(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []Profile{
		{CustomerID: "C1", TotalSpend: 150, MeanSpend: 75, TotalQuantity: 5, TransactionCount: 2, Region: "Asia", SignupYear: 2022},
		{CustomerID: "C2", TotalSpend: 40, MeanSpend: 40, TotalQuantity: 1, TransactionCount: 1, Region: "Europe", SignupYear: 2023},
		{CustomerID: "C3", TotalSpend: 300, MeanSpend: 300, TotalQuantity: 5, TransactionCount: 1, Region: "South America", SignupYear: 2024},
	}
	if !reflect.DeepEqual(res.Profiles, want) {
		t.Fatalf("profiles:\n got %+v\nwant %+v", res.Profiles, want)
	}
	if res.Dropped != 0 {
		t.Fatalf("dropped = %d", res.Dropped)
	}
}

func TestBuildUnmatchedPolicy(t *testing.T) {
	txs := append(sampleTransactions(), dataset.Transaction{ID: "T9", CustomerID: "C404", Quantity: 1, TotalValue: 1})

	_, err := Build(sampleCustomers(), txs, BuildOptions{Unmatched: Reject})
	de, ok := err.(*errs.DataError)
	if !ok || de.Row != 5 || de.Column != "CustomerID" {
		t.Fatalf("reject: err = %v", err)
	}

	res, err := Build(sampleCustomers(), txs, BuildOptions{Unmatched: Drop})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if res.Dropped != 1 || len(res.Profiles) != 3 {
		t.Fatalf("drop: dropped=%d profiles=%d", res.Dropped, len(res.Profiles))
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(sampleCustomers(), nil, BuildOptions{}); !errs.IsData(err) {
		t.Fatalf("no transactions: err = %v", err)
	}
	nodate := []dataset.Customer{{ID: "C1", Region: "Asia"}}
	if _, err := Build(nodate, sampleTransactions()[:1], BuildOptions{}); !errs.IsData(err) {
		t.Fatalf("missing signup: err = %v", err)
	}
}

func TestEncodeLayoutAndScaling(t *testing.T) {
	res, err := Build(sampleCustomers(), sampleTransactions(), BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	x, enc, err := Encode(res.Profiles, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wantCols := []string{"total_spend", "mean_spend", "total_quantity", "region_Europe", "region_South America"}
	if !reflect.DeepEqual(enc.Columns(), wantCols) {
		t.Fatalf("columns = %v", enc.Columns())
	}
	if enc.Reference != "Asia" {
		t.Fatalf("reference = %q", enc.Reference)
	}
	r, c := x.Dims()
	if r != 3 || c != len(wantCols) {
		t.Fatalf("dims = %dx%d", r, c)
	}
	want := [][]float64{
		{110.0 / 260, 35.0 / 260, 1, 0, 0},
		{0, 0, 0, 1, 0},
		{1, 1, 1, 0, 1},
	}
	for i := range want {
		for j := range want[i] {
			if math.Abs(x.At(i, j)-want[i][j]) > 1e-12 {
				t.Fatalf("x[%d][%d] = %v, want %v", i, j, x.At(i, j), want[i][j])
			}
		}
	}
}

func TestEncodeConstantColumnAndSingleRegion(t *testing.T) {
	ps := []Profile{
		{CustomerID: "A", TotalSpend: 10, MeanSpend: 5, TotalQuantity: 2, Region: "Asia"},
		{CustomerID: "B", TotalSpend: 10, MeanSpend: 9, TotalQuantity: 2, Region: "Asia"},
	}
	x, enc, err := Encode(ps, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Columns()) != 3 {
		t.Fatalf("single region should add no indicators: %v", enc.Columns())
	}
	for i := 0; i < 2; i++ {
		if x.At(i, 0) != 0 || x.At(i, 2) != 0 {
			t.Fatalf("constant column not zero at row %d", i)
		}
	}
	if x.At(0, 1) != 0 || x.At(1, 1) != 1 {
		t.Fatalf("mean_spend not scaled: %v %v", x.At(0, 1), x.At(1, 1))
	}
}

func TestEncodeOptionalNumericColumns(t *testing.T) {
	ps := []Profile{
		{CustomerID: "A", TransactionCount: 1, SignupYear: 2022, Region: "Asia"},
		{CustomerID: "B", TransactionCount: 5, SignupYear: 2024, Region: "Europe"},
	}
	x, enc, err := Encode(ps, []string{ColTransactionCount, ColSignupYear})
	if err != nil {
		t.Fatal(err)
	}
	if got := enc.Columns(); !reflect.DeepEqual(got, []string{"transaction_count", "signup_year", "region_Europe"}) {
		t.Fatalf("columns = %v", got)
	}
	if x.At(1, 0) != 1 || x.At(1, 1) != 1 || x.At(1, 2) != 1 {
		t.Fatalf("row B = %v %v %v", x.At(1, 0), x.At(1, 1), x.At(1, 2))
	}

	if _, _, err := Encode(ps, []string{"lifetime_value"}); !errs.IsConfig(err) {
		t.Fatalf("unknown column: err = %v", err)
	}
	if _, _, err := Encode(nil, nil); !errs.IsData(err) {
		t.Fatalf("empty: err = %v", err)
	}
}

func TestTransformUnseenRegionEncodesAsReference(t *testing.T) {
	ps := []Profile{{CustomerID: "A", Region: "Asia"}, {CustomerID: "B", Region: "Europe", TotalSpend: 1}}
	enc, err := FitEncoder(ps, nil)
	if err != nil {
		t.Fatal(err)
	}
	x, err := enc.Transform([]Profile{{CustomerID: "Z", Region: "Oceania"}})
	if err != nil {
		t.Fatal(err)
	}
	if x.At(0, 3) != 0 {
		t.Fatalf("unseen region set an indicator")
	}
}
