package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

func sampleRows(n int) shipping.Table {
	t := make(shipping.Table, n)
	for d := range t {
		t[d].Desi = d
		for c := 0; c < shipping.NumCarriers; c++ {
			t[d].Costs[c] = 50 + float64(d) + float64(c)/4
		}
	}
	return t
}

// exerciseStorage runs the behaviour every backend must share.
func exerciseStorage(t *testing.T, st Storage) {
	t.Helper()
	ctx := context.Background()

	if err := st.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	empty, err := st.ListShippingCosts(ctx)
	if err != nil {
		t.Fatalf("ListShippingCosts before first replace: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(empty))
	}
	if r, err := st.GetShippingCost(ctx, 3); err != nil || r != nil {
		t.Fatalf("GetShippingCost on missing table: row=%v err=%v", r, err)
	}

	rows := sampleRows(101)
	if err := st.ReplaceShippingCosts(ctx, rows); err != nil {
		t.Fatalf("ReplaceShippingCosts failed: %v", err)
	}
	got, err := st.ListShippingCosts(ctx)
	if err != nil {
		t.Fatalf("ListShippingCosts failed: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Fatalf("row %d mismatch: want %+v got %+v", i, rows[i], got[i])
		}
	}

	one, err := st.GetShippingCost(ctx, 42)
	if err != nil {
		t.Fatalf("GetShippingCost failed: %v", err)
	}
	if one == nil || *one != rows[42] {
		t.Fatalf("unexpected row for desi 42: %+v", one)
	}
	if missing, err := st.GetShippingCost(ctx, 500); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown desi, got row=%v err=%v", missing, err)
	}

	// A second replace drops the previous contents entirely.
	if err := st.ReplaceShippingCosts(ctx, sampleRows(3)); err != nil {
		t.Fatalf("second ReplaceShippingCosts failed: %v", err)
	}
	got, err = st.ListShippingCosts(ctx)
	if err != nil {
		t.Fatalf("ListShippingCosts failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows after replace, got %d", len(got))
	}

	dup := sampleRows(2)
	dup[1].Desi = 0
	if err := st.ReplaceShippingCosts(ctx, dup); err == nil {
		t.Fatalf("expected duplicate desi to fail")
	}
}

func TestMemoryStorage(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	exerciseStorage(t, m)
}

func TestSQLiteStorage(t *testing.T) {
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "shipping_costs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer st.Close()
	exerciseStorage(t, st)
}

func TestSQLiteStorage_FailedReplaceKeepsPreviousTable(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer st.Close()

	if err := st.ReplaceShippingCosts(ctx, sampleRows(5)); err != nil {
		t.Fatal(err)
	}
	dup := sampleRows(2)
	dup[1].Desi = 0
	if err := st.ReplaceShippingCosts(ctx, dup); err == nil {
		t.Fatal("expected duplicate desi error")
	}
	got, err := st.ListShippingCosts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("expected rollback to keep 5 rows, got %d", len(got))
	}
}

func TestGormSQLiteStorage(t *testing.T) {
	st, err := NewGormStorage("gorm-sqlite", filepath.Join(t.TempDir(), "gorm.db"))
	if err != nil {
		t.Fatalf("NewGormStorage failed: %v", err)
	}
	defer st.Close()
	exerciseStorage(t, st)

	ok, err := st.AcquireAdvisoryLock(context.Background(), 7)
	if err != nil || !ok {
		t.Fatalf("sqlite advisory lock should always succeed: ok=%v err=%v", ok, err)
	}
}

func TestCostColumnTypePerDialect(t *testing.T) {
	cases := map[string]gorm.Dialector{
		"double precision": postgres.Open("host=localhost dbname=shipratemanager"),
		"real":             sqlite.Open(":memory:"),
	}
	for want, d := range cases {
		db := &gorm.DB{Config: &gorm.Config{Dialector: d}}
		if got := Cost(0).GormDBDataType(db, nil); got != want {
			t.Errorf("%s: expected %q, got %q", d.Name(), want, got)
		}
	}
}

func TestGormSQLiteStorage_ColumnTypes(t *testing.T) {
	st, err := NewGormStorage("gorm-sqlite", filepath.Join(t.TempDir(), "gorm.db"))
	if err != nil {
		t.Fatalf("NewGormStorage failed: %v", err)
	}
	defer st.Close()
	if err := st.ReplaceShippingCosts(context.Background(), sampleRows(1)); err != nil {
		t.Fatal(err)
	}

	cols, err := st.db.Migrator().ColumnTypes(&ShippingCost{})
	if err != nil {
		t.Fatalf("ColumnTypes failed: %v", err)
	}
	if len(cols) != 1+len(sampleRows(1)[0].Costs) {
		t.Fatalf("expected 11 columns, got %d", len(cols))
	}
	for _, c := range cols {
		want := "REAL"
		if c.Name() == "desi" {
			want = "INTEGER"
		}
		if !strings.EqualFold(c.DatabaseTypeName(), want) {
			t.Errorf("column %s: expected %s, got %s", c.Name(), want, c.DatabaseTypeName())
		}
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpen_Memory(t *testing.T) {
	st, err := Open(context.Background(), Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	defer st.Close()
	if _, ok := st.(Locker); !ok {
		t.Fatal("memory storage should implement Locker")
	}
}

func TestCreateTableSQL(t *testing.T) {
	got := createTableSQL("REAL")
	want := "CREATE TABLE shipping_costs (\n\tdesi INTEGER PRIMARY KEY,\n\taras REAL,\n\tmng REAL,\n\tptt REAL,\n\tsendeo REAL,\n\tsurat REAL,\n\ttex REAL,\n\tyurtici REAL,\n\tborusan REAL,\n\tceva REAL,\n\thoroz REAL\n)"
	if got != want {
		t.Fatalf("unexpected DDL:\n%s", got)
	}
	if ins := insertSQL(dollarN); ins != "INSERT INTO shipping_costs (desi, aras, mng, ptt, sendeo, surat, tex, yurtici, borusan, ceva, horoz) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)" {
		t.Fatalf("unexpected insert: %s", ins)
	}
}
