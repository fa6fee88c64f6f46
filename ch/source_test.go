package ch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dailyyoga/warmcache/cache"
	"go.uber.org/zap"
)

type dailyRevenue struct {
	Day     time.Time `ch:"day"`
	Revenue float64   `ch:"revenue"`
}

// fakeClient answers Select with canned rows
type fakeClient struct {
	revenue []dailyRevenue
	columns []Column
	err     error

	queries []string
	args    [][]any
}

func (f *fakeClient) Query(context.Context, string, ...any) (driver.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) QueryRow(context.Context, string, ...any) driver.Row { return nil }

func (f *fakeClient) Select(_ context.Context, dest any, query string, args ...any) error {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	if f.err != nil {
		return f.err
	}
	switch d := dest.(type) {
	case *[]dailyRevenue:
		*d = append(*d, f.revenue...)
	case *[]Column:
		*d = append(*d, f.columns...)
	default:
		return errors.New("unexpected destination")
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }

func TestQuerySource_Refresh(t *testing.T) {
	day := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{revenue: []dailyRevenue{{Day: day, Revenue: 1200.5}}}

	src := NewQuerySource[dailyRevenue](client, "SELECT day, sum(amount) AS revenue FROM orders WHERE day >= ? GROUP BY day", day)
	rows, err := src.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Revenue != 1200.5 {
		t.Errorf("unexpected rows: %+v", rows)
	}
	if len(client.args) != 1 || client.args[0][0] != day {
		t.Errorf("query args not forwarded: %v", client.args)
	}
}

func TestQuerySource_Empty(t *testing.T) {
	rows, err := NewQuerySource[dailyRevenue](&fakeClient{}, "SELECT 1").Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", rows)
	}
}

func TestQuerySource_Error(t *testing.T) {
	queryErr := errors.New("code: 60, message: Table default.orders does not exist")
	_, err := NewQuerySource[dailyRevenue](&fakeClient{err: queryErr}, "SELECT 1").Refresh(context.Background())
	if !errors.Is(err, queryErr) {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}

func TestSchemaSource(t *testing.T) {
	client := &fakeClient{columns: []Column{
		{Name: "id", Type: "UInt64"},
		{Name: "email", Type: "Nullable(String)"},
		{Name: "domain", Type: "String", DefaultType: "MATERIALIZED", DefaultExpression: "domain(email)"},
	}}

	src, err := SchemaSource(client, "analytics.users")
	if err != nil {
		t.Fatalf("SchemaSource failed: %v", err)
	}
	columns, err := src.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if client.queries[0] != "DESCRIBE TABLE `analytics`.`users`" {
		t.Errorf("unexpected query: %s", client.queries[0])
	}
	if len(columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(columns))
	}
	if !columns[1].Nullable() || columns[1].BaseType() != "String" {
		t.Errorf("unexpected nullable parsing: %+v", columns[1])
	}
	if columns[0].Nullable() || columns[0].BaseType() != "UInt64" {
		t.Errorf("unexpected type parsing: %+v", columns[0])
	}
	if !columns[0].Insertable() || columns[2].Insertable() {
		t.Error("materialized columns are not insertable")
	}
}

func TestSchemaSource_InvalidTable(t *testing.T) {
	for _, table := range []string{"", "users; DROP TABLE x", "a.b.c", "1users"} {
		if _, err := SchemaSource(&fakeClient{}, table); !errors.Is(err, ErrInvalidTable) {
			t.Errorf("SchemaSource(%q): expected ErrInvalidTable, got %v", table, err)
		}
	}
}

func TestQuerySource_DrivesCache(t *testing.T) {
	client := &fakeClient{revenue: []dailyRevenue{{Revenue: 1}}}

	h, err := cache.New[[]dailyRevenue](zap.NewNop()).
		WithName("revenue").
		WithRefresh(NewQuerySource[dailyRevenue](client, "SELECT 1")).
		WithFrequency(time.Hour).
		Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	if len(h.Get()) != 1 {
		t.Errorf("unexpected initial value: %+v", h.Get())
	}
}
