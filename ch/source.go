package ch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dailyyoga/warmcache/cache"
)

// QuerySource loads the rows of a query into a slice of T.
// T is a struct whose fields carry `ch:"column"` tags.
type QuerySource[T any] struct {
	client Client
	query  string
	args   []any
}

var _ cache.Source[[]struct{}] = (*QuerySource[struct{}])(nil)

// NewQuerySource returns a source running query with args on every refresh
func NewQuerySource[T any](client Client, query string, args ...any) *QuerySource[T] {
	return &QuerySource[T]{client: client, query: query, args: args}
}

// Refresh runs the query. An empty result yields an empty, non-nil slice.
func (s *QuerySource[T]) Refresh(ctx context.Context) ([]T, error) {
	rows := make([]T, 0)
	if err := s.client.Select(ctx, &rows, s.query, s.args...); err != nil {
		return nil, ErrQuery(s.query, err)
	}
	return rows, nil
}

// Column is one row of DESCRIBE TABLE
type Column struct {
	Name              string `ch:"name"`
	Type              string `ch:"type"`
	DefaultType       string `ch:"default_type"`
	DefaultExpression string `ch:"default_expression"`
	Comment           string `ch:"comment"`
	CodecExpression   string `ch:"codec_expression"`
	TTLExpression     string `ch:"ttl_expression"`
}

// Nullable reports whether the column type is Nullable(...)
func (c Column) Nullable() bool {
	return strings.HasPrefix(c.Type, "Nullable(")
}

// BaseType returns the column type without the Nullable wrapper
func (c Column) BaseType() string {
	if c.Nullable() {
		return strings.TrimSuffix(strings.TrimPrefix(c.Type, "Nullable("), ")")
	}
	return c.Type
}

// Insertable reports whether values can be written to the column
func (c Column) Insertable() bool {
	switch c.DefaultType {
	case "MATERIALIZED", "ALIAS", "EPHEMERAL":
		return false
	default:
		return true
	}
}

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SchemaSource returns a source describing the columns of table, so that
// schema changes are picked up without a restart
func SchemaSource(client Client, table string) (cache.Source[[]Column], error) {
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	quoted := "`" + strings.ReplaceAll(table, ".", "`.`") + "`"
	return NewQuerySource[Column](client, "DESCRIBE TABLE "+quoted), nil
}
