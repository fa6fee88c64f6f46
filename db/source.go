package db

import (
	"context"

	"github.com/dailyyoga/warmcache/cache"
	"gorm.io/gorm"
)

// Scope narrows a source query, for example
//
//	func(tx *gorm.DB) *gorm.DB { return tx.Where("active = ?", true).Order("id") }
type Scope = func(*gorm.DB) *gorm.DB

// QuerySource loads every row of T's table matching its scopes
type QuerySource[T any] struct {
	db     Database
	scopes []Scope
}

var _ cache.Source[[]int] = (*QuerySource[int])(nil)

// NewQuerySource returns a source running SELECT on T's table with scopes applied
func NewQuerySource[T any](db Database, scopes ...Scope) *QuerySource[T] {
	return &QuerySource[T]{db: db, scopes: scopes}
}

// Refresh runs the query. An empty table yields an empty, non-nil slice.
func (s *QuerySource[T]) Refresh(ctx context.Context) ([]T, error) {
	gdb, err := s.db.DB()
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0)
	tx := gdb.WithContext(ctx).Scopes(s.scopes...).Find(&rows)
	if tx.Error != nil {
		return nil, ErrQuery(tx.Statement.Table, tx.Error)
	}
	return rows, nil
}

// IndexBy turns a row source into a lookup table keyed by key.
// Later rows win when keys collide.
func IndexBy[K comparable, T any](src cache.Source[[]T], key func(T) K) cache.Source[map[K]T] {
	return cache.SourceFunc[map[K]T](func(ctx context.Context) (map[K]T, error) {
		rows, err := src.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		index := make(map[K]T, len(rows))
		for _, row := range rows {
			index[key(row)] = row
		}
		return index, nil
	})
}
