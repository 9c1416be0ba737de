// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the generic conditional read/update/
// delete executors built on the query package: every repository routes its
// filtered operations through these so that predicate translation, empty-
// filter guarding, and pagination behave identically across entities.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/query"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrEmptyFilter is returned when a bulk update or delete is attempted with
// an empty predicate set that was not built with query.All. Mutating every
// row must be asked for explicitly, never reached through a forgotten
// filter.
var ErrEmptyFilter = errors.New("empty filter on bulk mutation")

// FindWhere returns all rows of T matching set, ordered by order (which may
// be nil for backend order). The result is a fresh slice; an empty set
// matches every row.
func FindWhere[T any](ctx context.Context, db *gorm.DB, set *query.Set, order *query.Order) ([]T, error) {
	tx, err := set.Apply(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	tx = order.Apply(tx)
	var out []T
	err = tx.Find(&out).Error
	return out, err
}

// CountWhere returns the number of rows of model matching set, without any
// window applied.
func CountWhere(ctx context.Context, db *gorm.DB, model any, set *query.Set) (int64, error) {
	tx, err := set.Apply(db.WithContext(ctx).Model(model))
	if err != nil {
		return 0, err
	}
	var total int64
	err = tx.Count(&total).Error
	return total, err
}

// FindPage returns one page of rows of T matching set plus the pagination
// summary. The total is obtained by a second, unwindowed count of the same
// filter; the two statements are deliberately independent round-trips.
func FindPage[T any](ctx context.Context, db *gorm.DB, set *query.Set, order *query.Order, page query.Page) ([]T, query.Result, error) {
	page = page.Normalize(0)

	var probe T
	total, err := CountWhere(ctx, db, &probe, set)
	if err != nil {
		return nil, query.Result{}, err
	}
	meta := query.Meta(total, page)
	if total == 0 {
		return []T{}, meta, nil
	}

	tx, err := set.Apply(db.WithContext(ctx))
	if err != nil {
		return nil, query.Result{}, err
	}
	tx = page.Apply(order.Apply(tx))
	var out []T
	err = tx.Find(&out).Error
	return out, meta, err
}

// UpdateWhere applies changes (column→value) to every row of model matching
// set in a single bulk statement and returns the number of rows affected.
//
// An empty set is rejected with ErrEmptyFilter unless it was built with
// query.All, in which case the whole table is updated.
func UpdateWhere(ctx context.Context, db *gorm.DB, model any, set *query.Set, changes map[string]any) (int64, error) {
	if set.Empty() && !set.MatchAll() {
		return 0, ErrEmptyFilter
	}
	tx := db.WithContext(ctx).Model(model)
	if set.Empty() {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	tx, err := set.Apply(tx)
	if err != nil {
		return 0, err
	}
	res := tx.Updates(changes)
	return res.RowsAffected, res.Error
}

// DeleteWhere removes every row of model matching set in a single bulk
// statement and returns the number of rows affected. Empty-filter handling
// matches UpdateWhere: rejected unless query.All was used.
func DeleteWhere(ctx context.Context, db *gorm.DB, model any, set *query.Set) (int64, error) {
	if set.Empty() && !set.MatchAll() {
		return 0, ErrEmptyFilter
	}
	tx := db.WithContext(ctx)
	if set.Empty() {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	tx, err := set.Apply(tx)
	if err != nil {
		return 0, err
	}
	res := tx.Delete(model)
	return res.RowsAffected, res.Error
}
