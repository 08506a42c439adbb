// Package orm is a thin, chainable wrapper over *gorm.DB.
//
// The wrapper's main job is to carry a transaction through a context.Context:
// Transaction stores the *gorm.DB transaction handle in the context it passes
// to the unit of work, and WithContext picks it back up. Repositories written
// against *Query therefore join an enclosing transaction without having to
// know about it.
//
//	err := orm.DB().Transaction(ctx, func(ctx context.Context) error {
//	    if err := products.DecrementStock(ctx, id, owner, 3); err != nil {
//	        return err // rolls back
//	    }
//	    return invoices.CreateWithItems(ctx, inv)
//	})
package orm

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by First when no row matches.
var ErrNotFound = errors.New("orm: record not found")

type txKey struct{}

type Query struct {
	db *gorm.DB
}

// DB returns a Query over the application's shared connection.
func DB() *Query {
	return &Query{db: database.DB}
}

// New wraps an arbitrary *gorm.DB. Tests use it with throwaway databases.
func New(db *gorm.DB) *Query {
	return &Query{db: db}
}

// Gorm exposes the underlying handle for the rare query the wrapper does not
// cover (migrations, raw SQL).
func (q *Query) Gorm() *gorm.DB {
	return q.db
}

// WithContext binds ctx to the query. When ctx carries a transaction started
// by Transaction, the query runs inside that transaction.
func (q *Query) WithContext(ctx context.Context) *Query {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return &Query{db: tx.WithContext(ctx)}
	}
	return &Query{db: q.db.WithContext(ctx)}
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok && tx != nil
}

// Transaction runs fn inside a single database transaction. fn receives a
// context carrying the transaction; returning an error (or panicking) rolls
// everything back. Nested calls join the outer transaction.
func (q *Query) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// ─── Chain builders ───────────────────────────────────────────────────────────

func (q *Query) Model(v interface{}) *Query {
	return &Query{db: q.db.Model(v)}
}

func (q *Query) Table(name string) *Query {
	return &Query{db: q.db.Table(name)}
}

func (q *Query) Where(query interface{}, args ...interface{}) *Query {
	return &Query{db: q.db.Where(query, args...)}
}

func (q *Query) Select(query interface{}, args ...interface{}) *Query {
	return &Query{db: q.db.Select(query, args...)}
}

func (q *Query) Joins(query string, args ...interface{}) *Query {
	return &Query{db: q.db.Joins(query, args...)}
}

func (q *Query) Group(name string) *Query {
	return &Query{db: q.db.Group(name)}
}

func (q *Query) Order(value interface{}) *Query {
	return &Query{db: q.db.Order(value)}
}

func (q *Query) Limit(n int) *Query {
	return &Query{db: q.db.Limit(n)}
}

func (q *Query) Offset(n int) *Query {
	return &Query{db: q.db.Offset(n)}
}

func (q *Query) Preload(query string, args ...interface{}) *Query {
	return &Query{db: q.db.Preload(query, args...)}
}

// ForUpdate adds a SELECT … FOR UPDATE row lock on engines that understand
// it. SQLite and SQL Server lock differently and are left untouched.
func (q *Query) ForUpdate() *Query {
	switch q.db.Dialector.Name() {
	case "sqlite", "sqlserver":
		return q
	}
	return &Query{db: q.db.Clauses(clause.Locking{Strength: "UPDATE"})}
}

// ─── Finishers ────────────────────────────────────────────────────────────────

func (q *Query) Get(dest interface{}) error {
	return q.db.Find(dest).Error
}

// First loads the first matching row ordered by primary key. A miss is
// reported as ErrNotFound.
func (q *Query) First(dest interface{}) error {
	err := q.db.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (q *Query) Create(v interface{}) error {
	return q.db.Create(v).Error
}

func (q *Query) Save(v interface{}) error {
	return q.db.Save(v).Error
}

// Updates applies a column map (or struct) to the matched rows and returns
// how many rows changed.
func (q *Query) Updates(values interface{}) (int64, error) {
	res := q.db.Updates(values)
	return res.RowsAffected, res.Error
}

// Update sets a single column on the matched rows.
func (q *Query) Update(column string, value interface{}) (int64, error) {
	res := q.db.Update(column, value)
	return res.RowsAffected, res.Error
}

// Delete removes the matched rows. Models embedding gorm.Model are
// soft-deleted; pass Unscoped first for a hard delete.
func (q *Query) Delete(v interface{}) (int64, error) {
	res := q.db.Delete(v)
	return res.RowsAffected, res.Error
}

func (q *Query) Unscoped() *Query {
	return &Query{db: q.db.Unscoped()}
}

func (q *Query) Count() (int64, error) {
	var n int64
	err := q.db.Count(&n).Error
	return n, err
}

// Scan runs the built query and scans the result into dest.
func (q *Query) Scan(dest interface{}) error {
	return q.db.Scan(dest).Error
}

// Pluck loads a single column of the matched rows into dest.
func (q *Query) Pluck(column string, dest interface{}) error {
	return q.db.Pluck(column, dest).Error
}

// Exists reports whether at least one row matches.
func (q *Query) Exists() (bool, error) {
	n, err := q.Limit(1).Count()
	return n > 0, err
}

// ─── Pagination ───────────────────────────────────────────────────────────────

// Pagination describes one page of results.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Paginate counts the matched rows and loads page (1-based) into dest.
func (q *Query) Paginate(page, perPage int, dest interface{}) (Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 15
	}

	var total int64
	if err := q.db.Session(&gorm.Session{}).Model(dest).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	err := q.db.Offset((page - 1) * perPage).Limit(perPage).Find(dest).Error
	if err != nil {
		return Pagination{}, err
	}

	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}

// ─── Caching ──────────────────────────────────────────────────────────────────

// Cache serves dest from the cache store when key is present, otherwise runs
// the query and stores the result for ttl.
func (q *Query) Cache(ctx context.Context, key string, ttl time.Duration, dest interface{}) error {
	if cache.Get(ctx, key, dest) {
		return nil
	}

	err := q.db.Find(dest).Error
	if err != nil {
		return err
	}

	_ = cache.Set(ctx, key, dest, ttl)
	return nil
}
