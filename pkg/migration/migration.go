// Package migration runs versioned schema changes and records which ones
// have been applied.
//
// Migrations register themselves from init():
//
//	func init() {
//	    migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
//	}
//
//	type CreateUsersTable struct{}
//	func (CreateUsersTable) Up(db *gorm.DB) error   { return db.AutoMigrate(&models.User{}) }
//	func (CreateUsersTable) Down(db *gorm.DB) error { return db.Migrator().DropTable(&models.User{}) }
//
// and run in name order, so names start with a timestamp.
package migration

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/billbook/pkg/logger"
	"gorm.io/gorm"
)

// Migration is the interface every migration must implement.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// Entry is a named migration.
type Entry struct {
	Name      string
	Migration Migration
}

// record is a row of the tracking table.
type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

// ------------------- Registry -------------------

var (
	mu       sync.Mutex
	registry []Entry
)

// Register adds a migration to the global registry. Registering the same
// name twice panics.
func Register(name string, m Migration) {
	mu.Lock()
	defer mu.Unlock()
	for _, e := range registry {
		if e.Name == name {
			panic(fmt.Sprintf("migration: %q registered twice", name))
		}
	}
	registry = append(registry, Entry{Name: name, Migration: m})
}

// Registered returns the global registry in name order.
func Registered() []Entry {
	mu.Lock()
	defer mu.Unlock()
	out := append([]Entry(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ------------------- Runner -------------------

// Runner executes and tracks migrations, reporting progress to out.
type Runner struct {
	db         *gorm.DB
	migrations []Entry
	out        io.Writer
}

// New creates a Runner over the global registry.
func New(db *gorm.DB, out io.Writer) *Runner {
	return NewWith(db, out, Registered()...)
}

// NewWith creates a Runner over an explicit list of migrations.
func NewWith(db *gorm.DB, out io.Writer, migrations ...Entry) *Runner {
	sorted := append([]Entry(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, migrations: sorted, out: out}
}

func (r *Runner) ensureTable() error {
	if err := r.db.AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) ran() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load history: %w", err)
	}
	out := make(map[string]record, len(rows))
	for _, rec := range rows {
		out[rec.Name] = rec
	}
	return out, nil
}

// Pending returns the migrations that have not been applied yet.
func (r *Runner) Pending() ([]Entry, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.ran()
	if err != nil {
		return nil, err
	}
	var pending []Entry
	for _, e := range r.migrations {
		if _, ok := done[e.Name]; !ok {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Run applies every pending migration as one batch. Each migration and its
// tracking row commit together.
func (r *Runner) Run() error {
	pending, err := r.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}

	batch, err := r.lastBatch()
	if err != nil {
		return err
	}
	batch++

	for _, e := range pending {
		fmt.Fprintf(r.out, "Migrating: %s\n", e.Name)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := e.Migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&record{Name: e.Name, Batch: batch}).Error
		})
		if err != nil {
			return fmt.Errorf("migration: %s up: %w", e.Name, err)
		}
		fmt.Fprintf(r.out, "Migrated:  %s\n", e.Name)
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return nil
}

// Rollback reverses the most recent batch, newest first.
func (r *Runner) Rollback() error {
	if err := r.ensureTable(); err != nil {
		return err
	}
	batch, err := r.lastBatch()
	if err != nil {
		return err
	}
	if batch == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}

	var rows []record
	if err := r.db.Where("batch = ?", batch).Order("id desc").Find(&rows).Error; err != nil {
		return fmt.Errorf("migration: load batch %d: %w", batch, err)
	}

	known := make(map[string]Migration, len(r.migrations))
	for _, e := range r.migrations {
		known[e.Name] = e.Migration
	}

	for _, rec := range rows {
		m, ok := known[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "Rolling back: %s\n", rec.Name)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&record{}, rec.ID).Error
		})
		if err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		fmt.Fprintf(r.out, "Rolled back:  %s\n", rec.Name)
	}
	logger.Info("migration: rolled back", "batch", batch, "count", len(rows))
	return nil
}

// Status prints every known migration with its batch, or Pending.
func (r *Runner) Status() error {
	if err := r.ensureTable(); err != nil {
		return err
	}
	done, err := r.ran()
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%-60s  %-8s  %s\n", "Migration", "Status", "Batch")
	fmt.Fprintln(r.out, strings.Repeat("-", 80))
	for _, e := range r.migrations {
		if rec, ok := done[e.Name]; ok {
			fmt.Fprintf(r.out, "%-60s  %-8s  %d\n", e.Name, "Ran", rec.Batch)
		} else {
			fmt.Fprintf(r.out, "%-60s  %-8s  -\n", e.Name, "Pending")
		}
	}
	return nil
}

func (r *Runner) lastBatch() (int, error) {
	var n int
	if err := r.db.Model(&record{}).Select("COALESCE(MAX(batch), 0)").Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("migration: last batch: %w", err)
	}
	return n, nil
}
