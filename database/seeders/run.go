// Package seeders fills a database with sample data for local use.
//
// Seeders register from init() and run in registration order:
//
//	func init() { Register("demo", SeedDemo) }
package seeders

import (
	"fmt"
	"io"
	"sync"

	"gorm.io/gorm"
)

// SeederFunc is the signature for a seed function.
type SeederFunc func(db *gorm.DB) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

// Register adds a seeder to the global registry.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// RunAll executes every registered seeder in its own transaction and stops
// on the first error.
func RunAll(db *gorm.DB, out io.Writer) error {
	mu.Lock()
	current := append([]seederEntry(nil), entries...)
	mu.Unlock()

	if len(current) == 0 {
		fmt.Fprintln(out, "No seeders registered.")
		return nil
	}

	for _, e := range current {
		fmt.Fprintf(out, "Seeding: %s\n", e.name)
		if err := db.Transaction(e.fn); err != nil {
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
	}
	fmt.Fprintf(out, "Seeding complete (%d seeders ran)\n", len(current))
	return nil
}
