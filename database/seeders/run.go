// Package seeders fills a fresh database with a demo catalog and the admin
// account. Seeders register themselves from init and are idempotent.
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gorm.io/gorm"
)

// SeederFunc is the signature for a seed function.
type SeederFunc func(ctx context.Context, db *gorm.DB) error

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

// RunAll executes every registered seeder in registration order, reporting
// progress to out. It stops on the first error.
func RunAll(ctx context.Context, db *gorm.DB, out io.Writer) error {
	mu.Lock()
	current := append([]seederEntry(nil), entries...)
	mu.Unlock()

	for _, e := range current {
		fmt.Fprintf(out, "  • %s … ", e.name)
		if err := e.fn(ctx, db); err != nil {
			fmt.Fprintln(out, "FAILED")
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
		fmt.Fprintln(out, "done")
	}
	return nil
}
