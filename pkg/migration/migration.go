// Package migration applies ordered schema migrations and records them in
// schema_migrations, grouped in batches so the last run can be rolled back.
package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Migration changes the schema. Both directions run inside a transaction.
type Migration interface {
	Up(tx *gorm.DB) error
	Down(tx *gorm.DB) error
}

// Entry names a migration. Names sort chronologically, e.g.
// "20260101000000_create_users".
type Entry struct {
	Name      string
	Migration Migration
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

// Status describes one known migration.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

// Runner applies a fixed set of entries to a database.
type Runner struct {
	db      *gorm.DB
	entries []Entry
}

func New(db *gorm.DB, entries []Entry) *Runner {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Runner{db: db, entries: sorted}
}

func (r *Runner) ensureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) ran(ctx context.Context) (map[string]record, error) {
	var rows []record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

// Up applies every pending migration as one new batch and returns the
// names applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}

	batch := r.lastBatch(ctx) + 1
	var applied []string
	for _, e := range r.entries {
		if _, ok := done[e.Name]; ok {
			continue
		}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := e.Migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&record{Name: e.Name, Batch: batch}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("migration: %s up: %w", e.Name, err)
		}
		logger.Info("migration: applied", "name", e.Name, "batch", batch)
		applied = append(applied, e.Name)
	}
	return applied, nil
}

// Rollback reverts the most recent batch, newest first, and returns the
// names reverted.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	batch := r.lastBatch(ctx)
	if batch == 0 {
		return nil, nil
	}

	var rows []record
	if err := r.db.WithContext(ctx).Where("batch = ?", batch).Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}

	known := make(map[string]Migration, len(r.entries))
	for _, e := range r.entries {
		known[e.Name] = e.Migration
	}

	var reverted []string
	for _, row := range rows {
		m, ok := known[row.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: %s is recorded but not registered", row.Name)
		}
		row := row
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&row).Error
		})
		if err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", row.Name, err)
		}
		logger.Info("migration: rolled back", "name", row.Name)
		reverted = append(reverted, row.Name)
	}
	return reverted, nil
}

// Status lists every registered migration in order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(r.entries))
	for _, e := range r.entries {
		rec, ok := done[e.Name]
		out = append(out, Status{Name: e.Name, Ran: ok, Batch: rec.Batch})
	}
	return out, nil
}

func (r *Runner) lastBatch(ctx context.Context) int {
	var last struct{ Max int }
	r.db.WithContext(ctx).Model(&record{}).Select("COALESCE(MAX(batch), 0) AS max").Scan(&last)
	return last.Max
}
