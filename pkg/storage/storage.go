// Package storage stores uploaded files on the local filesystem or an
// S3-compatible bucket (AWS S3, MinIO, R2).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

var ErrNotFound = errors.New("storage: file not found")

// Disk is one storage backend. Paths are slash separated and relative.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// Manager holds named disks and the default one.
type Manager struct {
	mu    sync.RWMutex
	disks map[string]Disk
	def   string
}

// NewManager returns a manager whose default disk is def.
func NewManager(def string) *Manager {
	return &Manager{disks: make(map[string]Disk), def: def}
}

// FromConfig boots the local disk and, when S3_BUCKET is set, the s3 disk.
func FromConfig(ctx context.Context) *Manager {
	m := NewManager(config.StorageDefault())
	m.Register("local", NewLocal(config.StorageLocalRoot(), config.StorageURL()))

	if config.StorageS3Bucket() != "" {
		d, err := NewS3(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			m.Register("s3", d)
		}
	}
	return m
}

// Register adds or replaces a disk.
func (m *Manager) Register(name string, d Disk) {
	m.mu.Lock()
	m.disks[name] = d
	m.mu.Unlock()
}

// Disk returns the named disk.
func (m *Manager) Disk(name string) (Disk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the default disk, falling back to local.
func (m *Manager) Default() Disk {
	if d, err := m.Disk(m.def); err == nil {
		return d
	}
	d, _ := m.Disk("local")
	return d
}
