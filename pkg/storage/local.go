package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores files under a root directory and serves them from baseURL.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) *Local {
	if !filepath.IsAbs(root) {
		if cwd, err := os.Getwd(); err == nil {
			root = filepath.Join(cwd, root)
		}
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root is the absolute directory files are written to.
func (d *Local) Root() string { return d.root }

// abs resolves p inside root; ".." segments cannot escape it.
func (d *Local) abs(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", fmt.Errorf("storage/local: invalid path %q", p)
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

func (d *Local) Put(_ context.Context, p string, r io.Reader, _ string) error {
	full, err := d.abs(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage/local: mkdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("storage/local: create %s: %w", p, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("storage/local: write %s: %w", p, err)
	}
	return f.Close()
}

func (d *Local) Get(_ context.Context, p string) (io.ReadCloser, error) {
	full, err := d.abs(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *Local) Exists(_ context.Context, p string) (bool, error) {
	full, err := d.abs(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (d *Local) Delete(_ context.Context, p string) error {
	full, err := d.abs(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage/local: delete %s: %w", p, err)
	}
	return nil
}

func (d *Local) URL(p string) string {
	return d.baseURL + "/" + strings.TrimLeft(p, "/")
}
