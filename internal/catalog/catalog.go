package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrDatasetNotFound is returned when a requested dataset is not in the
// catalog directory.
var ErrDatasetNotFound = errors.New("dataset not found in data directory")

// Catalog tracks the CSV datasets available in a data directory. It keeps
// the listing current through a filesystem watcher plus periodic rescans.
type Catalog struct {
	dir string

	mu    sync.RWMutex
	files []string

	watcher *fsnotify.Watcher
}

// New creates a Catalog over dir, creating the directory if needed, and
// performs the initial scan.
func New(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	c := &Catalog{dir: dir}
	if err := c.Rescan(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string { return c.dir }

// Rescan re-reads the directory listing.
func (c *Catalog) Rescan() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	c.mu.Lock()
	c.files = files
	c.mu.Unlock()
	return nil
}

// Files returns the current CSV file names, sorted.
func (c *Catalog) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.files...)
}

// Path resolves a dataset name to its path inside the data directory.
// Names with path separators are rejected.
func (c *Catalog) Path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.files {
		if f == name {
			return filepath.Join(c.dir, name), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
}

// Watch follows filesystem events on the data directory and rescans on any
// change that could affect the listing. It blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.watcher = watcher
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := c.Rescan(); err != nil {
					log.Printf("catalog: rescan after %s failed: %v", event.Op, err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("catalog: watcher error: %v", err)
		}
	}
}
