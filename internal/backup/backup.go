// Package backup takes scheduled snapshots of the on-disk state (the
// metadata database and the vector index pair).
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"docgate/internal/version"
)

// Manifest describes one snapshot.
type Manifest struct {
	CreatedAt time.Time `json:"created_at"`
	Version   string    `json:"version"`
	Files     []string  `json:"files"`
}

// Snapshot is the result of one backup run.
type Snapshot struct {
	Dir      string
	Manifest Manifest
}

// Manager copies the configured source files into timestamped snapshot
// directories, on demand or on a cron schedule.
type Manager struct {
	dir     string
	keep    int
	sources []string
	cron    *cron.Cron
}

// NewManager creates a backup manager. keep limits retained snapshots;
// zero or negative keeps everything.
func NewManager(dir string, keep int, sources ...string) *Manager {
	return &Manager{dir: dir, keep: keep, sources: sources}
}

// Start schedules periodic backups with the given cron expression.
func (m *Manager) Start(schedule string) error {
	m.cron = cron.New()
	_, err := m.cron.AddFunc(schedule, func() {
		if _, err := m.Run(); err != nil {
			log.Printf("[Backup] scheduled backup failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("backup: schedule %q: %w", schedule, err)
	}
	m.cron.Start()
	log.Printf("[Backup] scheduled with %q", schedule)
	return nil
}

// Stop stops the schedule. Safe to call without Start.
func (m *Manager) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// Run takes one snapshot now. Missing source files are skipped; an empty
// source set is an error.
func (m *Manager) Run() (*Snapshot, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	dir := filepath.Join(m.dir, stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot dir: %w", err)
	}

	manifest := Manifest{
		CreatedAt: time.Now().UTC(),
		Version:   version.Info(),
	}
	for _, src := range m.sources {
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		name := filepath.Base(src)
		if err := copyFile(src, filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("backup: copy %s: %w", src, err)
		}
		manifest.Files = append(manifest.Files, name)
	}
	if len(manifest.Files) == 0 {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("backup: no source files present")
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("backup: write manifest: %w", err)
	}

	if err := m.prune(); err != nil {
		log.Printf("[Backup] prune failed: %v", err)
	}

	log.Printf("[Backup] snapshot %s (%d files)", dir, len(manifest.Files))
	return &Snapshot{Dir: dir, Manifest: manifest}, nil
}

// List returns snapshot directory names, oldest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// prune removes the oldest snapshots beyond the retention limit.
func (m *Manager) prune() error {
	if m.keep <= 0 {
		return nil
	}
	names, err := m.List()
	if err != nil {
		return err
	}
	for len(names) > m.keep {
		if err := os.RemoveAll(filepath.Join(m.dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
