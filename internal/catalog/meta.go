package catalog

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const metaSuffix = ".meta.json"

// Dir persists table metadata under <root>/tables. Index contents are not
// persisted; they are rebuilt empty on open.
type Dir struct {
	Root string
}

func (d Dir) tableDir() string {
	return filepath.Join(d.Root, "tables")
}

func (d Dir) metaPath(name string) string {
	return filepath.Join(d.tableDir(), name+metaSuffix)
}

// Write overwrites the meta file for a given table.
func (d Dir) Write(meta *TableMeta) error {
	if err := os.MkdirAll(d.tableDir(), 0o755); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.metaPath(meta.Name), data, 0o644)
}

// Read loads table metadata from its JSON file.
func (d Dir) Read(name string) (*TableMeta, error) {
	data, err := os.ReadFile(d.metaPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}

	var meta TableMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List reads every table meta in the directory, sorted by name.
func (d Dir) List() ([]*TableMeta, error) {
	entries, err := os.ReadDir(d.tableDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), metaSuffix))
	}
	slices.Sort(names)

	out := make([]*TableMeta, 0, len(names))
	for _, n := range names {
		m, err := d.Read(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (d Dir) Remove(name string) error {
	err := os.Remove(d.metaPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrTableNotFound
	}
	return err
}
