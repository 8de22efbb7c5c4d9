package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)
	unsafeChars   = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one migration pair on disk
type File struct {
	Version  uint
	Name     string
	UpPath   string
	DownPath string
}

// List returns the migration pairs in dir ordered by version
func List(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	byVersion := make(map[uint]*File)
	for _, e := range entries {
		match := migrationFile.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		v, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil {
			continue
		}
		f, ok := byVersion[uint(v)]
		if !ok {
			f = &File{Version: uint(v), Name: match[2]}
			byVersion[uint(v)] = f
		}
		path := filepath.Join(dir, e.Name())
		if match[3] == "up" {
			f.UpPath = path
		} else {
			f.DownPath = path
		}
	}

	files := make([]File, 0, len(byVersion))
	for _, f := range byVersion {
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// Create writes an empty up/down pair numbered after the highest version in dir
func Create(dir, name string) (*File, error) {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return nil, fmt.Errorf("invalid migration name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}
	existing, err := List(dir)
	if err != nil {
		return nil, err
	}
	next := uint(1)
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	base := filepath.Join(dir, fmt.Sprintf("%06d_%s", next, slug))
	f := &File{Version: next, Name: slug, UpPath: base + ".up.sql", DownPath: base + ".down.sql"}
	header := fmt.Sprintf("-- %s\n-- Runs with search_path set to the country schema.\n\n", slug)
	if err := os.WriteFile(f.UpPath, []byte(header), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write up migration: %w", err)
	}
	if err := os.WriteFile(f.DownPath, []byte(header), 0o644); err != nil {
		_ = os.Remove(f.UpPath)
		return nil, fmt.Errorf("failed to write down migration: %w", err)
	}
	return f, nil
}
