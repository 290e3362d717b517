// Package store owns the on-disk minute archive and derived artifacts of one provider.
//
// Layout:
//
//	{root}/{provider}/min1/{KEY}.{ext}
//	{root}/{provider}/derived/{KEY}_{tf}.{ext}
//
// Every write goes to a temporary file in the target directory and is renamed
// over the old artifact, so a reader never sees a partially written file.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bars-archive/internal/model"
	"bars-archive/internal/saver"
)

const (
	minuteDir  = "min1"
	derivedDir = "derived"
)

// Store loads, merges and persists archives for one provider namespace.
type Store struct {
	root     string
	provider string
	codec    saver.Codec
}

// New returns a Store for provider under root.
func New(root, provider string, codec saver.Codec) *Store {
	return &Store{root: root, provider: provider, codec: codec}
}

// Provider returns the provider namespace.
func (s *Store) Provider() string { return s.provider }

// ArchivePath returns the minute archive path for key.
func (s *Store) ArchivePath(key string) string {
	return filepath.Join(s.root, s.provider, minuteDir, key+"."+s.codec.Extension())
}

// DerivedPath returns the derived artifact path for key and timeframe name.
func (s *Store) DerivedPath(key, tf string) string {
	return filepath.Join(s.root, s.provider, derivedDir, key+"_"+strings.ToLower(tf)+"."+s.codec.Extension())
}

// Load returns the archive sorted by timestamp, or nil when it is absent or empty.
func (s *Store) Load(key string) (model.Series, error) {
	path := s.ArchivePath(key)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	bars, err := s.codec.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	bars.Sort()
	return bars, nil
}

// Merge combines existing and newBars, keeps newBars on duplicate timestamps,
// sorts ascending and replaces the archive of key with the result.
func (s *Store) Merge(key string, existing, newBars model.Series) (model.Series, error) {
	merged := MergeSeries(existing, newBars)
	if err := s.replace(s.ArchivePath(key), merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// SaveDerived replaces the derived artifact of key for timeframe tf and returns its path.
func (s *Store) SaveDerived(key, tf string, bars model.Series) (string, error) {
	path := s.DerivedPath(key, tf)
	if err := s.replace(path, bars); err != nil {
		return "", err
	}
	return path, nil
}

// Purge removes the archive and all derived artifacts of key. It returns the number
// of files removed.
func (s *Store) Purge(key string) (int, error) {
	paths := []string{s.ArchivePath(key)}

	dir := filepath.Join(s.root, s.provider, derivedDir)
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}
	prefix, ext := key+"_", "."+s.codec.Extension()
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext) {
			paths = append(paths, filepath.Join(dir, name))
		}
	}

	deleted := 0
	for _, p := range paths {
		err := os.Remove(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("remove %s: %w", p, err)
		}
		deleted++
	}
	return deleted, nil
}

func (s *Store) replace(path string, bars model.Series) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*."+s.codec.Extension())
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := s.codec.Save(bars, tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// MergeSeries concatenates existing and newBars and returns a strictly increasing
// series. On duplicate timestamps the last occurrence wins, so newBars override.
func MergeSeries(existing, newBars model.Series) model.Series {
	all := make(model.Series, 0, len(existing)+len(newBars))
	all = append(all, existing...)
	all = append(all, newBars...)
	all.Sort()

	out := all[:0]
	for i, b := range all {
		if i+1 < len(all) && all[i+1].Timestamp == b.Timestamp {
			continue
		}
		out = append(out, b)
	}
	return out
}
