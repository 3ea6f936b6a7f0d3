package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

type stagedFile struct {
	path string
	data []byte
}

// Staged collects the output files of a run so they can be written together.
// Nothing touches the filesystem until Commit.
type Staged struct {
	files []stagedFile
}

// Add queues data for path. A later Add for the same path replaces it.
func (s *Staged) Add(path string, data []byte) {
	for i := range s.files {
		if s.files[i].path == path {
			s.files[i].data = data
			return
		}
	}
	s.files = append(s.files, stagedFile{path: path, data: data})
}

// Paths returns the queued paths in the order they were added.
func (s *Staged) Paths() []string {
	out := make([]string, len(s.files))
	for i, f := range s.files {
		out[i] = f.path
	}
	return out
}

// Commit writes every queued file to a temp name first and renames them into
// place only once all temp files exist. A failed write removes the temp files
// and leaves every target untouched.
func (s *Staged) Commit() error {
	var temps []string
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}
	for _, f := range s.files {
		if dir := filepath.Dir(f.path); dir != "" && dir != "." {
			if err := EnsureDir(dir); err != nil {
				cleanup()
				return fmt.Errorf("ensure dir for %s: %w", f.path, err)
			}
		}
		tmp := f.path + ".tmp"
		if err := os.WriteFile(tmp, f.data, 0o644); err != nil {
			_ = os.Remove(tmp)
			cleanup()
			return fmt.Errorf("write temp file for %s: %w", f.path, err)
		}
		temps = append(temps, tmp)
	}
	for i, f := range s.files {
		if err := os.Rename(temps[i], f.path); err != nil {
			temps = temps[i:]
			cleanup()
			return fmt.Errorf("atomic rename %s: %w", f.path, err)
		}
	}
	return nil
}
