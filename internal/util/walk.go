package util

import (
	"io/fs"
	"iter"
	"path/filepath"
	"regexp"
)

// FindFiles walks root and yields the absolute path of every regular file
// whose path matches pattern. The walk is lexical and single-pass; unreadable
// directories are skipped.
func FindFiles(root string, pattern *regexp.Regexp) iter.Seq[string] {
	return func(yield func(string) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return
		}
		_ = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != abs {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !pattern.MatchString(filepath.ToSlash(path)) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
