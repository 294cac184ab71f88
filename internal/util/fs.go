package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// SafeJoin joins a slash separated object key below root, dropping any
// component that would escape it.
func SafeJoin(root, key string) string {
	parts := strings.Split(filepath.ToSlash(key), "/")
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, root)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, p)
	}
	return filepath.Join(clean...)
}
