package collab

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// hostPath maps a host path to a path relative to the root of the host
// filesystem, the form hackpadfs expects.
func hostPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("empty path")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel := strings.TrimPrefix(path.Clean(filepath.ToSlash(abs)), "/")
	if rel == "" {
		rel = "."
	}
	return rel, nil
}

// fsPath cleans a slash-separated path for a non-host filesystem.
func fsPath(p string) string {
	rel := strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
	if rel == "" {
		return "."
	}
	return rel
}
