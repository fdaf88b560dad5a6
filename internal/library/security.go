package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecurityError reports a rejected user-supplied path. Path validation
// always fails closed: anything that cannot be proven safe is rejected.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("unsafe path %q: %s", e.Path, e.Reason)
}

// defaultDeniedDirs are sensitive subdirectories (relative to the allowed
// root) that user-supplied paths must never reach, even when the path itself
// is inside the allowed root.
var defaultDeniedDirs = []string{
	".ssh",
	".gnupg",
	".aws",
	".kube",
	".password-store",
	filepath.Join(".config", "gcloud"),
}

// ValidatePath is the security gate run before any filesystem access driven
// by user input. It rejects non-absolute paths, embedded null bytes, and --
// after resolving symlinks and ".." segments -- any path outside the allowed
// root or inside a denied sensitive subdirectory. A nil return means the
// path is safe to touch.
func (m *Manager) ValidatePath(path string) error {
	if path == "" {
		return &SecurityError{Path: path, Reason: "path is empty"}
	}
	if strings.ContainsRune(path, 0) {
		return &SecurityError{Path: path, Reason: "path contains null byte"}
	}
	if !filepath.IsAbs(path) {
		return &SecurityError{Path: path, Reason: "path is not absolute"}
	}

	resolved, err := resolveSymlinks(filepath.Clean(path))
	if err != nil {
		return &SecurityError{Path: path, Reason: "path could not be resolved"}
	}

	allowed, err := resolveSymlinks(m.allowedRoot)
	if err != nil {
		return &SecurityError{Path: path, Reason: "allowed root could not be resolved"}
	}

	rel, err := filepath.Rel(allowed, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &SecurityError{Path: path, Reason: "path is outside the allowed root"}
	}

	for _, denied := range m.deniedDirs {
		if rel == denied || strings.HasPrefix(rel, denied+string(filepath.Separator)) {
			return &SecurityError{Path: path, Reason: "path is inside a protected directory"}
		}
	}

	return nil
}

// IsValidPath reports whether the path passes ValidatePath.
func (m *Manager) IsValidPath(path string) bool {
	return m.ValidatePath(path) == nil
}

// resolveSymlinks resolves the path through its nearest existing ancestor,
// so traversal checks hold for paths that do not exist yet.
func resolveSymlinks(path string) (string, error) {
	current := path
	suffix := ""
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(current), suffix)
		current = parent
	}
}
