package platform

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// NoExtension is reported for files without an extension
const NoExtension = "other"

// NormalizePath normalizes a path for the current platform
func NormalizePath(path string) string {
	// Convert to platform-specific separators
	normalized := filepath.Clean(path)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(path, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// AbsRoot resolves a scan root to a normalized absolute path
func AbsRoot(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}
	return NormalizePath(abs), nil
}

// RealRoot resolves a scan root to its absolute path with every symlink
// evaluated. Two roots name the same directory only if their real roots
// are equal. The root must exist.
func RealRoot(path string) (string, error) {
	abs, err := AbsRoot(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return NormalizePath(resolved), nil
}

// CollapseRoots drops roots that repeat or lie beneath another root,
// keeping the first occurrence order. Roots must be real roots.
func CollapseRoots(roots []string) []string {
	collapsed := make([]string, 0, len(roots))
	for i, root := range roots {
		covered := false
		for j, other := range roots {
			if i == j {
				continue
			}
			// Equal roots keep the first; nested roots keep the ancestor
			if root == other && j < i || root != other && Contains(other, root) {
				covered = true
				break
			}
		}
		if !covered {
			collapsed = append(collapsed, root)
		}
	}
	return collapsed
}

// Contains reports whether target is root itself or lies beneath it.
// Both paths must already be absolute and normalized.
func Contains(root, target string) bool {
	if root == target {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}

// SplitFile splits a path into the file name, its containing directory and
// the lower-cased extension without the leading dot
func SplitFile(path string) (name, dir, ext string) {
	return filepath.Base(path), filepath.Dir(path), Extension(path)
}

// Extension returns the lower-cased extension of path without the dot,
// or NoExtension when the name has none. Dotfiles such as ".bashrc" have no
// extension.
func Extension(path string) string {
	base := filepath.Base(path)
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 || idx == len(base)-1 {
		return NoExtension
	}
	return strings.ToLower(base[idx+1:])
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) && !IsUNCPath(path) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
