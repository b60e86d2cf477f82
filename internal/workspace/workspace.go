// Package workspace manages the symlinked view of cloned repositories.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/marcin-skalski/grove/internal/repo"
)

// ErrLinkConflict reports an alias path occupied by something other than
// a symlink to the expected store path.
var ErrLinkConflict = errors.New("workspace link conflict")

// ErrNotFound reports a repository name with no workspace directory.
var ErrNotFound = errors.New("repository not found")

// EnsureLink creates the workspace symlink aliasPath -> targetPath.
// It is idempotent: an existing symlink that already resolves to the
// target is left alone. Anything else occupying the alias path is an
// error, never overwritten.
func EnsureLink(aliasPath, targetPath string) error {
	fi, err := os.Lstat(aliasPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", aliasPath, err)
		}
		if err := os.MkdirAll(filepath.Dir(aliasPath), 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", filepath.Dir(aliasPath), err)
		}
		if err := os.Symlink(targetPath, aliasPath); err != nil {
			return fmt.Errorf("symlink %s: %w", aliasPath, err)
		}
		return nil
	}

	if fi.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%w: %s exists and is not a symlink", ErrLinkConflict, aliasPath)
	}
	dest, err := os.Readlink(aliasPath)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", aliasPath, err)
	}
	if filepath.Clean(dest) == filepath.Clean(targetPath) {
		return nil
	}
	// A relative or indirect link may still resolve to the same place.
	resolved, err := filepath.EvalSymlinks(aliasPath)
	if err == nil {
		want, werr := filepath.EvalSymlinks(targetPath)
		if werr == nil && resolved == want {
			return nil
		}
	}
	return fmt.Errorf("%w: %s points at %s, want %s", ErrLinkConflict, aliasPath, dest, targetPath)
}

// Entry is one symlinked repository in the workspace.
type Entry struct {
	Alias    string // symlink path under the workspace root
	Store    string // resolved canonical clone path
	Identity repo.Identity
}

// List scans the workspace root for repository symlinks and decodes each
// back into its identity from the store path it points at.
func List(baseDir string) ([]Entry, error) {
	dirents, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("read workspace %s: %w", baseDir, err)
	}

	var entries []Entry
	for _, de := range dirents {
		alias := filepath.Join(baseDir, de.Name())
		fi, err := os.Lstat(alias)
		if err != nil || fi.Mode()&os.ModeSymlink == 0 {
			continue
		}
		store, err := filepath.EvalSymlinks(alias)
		if err != nil {
			continue
		}
		id, ok := identityFromStorePath(store)
		if !ok {
			continue
		}
		entries = append(entries, Entry{Alias: alias, Store: store, Identity: id})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identity.QualifiedName() < entries[j].Identity.QualifiedName()
	})
	return entries, nil
}

// identityFromStorePath reverses Identity.StorePath: the last three path
// elements are host/owner/name.
func identityFromStorePath(store string) (repo.Identity, bool) {
	name := filepath.Base(store)
	ownerDir := filepath.Dir(store)
	hostDir := filepath.Dir(ownerDir)
	owner := filepath.Base(ownerDir)
	host := filepath.Base(hostDir)
	if name == "" || owner == "" || host == "" || host == "." || host == string(filepath.Separator) {
		return repo.Identity{}, false
	}
	return repo.Identity{Host: host, Owner: owner, Name: name}, true
}

// ResolvePath returns the workspace directory for a repository name.
// It backs the "path" subcommand and the shell cd shim.
func ResolvePath(baseDir, name string) (string, error) {
	p := filepath.Join(baseDir, name)
	fi, err := os.Stat(p)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return p, nil
}

// ShellShims returns a shell function that cds into a repository by name.
func ShellShims(binName, fnName string) string {
	return fmt.Sprintf("function %s() { local p=$(%s path \"$1\") && cd \"$p\" }\n", fnName, binName)
}
