// Package repo maps remote repository URLs onto the workspace layout.
package repo

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrParse reports a remote URL that cannot be reduced to host/owner/name.
var ErrParse = errors.New("unrecognized repository URL")

// Identity is the normalized form of a remote repository URL.
// Two URLs pointing at the same remote parse to the same Identity
// regardless of scheme, trailing ".git" or host case.
type Identity struct {
	Host  string
	Owner string
	Name  string
}

var urlPatterns = []*regexp.Regexp{
	// https://host/owner/name[.git][/]
	regexp.MustCompile(`^https?://(?P<host>[^/@]+)/(?P<owner>[^/]+)/(?P<name>[^/]+?)(?:\.git)?/?$`),
	// git@host:owner/name[.git]
	regexp.MustCompile(`^git@(?P<host>[^:/]+):(?P<owner>[^/]+)/(?P<name>[^/]+?)(?:\.git)?$`),
	// ssh://git@host[:port]/owner/name[.git]
	regexp.MustCompile(`^ssh://git@(?P<host>[^:/]+)(?::\d+)?/(?P<owner>[^/]+)/(?P<name>[^/]+?)(?:\.git)?/?$`),
}

// Resolve parses an HTTPS or SSH remote URL into an Identity.
func Resolve(url string) (Identity, error) {
	url = strings.TrimSpace(url)
	for _, pat := range urlPatterns {
		m := pat.FindStringSubmatch(url)
		if m == nil {
			continue
		}
		id := Identity{}
		for i, name := range pat.SubexpNames() {
			switch name {
			case "host":
				id.Host = strings.ToLower(m[i])
			case "owner":
				id.Owner = m[i]
			case "name":
				id.Name = m[i]
			}
		}
		if id.Host == "" || id.Owner == "" || id.Name == "" {
			continue
		}
		return id, nil
	}
	return Identity{}, fmt.Errorf("%w: %q", ErrParse, url)
}

// FullName returns "owner/name".
func (id Identity) FullName() string {
	return id.Owner + "/" + id.Name
}

// QualifiedName returns "host/owner/name".
func (id Identity) QualifiedName() string {
	return id.Host + "/" + id.Owner + "/" + id.Name
}

// CloneURL returns the HTTPS clone URL for the identity.
func (id Identity) CloneURL() string {
	return "https://" + id.Host + "/" + id.Owner + "/" + id.Name + ".git"
}

// StorePath returns the canonical on-disk location of the clone:
// <baseDir>/repo/<host>/<owner>/<name>.
func (id Identity) StorePath(baseDir string) string {
	return filepath.Join(baseDir, "repo", id.Host, id.Owner, id.Name)
}

// AliasPath returns the workspace symlink location: <baseDir>/<name>.
func (id Identity) AliasPath(baseDir string) string {
	return filepath.Join(baseDir, id.Name)
}
