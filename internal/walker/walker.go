// Package walker enumerates the files and directories of a workspace tree.
package walker

import (
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// DefaultIgnoreFiles are the ignore files a Walker from New reads.
var DefaultIgnoreFiles = []string{".gitignore", ".nxignore"}

// skipped directories are never entered.
var skipped = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// WalkFunc receives each entry as a slash-separated path relative to the walk
// root. A non-nil error stops the walk and is returned by Walk.
type WalkFunc func(rel string, isDir bool) error

// Walker walks directory trees on Fs.
type Walker struct {
	Fs afero.Fs

	// IgnoreFiles are read in every directory; their rules apply beneath
	// it. Empty means every entry outside the skipped directories is
	// reported.
	IgnoreFiles []string
}

// New returns a Walker over fs honouring DefaultIgnoreFiles. A nil fs means
// the OS filesystem.
func New(fs afero.Fs) *Walker {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Walker{Fs: fs, IgnoreFiles: DefaultIgnoreFiles}
}

type rules struct {
	base    string // relative dir the rules were read from, "" for the root
	matcher *ignore.GitIgnore
}

// Walk calls fn for every file and directory below root, in lexical order,
// parents before children. The root itself is not reported.
//
// Directories that are missing or cannot be read contribute nothing.
func (w *Walker) Walk(root string, fn WalkFunc) error {
	return w.walk(root, "", nil, fn)
}

func (w *Walker) walk(root, rel string, inherited []rules, fn WalkFunc) error {
	dir := root
	if rel != "" {
		dir = filepath.Join(root, filepath.FromSlash(rel))
	}
	entries, err := afero.ReadDir(w.Fs, dir)
	if err != nil {
		return nil
	}

	active := inherited
	if r, ok := w.readRules(dir, rel); ok {
		active = append(active[:len(active):len(active)], r)
	}

	for _, entry := range entries {
		name := entry.Name()
		isDir := entry.IsDir()
		if isDir && skipped[name] {
			continue
		}
		child := name
		if rel != "" {
			child = rel + "/" + name
		}
		if ignored(active, child, isDir) {
			continue
		}
		if err := fn(child, isDir); err != nil {
			return err
		}
		if isDir {
			if err := w.walk(root, child, active, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Walker) readRules(dir, rel string) (rules, bool) {
	var lines []string
	for _, name := range w.IgnoreFiles {
		data, err := afero.ReadFile(w.Fs, filepath.Join(dir, name))
		if err != nil {
			continue
		}
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	if len(lines) == 0 {
		return rules{}, false
	}
	matcher, err := ignore.CompileIgnoreLines(lines...)
	if err != nil {
		return rules{}, false
	}
	return rules{base: rel, matcher: matcher}, true
}

func ignored(active []rules, rel string, isDir bool) bool {
	for _, r := range active {
		p := rel
		if r.base != "" {
			p = strings.TrimPrefix(rel, r.base+"/")
		}
		if r.matcher.MatchesPath(p) {
			return true
		}
		if isDir && r.matcher.MatchesPath(p+"/") {
			return true
		}
	}
	return false
}

// Paths returns every path Walk would report.
func (w *Walker) Paths(root string) []string {
	var out []string
	_ = w.Walk(root, func(rel string, _ bool) error {
		out = append(out, rel)
		return nil
	})
	return out
}

// Files returns the file paths Walk would report, skipping directories.
func (w *Walker) Files(root string) []string {
	var out []string
	_ = w.Walk(root, func(rel string, isDir bool) error {
		if !isDir {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// Join joins a relative walk path onto a slash-separated prefix.
func Join(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}
