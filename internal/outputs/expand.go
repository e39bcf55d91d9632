// Package outputs resolves declared task outputs to concrete paths.
package outputs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"

	"taskplan/internal/glob"
	"taskplan/internal/walker"
)

// Expander resolves output entries against a directory tree.
//
// Entries are slash-separated paths or glob patterns relative to the
// directory passed to each call. Results use forward slashes on every
// platform. An Expander keeps no state between calls other than its compiled
// glob cache and is safe for concurrent use.
type Expander struct {
	Fs     afero.Fs
	Walker *walker.Walker
	Globs  *glob.Cache
	Logger log.Logger
}

// NewExpander returns an Expander over fs. A nil fs means the OS filesystem.
//
// Its walker reads no ignore files: build outputs are usually gitignored and
// must still be found.
func NewExpander(fs afero.Fs, logger log.Logger) *Expander {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Expander{
		Fs:     fs,
		Walker: &walker.Walker{Fs: fs},
		Globs:  glob.NewCache(glob.DefaultCacheSize),
		Logger: logger,
	}
}

var osExpander = NewExpander(afero.NewOsFs(), nil)

// ExpandOutputs resolves entries under dir on the OS filesystem.
// See (*Expander).ExpandOutputs.
func ExpandOutputs(dir string, entries []string) ([]string, error) {
	return osExpander.ExpandOutputs(dir, entries)
}

// GetFilesForOutputs lists the files behind entries under dir on the OS
// filesystem. See (*Expander).GetFilesForOutputs.
func GetFilesForOutputs(dir string, entries []string) ([]string, error) {
	return osExpander.GetFilesForOutputs(dir, entries)
}

// ExpandOutputs returns the entries that exist under dir verbatim, preceded
// by every walked path matching the remaining entries as globs.
//
// The two groups are not deduplicated against each other.
func (e *Expander) ExpandOutputs(dir string, entries []string) ([]string, error) {
	var existing, missing []string
	for _, entry := range entries {
		if _, err := e.stat(dir, entry); err == nil {
			existing = append(existing, entry)
		} else {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return existing, nil
	}

	matched, err := e.matchGlobs(dir, missing)
	if err != nil {
		return nil, err
	}
	level.Debug(e.Logger).Log("msg", "expanded outputs", "dir", dir, "entries", len(entries), "literal", len(existing), "matched", len(matched))
	return append(matched, existing...), nil
}

// GetFilesForOutputs returns the sorted list of paths behind entries:
//   - an entry that does not exist is a glob over the walked tree of dir
//   - an existing directory contributes each file beneath it, joined to the
//     entry
//   - an existing file contributes itself
//
// Duplicates are kept.
func (e *Expander) GetFilesForOutputs(dir string, entries []string) ([]string, error) {
	var globs, dirs, files []string
	for _, entry := range entries {
		info, err := e.stat(dir, entry)
		switch {
		case err != nil:
			globs = append(globs, entry)
		case info.IsDir():
			dirs = append(dirs, entry)
		default:
			files = append(files, normalize(entry))
		}
	}

	if len(globs) > 0 {
		matched, err := e.matchGlobs(dir, globs)
		if err != nil {
			return nil, err
		}
		files = append(files, matched...)
	}

	for _, d := range dirs {
		prefix := normalize(d)
		err := e.Walker.Walk(filepath.Join(dir, filepath.FromSlash(d)), func(rel string, isDir bool) error {
			if !isDir {
				files = append(files, walker.Join(prefix, rel))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	level.Debug(e.Logger).Log("msg", "listed output files", "dir", dir, "entries", len(entries), "files", len(files))
	return files, nil
}

func (e *Expander) matchGlobs(dir string, patterns []string) ([]string, error) {
	set, err := e.Globs.Build(patterns)
	if err != nil {
		return nil, fmt.Errorf("compiling output globs: %w", err)
	}
	var matched []string
	err = e.Walker.Walk(dir, func(rel string, _ bool) error {
		if set.Match(rel) {
			matched = append(matched, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

// stat probes entry under dir. Any failure, not only absence, makes the
// entry a glob candidate.
func (e *Expander) stat(dir, entry string) (os.FileInfo, error) {
	if entry == "" {
		return nil, os.ErrNotExist
	}
	return e.Fs.Stat(filepath.Join(dir, filepath.FromSlash(entry)))
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimSuffix(p, "/")
}
