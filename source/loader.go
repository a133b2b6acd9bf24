// Package source ingests compilation entry points and resolves @import
// targets against the importing file and the include paths.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"sassgo/archive"
	"sassgo/diag"
)

// StdinName is used as file name for inline sources.
const StdinName = "stdin"

// Entry is compilation entry point: inline text or path to a file, never both.
type Entry struct {
	text   string
	path   string
	isPath bool
}

// Text creates entry from inline stylesheet.
func Text(src string) Entry {
	return Entry{text: src}
}

// Path creates entry from file name.
func Path(name string) Entry {
	return Entry{path: name, isPath: true}
}

func (e Entry) IsPath() bool {
	return e.isPath
}

func (e Entry) String() string {
	if e.isPath {
		return e.path
	}
	return StdinName
}

// File is loaded source.
type File struct {
	// Path identifies file in diagnostics and source maps. For regular files
	// it is absolute path, for archive entries it is "archive.zip:entry".
	Path string
	// Content is UTF-8 source text.
	Content []byte

	dir string      // base directory for relative imports
	arc *archive.FS // archive holding the file, nil for regular files
}

// Dir returns directory relative imports are resolved against.
func (f *File) Dir() string {
	return f.dir
}

// InArchive returns true when file was loaded from zip include path.
func (f *File) InArchive() bool {
	return f.arc != nil
}

type root struct {
	dir string
	arc *archive.FS
}

func (r root) display(name string) string {
	if r.arc != nil {
		return r.arc.Display(name)
	}
	return name
}

// Loader resolves sources for a single compilation. It is not safe for
// concurrent use.
type Loader struct {
	log   *zap.Logger
	cwd   string
	roots []root
	chain []*File
	files []*File
}

// NewLoader prepares loader for the ordered list of include paths. If list is
// empty current working directory is used.
func NewLoader(includePaths []string, log *zap.Logger) (*Loader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, diag.Wrap(diag.KindIO, diag.Location{}, err, "unable to get working directory")
	}

	l := &Loader{log: log.Named("loader"), cwd: cwd}

	if len(includePaths) == 0 {
		includePaths = []string{cwd}
	}
	for _, p := range includePaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		p = filepath.Clean(p)
		if archive.IsArchive(p) {
			a, err := archive.OpenFS(p)
			if err != nil {
				l.Close()
				return nil, diag.Wrap(diag.KindIO, diag.Location{File: p}, err, "unable to open include archive")
			}
			l.roots = append(l.roots, root{dir: ".", arc: a})
			continue
		}
		l.roots = append(l.roots, root{dir: p})
	}
	return l, nil
}

// Close releases archives opened for include paths.
func (l *Loader) Close() (err error) {
	for _, r := range l.roots {
		if r.arc != nil {
			err = multierr.Append(err, r.arc.Close())
		}
	}
	return err
}

// IncludePaths returns include roots in search order.
func (l *Loader) IncludePaths() []string {
	res := make([]string, 0, len(l.roots))
	for _, r := range l.roots {
		if r.arc != nil {
			res = append(res, r.arc.Name())
			continue
		}
		res = append(res, r.dir)
	}
	return res
}

// Files returns every file loaded so far in load order.
func (l *Loader) Files() []*File {
	return slices.Clone(l.files)
}

// Load reads entry point.
func (l *Loader) Load(e Entry) (*File, error) {
	if !e.isPath {
		f := &File{Path: StdinName, Content: decode([]byte(e.text)), dir: l.cwd}
		l.files = append(l.files, f)
		return f, nil
	}

	name := e.path
	if !filepath.IsAbs(name) {
		name = filepath.Join(l.cwd, name)
	}
	name = filepath.Clean(name)

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, diag.Wrap(diag.KindIO, diag.Location{File: name}, err, "unable to read source")
	}
	f := &File{Path: name, Content: decode(data), dir: filepath.Dir(name)}
	l.files = append(l.files, f)
	l.log.Debug("Source loaded", zap.String("file", name), zap.Int("bytes", len(data)))
	return f, nil
}

// Resolve finds import target. Importing file directory is searched first,
// then every include path in order. First existing file wins.
func (l *Loader) Resolve(target string, from *File, loc diag.Location) (*File, error) {
	var bases []root
	if from != nil {
		bases = append(bases, root{dir: from.dir, arc: from.arc})
	}
	bases = append(bases, l.roots...)

	if filepath.IsAbs(target) {
		bases = []root{{dir: filepath.Dir(target)}}
		target = filepath.Base(target)
	}

	var attempted []string
	seen := make(map[string]bool)

	for _, base := range bases {
		for _, cand := range Candidates(target) {
			var name string
			if base.arc != nil {
				name = path.Clean(path.Join(base.dir, cand))
				// escapes archive root
				if !fs.ValidPath(name) {
					continue
				}
			} else {
				name = filepath.Join(base.dir, filepath.FromSlash(cand))
			}
			shown := base.display(name)
			if seen[shown] {
				continue
			}
			seen[shown] = true
			attempted = append(attempted, shown)

			f, err := l.open(base, name)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, diag.Wrap(diag.KindIO, loc, err, "unable to read import %q", shown)
			}
			if f == nil {
				continue
			}
			l.log.Debug("Import resolved", zap.String("target", target), zap.String("file", f.Path))
			l.files = append(l.files, f)
			return f, nil
		}
	}

	return nil, &diag.Error{
		Kind:      diag.KindImportNotFound,
		Loc:       loc,
		Message:   fmt.Sprintf("file to import not found or unreadable: %q", target),
		Attempted: attempted,
	}
}

// open returns nil file without error when name exists but is not regular file.
func (l *Loader) open(base root, name string) (*File, error) {
	if base.arc != nil {
		fi, err := fs.Stat(base.arc, name)
		if err != nil {
			return nil, err
		}
		if !fi.Mode().IsRegular() {
			return nil, nil
		}
		data, err := fs.ReadFile(base.arc, name)
		if err != nil {
			return nil, err
		}
		return &File{Path: base.arc.Display(name), Content: decode(data), dir: path.Dir(name), arc: base.arc}, nil
	}

	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &File{Path: name, Content: decode(data), dir: filepath.Dir(name)}, nil
}

// Candidates lists file names tried for import target in order.
func Candidates(target string) []string {
	target = filepath.ToSlash(target)
	dir, base := path.Split(target)

	switch strings.ToLower(path.Ext(base)) {
	case ".scss", ".css":
		res := []string{target}
		if !strings.HasPrefix(base, "_") {
			res = append(res, dir+"_"+base)
		}
		return res
	}

	return []string{
		dir + base + ".scss",
		dir + "_" + base + ".scss",
		dir + base + ".css",
		dir + "_" + base + ".css",
		target + "/_index.scss",
		target + "/index.scss",
	}
}

// Enter pushes file to the active import chain.
func (l *Loader) Enter(f *File, loc diag.Location) error {
	for _, active := range l.chain {
		if active.Path == f.Path {
			chain := make([]string, 0, len(l.chain)+1)
			for _, c := range l.chain {
				chain = append(chain, c.Path)
			}
			chain = append(chain, f.Path)
			return &diag.Error{
				Kind:    diag.KindCircularImport,
				Loc:     loc,
				Message: fmt.Sprintf("%q imports itself through the chain", f.Path),
				Chain:   chain,
			}
		}
	}
	l.chain = append(l.chain, f)
	return nil
}

// Leave pops the most recently entered file.
func (l *Loader) Leave() {
	if len(l.chain) > 0 {
		l.chain = l.chain[:len(l.chain)-1]
	}
}

// Depth returns length of the active import chain.
func (l *Loader) Depth() int {
	return len(l.chain)
}

// decode converts UTF-16 (BOM marked) to UTF-8 and strips UTF-8 BOM.
func decode(data []byte) []byte {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return data
	}
	return out
}
