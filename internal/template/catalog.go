// Package template is the read-only catalog of workflow templates. Each mode
// has a directory holding a template.yaml, an optional README.md, and any
// starter files that are cloned into a project's config directory.
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/alexanderramin/aceflow/internal/domain"
)

// FileName is the template definition inside a mode directory.
const FileName = "template.yaml"

const readmeName = "README.md"

// ErrTemplateNotFound indicates the catalog has no directory for a mode.
var ErrTemplateNotFound = errors.New("template not found")

//go:embed all:builtin
var builtinFS embed.FS

// Catalog reads mode directories from an fs.FS.
type Catalog struct {
	fsys   fs.FS
	source string
}

// Entry is a loaded mode directory.
type Entry struct {
	Mode     domain.Mode
	Template *Template
	Raw      []byte
	Readme   string
	Files    []string
}

func NewCatalog(fsys fs.FS, source string) *Catalog {
	return &Catalog{fsys: fsys, source: source}
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("template: builtin catalog: %v", err))
	}
	return NewCatalog(sub, "builtin")
}

// Open returns a catalog rooted at dir, or the builtin catalog when dir is
// empty or does not exist.
func Open(dir string) *Catalog {
	if dir == "" {
		return Builtin()
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Builtin()
	}
	return NewCatalog(os.DirFS(dir), dir)
}

// Source names where the catalog reads from.
func (c *Catalog) Source() string { return c.source }

// Modes lists the modes that have a directory in the catalog, in catalog
// order.
func (c *Catalog) Modes() ([]domain.Mode, error) {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading template catalog: %w", err)
	}
	present := make(map[domain.Mode]bool)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if m, ok := modeFromDir(e.Name()); ok {
			present[m] = true
		}
	}
	var modes []domain.Mode
	for _, m := range domain.AllModes {
		if present[m] {
			modes = append(modes, m)
		}
	}
	return modes, nil
}

// Has reports whether the catalog carries a directory for mode.
func (c *Catalog) Has(mode domain.Mode) bool {
	info, err := fs.Stat(c.fsys, string(mode))
	return err == nil && info.IsDir()
}

// Load reads the mode directory. Entry.Template is nil when the directory
// has no template.yaml; parse errors are returned.
func (c *Catalog) Load(mode domain.Mode) (*Entry, error) {
	if !c.Has(mode) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, mode)
	}
	entry := &Entry{Mode: mode}

	raw, err := fs.ReadFile(c.fsys, path.Join(string(mode), FileName))
	switch {
	case err == nil:
		entry.Raw = raw
		tmpl, perr := Parse(raw)
		if perr != nil {
			return nil, fmt.Errorf("template %s: %w", mode, perr)
		}
		entry.Template = tmpl
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading template %s: %w", mode, err)
	}

	if readme, err := fs.ReadFile(c.fsys, path.Join(string(mode), readmeName)); err == nil {
		entry.Readme = string(readme)
	}

	err = fs.WalkDir(c.fsys, string(mode), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel := p[len(mode)+1:]
			entry.Files = append(entry.Files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing template %s: %w", mode, err)
	}
	sort.Strings(entry.Files)
	return entry, nil
}

// CopyTo clones the mode directory into dst, creating dst when needed.
func (c *Catalog) CopyTo(mode domain.Mode, dst string) error {
	if !c.Has(mode) {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, mode)
	}
	root := string(mode)
	return fs.WalkDir(c.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := "."
		if p != root {
			rel = p[len(root)+1:]
		}
		target := filepath.Join(dst, filepath.FromSlash(rel))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(c.fsys, p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
