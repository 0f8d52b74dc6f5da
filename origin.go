package beet

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vdvman1/beet/pkg/zipcomp"
)

// Origin is a storage source the scanner reads packs from: a directory
// tree, a zip archive, or an abstract path mapping.
//
// Listed names are slash-separated and relative to the origin root. An
// origin backed by a single file lists the one empty name.
type Origin interface {
	// List returns the names of all files reachable from the origin.
	// Order is unspecified; the scanner sorts.
	List() ([]string, error)
	// Open opens the named file for reading. Missing files report an
	// error satisfying errors.Is(err, fs.ErrNotExist).
	Open(name string) (io.ReadCloser, error)
}

// DirOrigin returns an origin rooted at a directory on the filesystem.
//
// A root that is a regular file lists the single empty name, and a root
// that does not exist lists nothing; both forms come up when mounting
// sub-trees of a larger pack.
func DirOrigin(root string) Origin {
	return dirOrigin(root)
}

type dirOrigin string

func (d dirOrigin) List() ([]string, error) {
	fi, err := os.Stat(string(d))
	switch {
	case err == nil && !fi.IsDir():
		return []string{""}, nil
	case err != nil:
		return nil, nil
	}
	var names []string
	err = fs.WalkDir(os.DirFS(string(d)), ".", func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.Type().IsRegular() {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Kind: ErrIO, Op: "origin: list", Message: string(d), Inner: err}
	}
	return names, nil
}

func (d dirOrigin) Open(name string) (io.ReadCloser, error) {
	return os.Open(d.join(name))
}

// Pathname reports the filesystem path backing the named file.
func (d dirOrigin) Pathname(name string) (string, bool) {
	return d.join(name), true
}

func (d dirOrigin) join(name string) string {
	if name == "" {
		return string(d)
	}
	return filepath.Join(string(d), filepath.FromSlash(name))
}

// ZipOrigin is an origin backed by a zip archive. The bzip2 and lzma
// decompressors from [zipcomp] are installed on the reader.
type ZipOrigin struct {
	r      *zip.Reader
	closer io.Closer
	name   string
}

// NewZipOrigin wraps an open zip reader.
func NewZipOrigin(r *zip.Reader) *ZipOrigin {
	zipcomp.RegisterDecompressors(r)
	return &ZipOrigin{r: r}
}

// OpenZip opens the archive at path.
func OpenZip(p string) (*ZipOrigin, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Op: "origin: open zip", Message: p, Inner: err}
	}
	zipcomp.RegisterDecompressors(&rc.Reader)
	return &ZipOrigin{r: &rc.Reader, closer: rc, name: filepath.Base(p)}, nil
}

// Name returns the archive's base filename, when known.
func (z *ZipOrigin) Name() string { return z.name }

// Close releases the archive handle, if this origin owns one.
func (z *ZipOrigin) Close() error {
	if z.closer == nil {
		return nil
	}
	return z.closer.Close()
}

// List implements Origin.
func (z *ZipOrigin) List() ([]string, error) {
	var names []string
	for _, f := range z.r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, path.Clean(f.Name))
	}
	return names, nil
}

// Open implements Origin.
func (z *ZipOrigin) Open(name string) (io.ReadCloser, error) {
	if name == "" {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	f, err := z.r.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// UnveilMapping is an origin mapping logical pack paths to filesystem
// paths. Mappings are distinct by identity: two mappings over equal tables
// are still tracked separately by [Pack.UnveilMapping].
type UnveilMapping struct {
	files  map[string]string
	prefix string
}

// NewUnveilMapping builds a mapping from logical path to filesystem path.
func NewUnveilMapping(files map[string]string) *UnveilMapping {
	return &UnveilMapping{files: files}
}

// WithPrefix returns a view of the mapping re-rooted at prefix. The view
// shares the underlying table.
func (m *UnveilMapping) WithPrefix(prefix string) *UnveilMapping {
	return &UnveilMapping{files: m.files, prefix: prefix}
}

// List implements Origin.
func (m *UnveilMapping) List() ([]string, error) {
	var names []string
	if m.prefix == "" {
		for key := range m.files {
			names = append(names, key)
		}
		return names, nil
	}
	dir := m.prefix + "/"
	for key := range m.files {
		switch {
		case key == m.prefix:
			names = append(names, "")
		case strings.HasPrefix(key, dir):
			names = append(names, key[len(dir):])
		}
	}
	return names, nil
}

// Open implements Origin.
func (m *UnveilMapping) Open(name string) (io.ReadCloser, error) {
	p, ok := m.resolve(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return os.Open(p)
}

// Pathname reports the filesystem path backing the named file.
func (m *UnveilMapping) Pathname(name string) (string, bool) {
	return m.resolve(name)
}

func (m *UnveilMapping) resolve(name string) (string, bool) {
	key := name
	if m.prefix != "" {
		sep := ""
		if name != "" {
			sep = "/"
		}
		key = m.prefix + sep + name
	}
	p, ok := m.files[key]
	return p, ok
}
