package beet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Source records where a file's bytes came from.
//
// Start and Stop delimit a byte range inside the origin file; both are -1
// when the whole file is meant.
type Source struct {
	Origin Origin
	Path   string
	Start  int64
	Stop   int64
}

// File is a single pack file: either parsed content, serialized bytes, a
// reference back to the origin it was scanned from, or any combination.
//
// At least one of those is populated at all times, except for files of a
// kind with a declared default, which materialize the default on first read.
type File struct {
	kind    *Kind
	content any    // parsed; authoritative when non-nil
	raw     []byte // serialized; dropped once content is materialized
	src     *Source
	aux     any // kind-specific attachment consumed by bind hooks

	// Bind state. Valid while the file is attached to the pack; removal
	// does not reset it.
	pack *Pack
	path string

	tmp string // spooled copy backing EnsureSourcePath
}

// Kind returns the file's type tag.
func (f *File) Kind() *Kind { return f.kind }

// BoundTo returns the pack and namespaced path the file was last installed
// under. The pack is nil for files never attached to one.
func (f *File) BoundTo() (*Pack, string) { return f.pack, f.path }

// Aux returns the kind-specific attachment set with SetAux.
func (f *File) Aux() any { return f.aux }

// SetAux attaches kind-specific data consumed by the kind's bind hook, e.g.
// the mcmeta object accompanying a texture.
func (f *File) SetAux(v any) { f.aux = v }

// Content returns the parsed content, deserializing or reading from the
// source as needed. A file with neither content nor source returns the
// kind's default, materialized once.
func (f *File) Content() (any, error) {
	if f.content != nil {
		return f.content, nil
	}
	if f.raw == nil && f.src != nil {
		b, err := readSource(f.src)
		if err != nil {
			return nil, err
		}
		f.raw = b
	}
	if f.raw != nil {
		v, err := f.kind.Codec.Decode(f.raw)
		if err != nil {
			return nil, err
		}
		// The parsed value is authoritative from here on; callers may
		// mutate it freely.
		f.content, f.raw = v, nil
		return v, nil
	}
	if f.kind.Default != nil {
		f.content = f.kind.Default()
		return f.content, nil
	}
	return nil, &Error{Kind: ErrInvalid, Op: "file: content", Message: fmt.Sprintf("%s file has no content, no source and no default", f.kind)}
}

// JSON returns the content as a JSON object. It reports [ErrFormat] for
// kinds whose codec does not produce objects.
func (f *File) JSON() (map[string]any, error) {
	v, err := f.Content()
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Kind: ErrFormat, Op: "file: json", Message: fmt.Sprintf("%s content is %T, not an object", f.kind, v)}
	}
	return m, nil
}

// SetContent replaces the parsed content, discarding any serialized bytes
// and source reference.
func (f *File) SetContent(v any) {
	f.content = v
	f.raw = nil
	f.src = nil
}

// Serialized returns the file's bytes, encoding the content as needed.
func (f *File) Serialized() ([]byte, error) {
	if f.content == nil && f.raw == nil && f.src != nil {
		b, err := readSource(f.src)
		if err != nil {
			return nil, err
		}
		f.raw = b
	}
	if f.content == nil && f.raw == nil && f.kind.Default != nil {
		f.content = f.kind.Default()
	}
	if f.content != nil {
		return f.kind.Codec.Encode(f.content)
	}
	if f.raw != nil {
		return f.raw, nil
	}
	return nil, &Error{Kind: ErrInvalid, Op: "file: serialize", Message: fmt.Sprintf("%s file has no content, no source and no default", f.kind)}
}

// Source returns the origin reference the file was loaded from, if any.
func (f *File) Source() *Source { return f.src }

// EnsureSourcePath guarantees the file's bytes are resolvable as a
// filesystem path. The origin's own path is used only while the file holds
// a whole-file source reference and its content has not been materialized;
// otherwise, including for every file returned by a scan, the serialized
// bytes are spooled to a temporary file. The spooled copy is reused on
// repeated calls.
func (f *File) EnsureSourcePath() (string, error) {
	if f.src != nil && f.content == nil {
		if p, ok := sourcePathname(f.src); ok {
			return p, nil
		}
	}
	if f.tmp != "" {
		return f.tmp, nil
	}
	b, err := f.Serialized()
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp("", "beet-file-")
	if err != nil {
		return "", &Error{Kind: ErrIO, Op: "file: spool", Inner: err}
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &Error{Kind: ErrIO, Op: "file: spool", Inner: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", &Error{Kind: ErrIO, Op: "file: spool", Inner: err}
	}
	f.tmp = tmp.Name()
	return f.tmp, nil
}

// Equal reports structural equality of two files, ignoring source
// references and bind state. Files whose content cannot be materialized
// compare by identity.
func (f *File) Equal(other *File) bool {
	if f == other {
		return true
	}
	if f == nil || other == nil || f.kind != other.kind {
		return false
	}
	a, aerr := f.Content()
	b, berr := other.Content()
	if aerr != nil || berr != nil {
		return false
	}
	switch a := a.(type) {
	case []byte:
		b, ok := b.([]byte)
		return ok && bytes.Equal(a, b)
	case string:
		return a == b
	default:
		return JSONEqual(a, b)
	}
}

// bind attaches the file to a pack under the given display path and runs the
// kind's bind hook. The caller handles [ErrDrop].
func (f *File) bind(p *Pack, path string) error {
	f.pack, f.path = p, path
	if f.kind.OnBind != nil {
		return f.kind.OnBind(p, f, path)
	}
	return nil
}

// dump writes the file's bytes into the destination.
func (f *File) dump(w packWriter, path string) error {
	b, err := f.Serialized()
	if err != nil {
		return err
	}
	wc, err := w.Create(path)
	if err != nil {
		return &Error{Kind: ErrIO, Op: "file: dump", Message: path, Inner: err}
	}
	if _, err := wc.Write(b); err != nil {
		wc.Close()
		return &Error{Kind: ErrIO, Op: "file: dump", Message: path, Inner: err}
	}
	if err := wc.Close(); err != nil {
		return &Error{Kind: ErrIO, Op: "file: dump", Message: path, Inner: err}
	}
	return nil
}

// loadFile reads and decodes the file at path inside the origin. Unreadable
// storage is [ErrIO]; malformed content is [ErrFormat]. The returned file
// retains a source reference for provenance.
func loadFile(k *Kind, origin Origin, path string) (*File, error) {
	src := &Source{Origin: origin, Path: path, Start: -1, Stop: -1}
	b, err := readSource(src)
	if err != nil {
		return nil, err
	}
	v, err := k.Codec.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", k, path, err)
	}
	return &File{kind: k, content: v, src: src}, nil
}

// tryLoadFile is loadFile, except a missing file reports (nil, nil).
// Malformed content still surfaces.
func tryLoadFile(k *Kind, origin Origin, path string) (*File, error) {
	f, err := loadFile(k, origin, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return f, err
}

func readSource(src *Source) ([]byte, error) {
	rc, err := src.Origin.Open(src.Path)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Op: "file: read", Message: src.Path, Inner: err}
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Op: "file: read", Message: src.Path, Inner: err}
	}
	if src.Start >= 0 || src.Stop >= 0 {
		start, stop := src.Start, src.Stop
		if start < 0 {
			start = 0
		}
		if stop < 0 || stop > int64(len(b)) {
			stop = int64(len(b))
		}
		b = b[start:stop]
	}
	return b, nil
}

func sourcePathname(src *Source) (string, bool) {
	type pather interface {
		Pathname(string) (string, bool)
	}
	if src.Start >= 0 || src.Stop >= 0 {
		return "", false
	}
	if p, ok := src.Origin.(pather); ok {
		return p.Pathname(src.Path)
	}
	return "", false
}
