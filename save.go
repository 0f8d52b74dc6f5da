package beet

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quay/zlog"

	"github.com/vdvman1/beet/pkg/zipcomp"
)

// packWriter is the destination surface the emitter writes through.
type packWriter interface {
	// MkdirAll ensures the directory exists; archive destinations treat
	// it as a no-op.
	MkdirAll(dir string) error
	// Create opens the file at the slash-separated path for writing.
	Create(path string) (io.WriteCloser, error)
}

type dirWriter struct {
	root string
}

func (w *dirWriter) MkdirAll(dir string) error {
	return os.MkdirAll(filepath.Join(w.root, filepath.FromSlash(dir)), 0o755)
}

func (w *dirWriter) Create(path string) (io.WriteCloser, error) {
	return os.Create(filepath.Join(w.root, filepath.FromSlash(path)))
}

type zipWriter struct {
	w      *zip.Writer
	method uint16
}

func (w *zipWriter) MkdirAll(string) error { return nil }

func (w *zipWriter) Create(path string) (io.WriteCloser, error) {
	fw, err := w.w.CreateHeader(&zip.FileHeader{Name: path, Method: w.method})
	if err != nil {
		return nil, err
	}
	return nopWriteCloser{fw}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// dumpFiles writes a flat path→file listing, creating each parent directory
// once before its files.
func dumpFiles(w packWriter, files []mergeEntry) error {
	var dirOrder []string
	dirs := make(map[string][]mergeEntry)
	for _, e := range files {
		dir := ""
		if i := strings.LastIndexByte(e.key, '/'); i >= 0 {
			dir = e.key[:i]
		}
		if _, ok := dirs[dir]; !ok {
			dirOrder = append(dirOrder, dir)
		}
		dirs[dir] = append(dirs[dir], e)
	}
	for _, dir := range dirOrder {
		if dir != "" {
			if err := w.MkdirAll(dir); err != nil {
				return &Error{Kind: ErrIO, Op: "pack: dump", Message: dir, Inner: err}
			}
		}
		for _, e := range dirs[dir] {
			if err := e.file.dump(w, e.key); err != nil {
				return err
			}
		}
	}
	return nil
}

// dump writes the whole pack through the writer.
func (p *Pack) dump(w packWriter) error {
	var files []mergeEntry
	for path, f := range p.ListFiles() {
		files = append(files, mergeEntry{key: path, file: f})
	}
	return dumpFiles(w, files)
}

// SaveOptions override the pack's cached destination settings for a single
// save. The zero value changes nothing.
type SaveOptions struct {
	// Directory is the parent directory to save into.
	Directory string
	// Path is the full destination path; a ".zip" suffix implies
	// archive output. It updates the pack's cached name and path.
	Path string
	// Zipped selects archive or directory output.
	Zipped *bool
	// Compression and CompressionLevel configure archive output.
	Compression      string
	CompressionLevel *int
	// Overwrite allows clobbering an existing destination.
	Overwrite bool
}

// Save writes the pack to a directory tree or a zip archive and returns the
// output path.
//
// The destination is resolved from the options and the pack's cached
// settings; a pack with no name picks the first unused default. An existing
// destination is refused with [*PackOverwrite] unless overwriting is
// requested, in which case it is removed first.
func (p *Pack) Save(ctx context.Context, opts *SaveOptions) (string, error) {
	if opts == nil {
		opts = &SaveOptions{}
	}
	if opts.Path != "" {
		abs, err := filepath.Abs(opts.Path)
		if err != nil {
			return "", &Error{Kind: ErrIO, Op: "pack: save", Message: opts.Path, Inner: err}
		}
		base := filepath.Base(abs)
		p.Zipped = strings.HasSuffix(base, ".zip")
		p.Name = strings.TrimSuffix(base, ".zip")
		p.Path = filepath.Dir(abs)
	}
	if opts.Zipped != nil {
		p.Zipped = *opts.Zipped
	}
	if opts.Compression != "" {
		p.Compression = opts.Compression
	}
	if opts.CompressionLevel != nil {
		p.CompressionLevel = *opts.CompressionLevel
	}

	suffix := ""
	if p.Zipped {
		suffix = ".zip"
	}

	directory := opts.Directory
	if directory == "" {
		directory = p.Path
	}
	if directory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", &Error{Kind: ErrIO, Op: "pack: save", Inner: err}
		}
		directory = wd
	}
	abs, err := filepath.Abs(directory)
	if err != nil {
		return "", &Error{Kind: ErrIO, Op: "pack: save", Message: directory, Inner: err}
	}
	p.Path = abs

	if p.Name == "" {
		for i := 0; ; i++ {
			name := p.Type.DefaultName
			if i > 0 {
				name = fmt.Sprintf("%s%d", name, i)
			}
			if _, err := os.Stat(filepath.Join(p.Path, name+suffix)); err != nil {
				p.Name = name
				break
			}
		}
	}

	output := filepath.Join(p.Path, p.Name+suffix)
	ctx = zlog.ContextWithValues(ctx, "component", "beet/Pack.Save", "output", output)
	zlog.Debug(ctx).Msg("start")
	defer zlog.Debug(ctx).Msg("done")

	if fi, err := os.Stat(output); err == nil {
		if !opts.Overwrite {
			return "", &PackOverwrite{Path: output}
		}
		if fi.IsDir() {
			err = os.RemoveAll(output)
		} else {
			err = os.Remove(output)
		}
		if err != nil {
			return "", &Error{Kind: ErrIO, Op: "pack: save", Message: output, Inner: err}
		}
	}

	if p.Zipped {
		if err := os.MkdirAll(p.Path, 0o755); err != nil {
			return "", &Error{Kind: ErrIO, Op: "pack: save", Message: p.Path, Inner: err}
		}
		f, err := os.Create(output)
		if err != nil {
			return "", &Error{Kind: ErrIO, Op: "pack: save", Message: output, Inner: err}
		}
		zw := zip.NewWriter(f)
		method, err := zipcomp.Configure(zw, p.Compression, p.CompressionLevel)
		if err != nil {
			f.Close()
			return "", &Error{Kind: ErrInvalid, Op: "pack: save", Inner: err}
		}
		err = p.dump(&zipWriter{w: zw, method: method})
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return "", err
		}
		return output, nil
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return "", &Error{Kind: ErrIO, Op: "pack: save", Message: output, Inner: err}
	}
	if err := p.dump(&dirWriter{root: output}); err != nil {
		return "", err
	}
	return output, nil
}
