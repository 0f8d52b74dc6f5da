// Package zipcomp maps pack compression kinds onto zip methods and wires
// the non-stdlib codecs (bzip2, lzma) into [archive/zip] readers and
// writers.
//
// The lzma method stores entries with the conventional zip framing: a
// two-byte encoder version, a little-endian property length, the raw LZMA
// properties, then the raw stream terminated by an end-of-stream marker.
package zipcomp

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/ulikunitz/xz/lzma"
)

// Compression kinds.
const (
	None    = "none"
	Deflate = "deflate"
	Bzip2   = "bzip2"
	LZMA    = "lzma"
)

// Zip method ids for the non-stdlib codecs.
const (
	MethodBzip2 uint16 = 12
	MethodLZMA  uint16 = 14
)

// ErrUnknownKind is reported for compression kinds outside the table.
var ErrUnknownKind = errors.New("zipcomp: unknown compression kind")

// Method returns the zip method id for a compression kind. The empty kind
// means deflate.
func Method(kind string) (uint16, error) {
	switch kind {
	case None:
		return zip.Store, nil
	case Deflate, "":
		return zip.Deflate, nil
	case Bzip2:
		return MethodBzip2, nil
	case LZMA:
		return MethodLZMA, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Configure registers the compressor for the given kind on the writer and
// returns the method id to stamp on file headers. A negative level selects
// each codec's default.
func Configure(w *zip.Writer, kind string, level int) (uint16, error) {
	method, err := Method(kind)
	if err != nil {
		return 0, err
	}
	switch method {
	case zip.Store:
	case zip.Deflate:
		w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			if level < 0 {
				return flate.NewWriter(out, flate.DefaultCompression)
			}
			return flate.NewWriter(out, level)
		})
	case MethodBzip2:
		w.RegisterCompressor(MethodBzip2, func(out io.Writer) (io.WriteCloser, error) {
			cfg := &bzip2.WriterConfig{}
			if level > 0 {
				cfg.Level = level
			}
			return bzip2.NewWriter(out, cfg)
		})
	case MethodLZMA:
		w.RegisterCompressor(MethodLZMA, func(out io.Writer) (io.WriteCloser, error) {
			return newLZMAWriter(out)
		})
	}
	return method, nil
}

// RegisterDecompressors installs the bzip2 and lzma decompressors on a zip
// reader. Store and deflate are handled by [archive/zip] itself.
func RegisterDecompressors(r *zip.Reader) {
	r.RegisterDecompressor(MethodBzip2, func(in io.Reader) io.ReadCloser {
		zr, err := bzip2.NewReader(in, nil)
		if err != nil {
			return errReader{err}
		}
		return zr
	})
	r.RegisterDecompressor(MethodLZMA, func(in io.Reader) io.ReadCloser {
		return &lzmaReader{in: in}
	})
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
func (e errReader) Close() error             { return nil }

// lzma entry framing: version (2 bytes), property length (uint16 LE), then
// the properties themselves. The classic .lzma header produced and consumed
// by the codec is properties followed by an 8-byte uncompressed size, which
// is "unknown" here since entries stream with an end-of-stream marker.
const (
	lzmaPropLen       = 5
	lzmaClassicHdrLen = lzmaPropLen + 8
)

var lzmaVersion = [2]byte{9, 20}

// lzmaWriter rewrites the classic stream header emitted by the codec into
// zip framing on the fly.
type lzmaWriter struct {
	out     io.Writer
	lw      io.WriteCloser
	pending []byte // classic header bytes not yet accounted for
	started bool
}

func newLZMAWriter(out io.Writer) (io.WriteCloser, error) {
	w := &lzmaWriter{out: out}
	lw, err := lzma.NewWriter(headerFilterWriter{w})
	if err != nil {
		return nil, err
	}
	w.lw = lw
	return w, nil
}

func (w *lzmaWriter) Write(p []byte) (int, error) { return w.lw.Write(p) }
func (w *lzmaWriter) Close() error                { return w.lw.Close() }

type headerFilterWriter struct{ w *lzmaWriter }

func (h headerFilterWriter) Write(p []byte) (int, error) {
	w := h.w
	n := len(p)
	if !w.started {
		w.pending = append(w.pending, p...)
		if len(w.pending) < lzmaClassicHdrLen {
			return n, nil
		}
		var hdr bytes.Buffer
		hdr.Write(lzmaVersion[:])
		var plen [2]byte
		binary.LittleEndian.PutUint16(plen[:], lzmaPropLen)
		hdr.Write(plen[:])
		hdr.Write(w.pending[:lzmaPropLen])
		if _, err := w.out.Write(hdr.Bytes()); err != nil {
			return 0, err
		}
		rest := w.pending[lzmaClassicHdrLen:]
		w.pending = nil
		w.started = true
		if len(rest) > 0 {
			if _, err := w.out.Write(rest); err != nil {
				return 0, err
			}
		}
		return n, nil
	}
	return w.out.Write(p)
}

// lzmaReader defers codec construction to the first read so that the
// decompressor hook, which cannot fail, still surfaces framing errors.
type lzmaReader struct {
	in  io.Reader
	r   io.Reader
	err error
}

func (r *lzmaReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.r == nil {
		if err := r.init(); err != nil {
			r.err = err
			return 0, err
		}
	}
	return r.r.Read(p)
}

func (r *lzmaReader) init() error {
	var hdr [4]byte
	if _, err := io.ReadFull(r.in, hdr[:]); err != nil {
		return fmt.Errorf("zipcomp: short lzma header: %w", err)
	}
	plen := binary.LittleEndian.Uint16(hdr[2:4])
	if plen != lzmaPropLen {
		return fmt.Errorf("zipcomp: unexpected lzma property length %d", plen)
	}
	props := make([]byte, lzmaPropLen, lzmaClassicHdrLen)
	if _, err := io.ReadFull(r.in, props); err != nil {
		return fmt.Errorf("zipcomp: short lzma properties: %w", err)
	}
	// Unknown uncompressed size; the stream carries an EOS marker.
	for i := 0; i < 8; i++ {
		props = append(props, 0xFF)
	}
	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(props), r.in))
	if err != nil {
		return fmt.Errorf("zipcomp: %w", err)
	}
	r.r = lr
	return nil
}

func (r *lzmaReader) Close() error { return nil }
