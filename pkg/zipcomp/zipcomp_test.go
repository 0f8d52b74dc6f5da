package zipcomp_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/vdvman1/beet/pkg/zipcomp"
)

func TestMethod(t *testing.T) {
	tt := []struct {
		Kind string
		Want uint16
	}{
		{Kind: zipcomp.None, Want: zip.Store},
		{Kind: zipcomp.Deflate, Want: zip.Deflate},
		{Kind: "", Want: zip.Deflate},
		{Kind: zipcomp.Bzip2, Want: zipcomp.MethodBzip2},
		{Kind: zipcomp.LZMA, Want: zipcomp.MethodLZMA},
	}
	for _, tc := range tt {
		got, err := zipcomp.Method(tc.Kind)
		if err != nil {
			t.Errorf("%q: %v", tc.Kind, err)
			continue
		}
		if got != tc.Want {
			t.Errorf("%q: got %d, want %d", tc.Kind, got, tc.Want)
		}
	}

	_, err := zipcomp.Method("brotli")
	t.Logf("error: %v", err)
	if !errors.Is(err, zipcomp.ErrUnknownKind) {
		t.Errorf("got %v, want unknown kind", err)
	}
}

func TestRoundTrip(t *testing.T) {
	payload := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 128)

	for _, kind := range []string{zipcomp.None, zipcomp.Deflate, zipcomp.Bzip2, zipcomp.LZMA} {
		t.Run(kind, func(t *testing.T) {
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			method, err := zipcomp.Configure(zw, kind, -1)
			if err != nil {
				t.Fatal(err)
			}
			fw, err := zw.CreateHeader(&zip.FileHeader{Name: "payload.txt", Method: method})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := io.WriteString(fw, payload); err != nil {
				t.Fatal(err)
			}
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}

			zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
			if err != nil {
				t.Fatal(err)
			}
			zipcomp.RegisterDecompressors(zr)

			f, err := zr.Open("payload.txt")
			if err != nil {
				t.Fatal(err)
			}
			got, err := io.ReadAll(f)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.Close(); err != nil {
				t.Error(err)
			}
			if string(got) != payload {
				t.Errorf("payload mismatch: %d bytes, want %d", len(got), len(payload))
			}
			if kind != zipcomp.None && buf.Len() >= len(payload) {
				t.Errorf("compressed archive (%d bytes) not smaller than payload (%d bytes)", buf.Len(), len(payload))
			}
		})
	}
}

func TestDeflateLevels(t *testing.T) {
	payload := strings.Repeat("abcdefgh", 4096)
	size := func(level int) int {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		method, err := zipcomp.Configure(zw, zipcomp.Deflate, level)
		if err != nil {
			t.Fatal(err)
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: "p", Method: method})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, payload); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		return buf.Len()
	}
	if fast, best := size(1), size(9); best > fast {
		t.Errorf("level 9 output (%d) larger than level 1 output (%d)", best, fast)
	}
}
