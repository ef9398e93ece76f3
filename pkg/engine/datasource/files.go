package datasource

import (
	"io"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// globFiles returns the files of fsys matching pattern, sorted by name.
// Patterns are slash-separated and may use doublestar syntax (`data/**/*.csv`).
func globFiles(fsys afero.Fs, pattern string) ([]string, error) {
	pattern = strings.TrimPrefix(path.Clean(pattern), "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid path pattern %q", pattern)
	}

	matches, err := doublestar.Glob(afero.NewIOFS(fsys), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "matching %q", pattern)
	}
	if len(matches) == 0 {
		return nil, errors.Errorf("no files match %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// openFile opens name on fsys and transparently decompresses files ending in
// `.gz` or `.zst`.
func openFile(fsys afero.Fs, name string) (io.ReadCloser, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}

	switch path.Ext(name) {
	case ".gz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "opening gzip stream of %s", name)
		}
		return &decompressedFile{Reader: gr, closers: []func() error{gr.Close, f.Close}}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "opening zstd stream of %s", name)
		}
		return &decompressedFile{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }, f.Close}}, nil
	}
	return f, nil
}

type decompressedFile struct {
	io.Reader
	closers []func() error
}

func (f *decompressedFile) Close() error {
	var firstErr error
	for _, closeFn := range f.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
