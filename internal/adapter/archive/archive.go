// Package archive reads and writes ISD yearly station files, plain or
// gzip-compressed.
package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const gzipExt = ".gz"

// maxLineSize bounds a single ISD line. The additional data and remarks
// sections make most lines a few hundred bytes; a handful exceed 2 KiB.
const maxLineSize = 1 << 20

// ErrNotFound is returned by Find when no file exists for a key.
var ErrNotFound = errors.New("archive not found")

// Find returns the path of the archive for key in dir, preferring the
// compressed file.
func Find(dir, key string) (string, error) {
	for _, name := range []string{key + gzipExt, key} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s in %s: %w", key, dir, ErrNotFound)
}

// Open opens path for reading, decompressing files ending in .gz.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, gzipExt) {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.file.Close())
}

// ReadLines returns the lines of r with line endings removed. Blank lines
// are kept so that index i is line i+1 of the file.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return lines, nil
}

// ReadFile opens path and reads all of its lines.
func ReadFile(path string) ([]string, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	lines, err := ReadLines(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// WriteFile writes lines to path, compressing when path ends in .gz.
func WriteFile(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, gzipExt) {
		zw = gzip.NewWriter(f)
		w = zw
	}

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	err = bw.Flush()
	if zw != nil {
		err = errors.Join(err, zw.Close())
	}
	return errors.Join(err, f.Close())
}
