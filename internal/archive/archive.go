// Package archive writes a table as the single CSV entry of a zip archive.
package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// ErrWrite matches every error returned by Write.
var ErrWrite = errors.New("archive write failed")

// WriteError records the step of Write that failed.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrWrite) hold for write errors.
func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// Table is the tabular content written by Write.
type Table interface {
	Header() []string
	Len() int
	AppendRecord(dst []string, i int) []string
}

// entryTime is stamped on every entry so equal tables give equal archives.
var entryTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Write stores t as the CSV entry named entry in a new zip archive at path.
// The archive is assembled in a temporary file beside path and renamed into
// place, so path never holds a partial archive.
func Write(path, entry string, t Table) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return writeErr("create", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := writeZip(tmp, entry, t); err != nil {
		return writeErr("write", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return writeErr("sync", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return writeErr("close", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return writeErr("chmod", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return writeErr("rename", path, err)
	}
	return nil
}

func writeErr(op, path string, err error) error {
	return errors.WithStack(&WriteError{Op: op, Path: path, Err: err})
}

func writeZip(w io.Writer, entry string, t Table) error {
	zw := zip.NewWriter(w)
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry,
		Method:   zip.Deflate,
		Modified: entryTime,
	})
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(fw, 1<<16)
	if err := writeRecord(bw, t.Header()); err != nil {
		return err
	}
	var rec []string
	for i := range t.Len() {
		rec = t.AppendRecord(rec[:0], i)
		if err := writeRecord(bw, rec); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

// writeRecord writes one CSV line with every field quoted.
func writeRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		if strings.IndexByte(f, '"') >= 0 {
			f = strings.ReplaceAll(f, `"`, `""`)
		}
		w.WriteString(f)
		w.WriteByte('"')
	}
	_, err := w.WriteString("\n")
	return err
}
