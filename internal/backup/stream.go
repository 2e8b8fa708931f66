package backup

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"iter"
)

// maxLineSize bounds one JSONL record. Descriptions can be long.
const maxLineSize = 4 << 20

// entryWriter appends JSON lines to one archive entry.
type entryWriter struct {
	w     io.Writer
	count int
}

func newEntryWriter(zw *zip.Writer, name string) (*entryWriter, error) {
	w, err := zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &entryWriter{w: w}, nil
}

func (e *entryWriter) write(v any) error {
	if err := json.MarshalWrite(e.w, v); err != nil {
		return err
	}
	if _, err := e.w.Write([]byte{'\n'}); err != nil {
		return err
	}
	e.count++
	return nil
}

// openEntry opens a named entry of the archive.
func openEntry(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("%w: %s missing", ErrCorruptedBackup, name)
}

// readEntry iterates over the records of a JSONL entry. A malformed line
// yields an error and reading continues with the next one.
func readEntry[T any](zr *zip.Reader, name string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		rc, err := openEntry(zr, name)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close()

		sc := bufio.NewScanner(rc)
		sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
		line := 0
		for sc.Scan() {
			line++
			raw := bytes.TrimSpace(sc.Bytes())
			if len(raw) == 0 {
				continue
			}
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				if !yield(nil, &LineError{Entry: name, Line: line, Err: err}) {
					return
				}
				continue
			}
			if !yield(&v, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, fmt.Errorf("read %s: %w", name, err))
		}
	}
}

// LineError is a record that could not be decoded.
type LineError struct {
	Entry string
	Line  int
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Entry, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// isLineError reports whether err only affects one record.
func isLineError(err error) bool {
	var le *LineError
	return errors.As(err, &le)
}
