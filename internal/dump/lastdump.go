// Package dump recovers the most recent gfxinfo dump block from a raw
// capture file without reading the whole file into memory.
package dump

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/solarblue/frametrics/internal/errors"
)

const defaultChunkSize = 1024

// Markers delimiting a gfxinfo dump block in raw capture output.
var (
	startMarker = []byte("** Graphics")
	endMarker   = []byte(" **\n")
)

// reverseReader yields fixed-size chunks of a file from the end toward the
// beginning. The file is never materialized whole, which keeps extraction
// memory-bounded on long recording sessions.
type reverseReader struct {
	r         io.ReadSeeker
	chunkSize int64
	offset    int64
	remaining int64
}

func newReverseReader(r io.ReadSeeker, chunkSize int64) (*reverseReader, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	return &reverseReader{r: r, chunkSize: chunkSize, remaining: size}, nil
}

// hasMore reports whether any unread content remains before the current
// read position.
func (rr *reverseReader) hasMore() bool {
	return rr.remaining > 0
}

// next returns the preceding chunk of the file. The final chunk returned
// (the head of the file) may be shorter than the configured size.
func (rr *reverseReader) next() ([]byte, error) {
	if rr.remaining <= 0 {
		return nil, io.EOF
	}
	n := rr.chunkSize
	if rr.remaining < n {
		n = rr.remaining
	}
	rr.offset = rr.remaining - n
	if _, err := rr.r.Seek(rr.offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rr.r, buf); err != nil {
		return nil, err
	}
	rr.remaining = rr.offset
	return buf, nil
}

// LastGfxinfoDump returns the final dump block of the named raw capture
// file: everything from the last "** Graphics" marker to the end of the
// file. It returns "" with a nil error when the file holds no dump at all;
// callers decide whether that is fatal. A trailing block whose end marker
// is present but whose start marker cannot be located is reported as a
// CorruptDumpError.
func LastGfxinfoDump(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening raw capture file: %w", err)
	}
	defer f.Close()
	return lastDump(f, path, defaultChunkSize)
}

func lastDump(r io.ReadSeeker, path string, chunkSize int64) (string, error) {
	rr, err := newReverseReader(r, chunkSize)
	if err != nil {
		return "", err
	}

	var record []byte
	for rr.hasMore() {
		buf, err := rr.next()
		if err != nil {
			return "", err
		}

		if ix := bytes.LastIndex(buf, startMarker); ix >= 0 {
			return string(buf[ix:]) + string(record), nil
		}

		if bytes.Contains(buf, endMarker) {
			// The block boundary straddles a chunk edge; pull one more
			// chunk back and search the combined buffer.
			if !rr.hasMore() {
				return "", nil
			}
			prev, err := rr.next()
			if err != nil {
				return "", err
			}
			buf = append(prev, buf...)
			ix := bytes.LastIndex(buf, startMarker)
			if ix < 0 {
				return "", errors.CorruptDumpError{Path: path}
			}
			return string(buf[ix:]) + string(record), nil
		}

		record = append(buf, record...)
	}
	return "", nil
}
