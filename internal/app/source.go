package app

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/1ureka/gbn/internal/protocol"
)

// headerSize is the length of chunk 0: the file size as a big-endian uint64.
// Payloads are zero-padded on the wire, so the receiver needs it to know
// where the last chunk ends.
const headerSize = 8

// FileSource serves a file as GBN chunks: a size header followed by the
// file contents in PayloadSize pieces. It implements gbn.Source.
type FileSource struct {
	f    *os.File
	size int64
	buf  [protocol.PayloadSize]byte
}

// NewFileSource opens path for sending.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return &FileSource{f: f, size: info.Size()}, nil
}

// Size returns the file length in bytes.
func (s *FileSource) Size() int64 { return s.size }

// Len returns the chunk count, header included.
func (s *FileSource) Len() int {
	return 1 + int((s.size+protocol.PayloadSize-1)/protocol.PayloadSize)
}

// Chunk returns chunk i. The slice is reused by the next call.
func (s *FileSource) Chunk(i int) ([]byte, error) {
	if i == 0 {
		binary.BigEndian.PutUint64(s.buf[:headerSize], uint64(s.size))
		return s.buf[:headerSize], nil
	}

	off := int64(i-1) * protocol.PayloadSize
	n, err := s.f.ReadAt(s.buf[:], off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read chunk %d: %w", i, err)
	}
	return s.buf[:n], nil
}

// Close closes the file.
func (s *FileSource) Close() error {
	return s.f.Close()
}
