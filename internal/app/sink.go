package app

import (
	"encoding/binary"
	"fmt"
	"os"
)

// FileSink writes received chunks to a file, using the size header in
// chunk 0 to strip the padding of the last chunk. It implements gbn.Sink.
type FileSink struct {
	f       *os.File
	path    string
	size    int64
	written int64
	header  bool
}

// NewFileSink creates (or truncates) path for receiving.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return &FileSink{f: f, path: path}, nil
}

// OnChunk receives chunks in order, starting with the header.
func (s *FileSink) OnChunk(seq uint32, data []byte) error {
	if seq == 0 {
		s.size = int64(binary.BigEndian.Uint64(data[:headerSize]))
		s.header = true
		return nil
	}
	if !s.header {
		return fmt.Errorf("chunk %d arrived before the size header", seq)
	}

	remaining := s.size - s.written
	if remaining <= 0 {
		return nil
	}
	if int64(len(data)) > remaining {
		data = data[:remaining]
	}
	n, err := s.f.Write(data)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Written returns the number of file bytes stored so far.
func (s *FileSink) Written() int64 { return s.written }

// Close flushes the file and reports a transfer that ended short.
func (s *FileSink) Close() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	if !s.header {
		return fmt.Errorf("no data received for %s", s.path)
	}
	if s.written != s.size {
		return fmt.Errorf("incomplete file %s: %d of %d bytes", s.path, s.written, s.size)
	}
	return nil
}
