package blockfile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrReadPastEOF is returned when a block read starts at or beyond the
	// end of the file
	ErrReadPastEOF = errors.New("block read past end of file")
	// ErrShortRead is returned when a block read ends before the end of the
	// file without filling the block
	ErrShortRead = errors.New("incomplete block read")
	// ErrInvalidBlockID is returned for negative block identifiers
	ErrInvalidBlockID = errors.New("invalid block ID")
	// ErrFileClosed is returned when operating on a closed file
	ErrFileClosed = errors.New("file already closed")
)

// File is a random-access handle to a record file. The file length is
// captured at open time; a sort never grows or shrinks the file.
type File struct {
	path string
	file *os.File
	size int64
}

// Open opens the record file at path for reading and writing.
func Open(path string) (*File, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat record file %s: %w", path, err)
	}

	return &File{
		path: path,
		file: file,
		size: info.Size(),
	}, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Size returns the file length in bytes as captured at open time.
func (f *File) Size() int64 {
	return f.size
}

// NumRecords returns the number of whole records in the file.
func (f *File) NumRecords() int {
	return int(f.size / BytesPerRecord)
}

// ReadBlock reads block id into buf, which must be BytesPerBlock long.
// A read that runs into the end of the file is zero-filled past the tail;
// any other short read is an error.
func (f *File) ReadBlock(id int, buf []byte) error {
	if f.file == nil {
		return ErrFileClosed
	}
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockID, id)
	}

	offset := int64(id) * BytesPerBlock
	if offset >= f.size {
		return fmt.Errorf("%w: block %d at offset %d, file length %d",
			ErrReadPastEOF, id, offset, f.size)
	}

	n, err := f.file.ReadAt(buf[:BytesPerBlock], offset)
	if err != nil {
		if err == io.EOF && offset+int64(n) == f.size {
			// Partial block at the end of the file; the tail is zeroed.
			for i := n; i < BytesPerBlock; i++ {
				buf[i] = 0
			}
			return nil
		}
		if err == io.EOF {
			return fmt.Errorf("%w: block %d, expected %d bytes, got %d",
				ErrShortRead, id, BytesPerBlock, n)
		}
		return fmt.Errorf("failed to read block %d: %w", id, err)
	}
	return nil
}

// WriteBlock writes buf, which must be BytesPerBlock long, to block id.
// A block that runs past the end of the file is written only up to the end
// of the file, so the file length does not change.
func (f *File) WriteBlock(id int, buf []byte) error {
	if f.file == nil {
		return ErrFileClosed
	}
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockID, id)
	}

	offset := int64(id) * BytesPerBlock
	length := int64(BytesPerBlock)
	if remaining := f.size - offset; remaining > 0 && remaining < length {
		length = remaining
	}
	if _, err := f.file.WriteAt(buf[:length], offset); err != nil {
		return fmt.Errorf("failed to write block %d: %w", id, err)
	}
	return nil
}

// Sync flushes the file to stable storage.
func (f *File) Sync() error {
	if f.file == nil {
		return ErrFileClosed
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync record file: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (f *File) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	if err != nil {
		return fmt.Errorf("failed to close record file: %w", err)
	}
	return nil
}
