package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

const (
	// headerSize is the fixed size of the snapshot header in bytes
	headerSize = 29
	// headerMagic identifies a snapshot file
	headerMagic = uint64(0x56534E4150534844)
	// currentVersion is the current snapshot format version
	currentVersion = uint32(1)
)

var (
	// ErrNotSnapshot is returned when a file does not carry the snapshot magic
	ErrNotSnapshot = errors.New("not a snapshot file")
	// ErrCorruptSnapshot is returned when a snapshot fails its checksum
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// header describes the payload of a snapshot file.
type header struct {
	magic    uint64
	version  uint32
	codec    Codec
	rawSize  uint64
	checksum uint64 // xxhash of the uncompressed payload
}

// encode serializes the header to a byte slice
func (h *header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.magic)
	binary.LittleEndian.PutUint32(buf[8:12], h.version)
	buf[12] = byte(h.codec)
	binary.LittleEndian.PutUint64(buf[13:21], h.rawSize)
	binary.LittleEndian.PutUint64(buf[21:29], h.checksum)
	return buf
}

// decodeHeader parses and sanity-checks a snapshot header
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, ErrNotSnapshot
	}
	h := &header{
		magic:    binary.LittleEndian.Uint64(buf[0:8]),
		version:  binary.LittleEndian.Uint32(buf[8:12]),
		codec:    Codec(buf[12]),
		rawSize:  binary.LittleEndian.Uint64(buf[13:21]),
		checksum: binary.LittleEndian.Uint64(buf[21:29]),
	}
	if h.magic != headerMagic {
		return nil, ErrNotSnapshot
	}
	if h.version != currentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrNotSnapshot, h.version)
	}
	return h, nil
}

// Write copies the file at src into a compressed snapshot at dst.
func Write(src, dst string, codec Codec) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read snapshot source %s: %w", src, err)
	}

	manager, err := NewCompressionManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	compressed, err := manager.Compress(data, codec)
	if err != nil {
		return err
	}

	h := &header{
		magic:    headerMagic,
		version:  currentVersion,
		codec:    codec,
		rawSize:  uint64(len(data)),
		checksum: xxhash.Sum64(data),
	}

	out := make([]byte, 0, headerSize+len(compressed))
	out = append(out, h.encode()...)
	out = append(out, compressed...)

	if err := os.WriteFile(dst, out, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", dst, err)
	}
	return nil
}

// Restore rebuilds the original file at dst from the snapshot at src.
func Restore(src, dst string) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", src, err)
	}

	h, err := decodeHeader(raw)
	if err != nil {
		return err
	}

	manager, err := NewCompressionManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	data, err := manager.Decompress(raw[headerSize:], h.codec)
	if err != nil {
		return err
	}

	if uint64(len(data)) != h.rawSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrCorruptSnapshot, h.rawSize, len(data))
	}
	if xxhash.Sum64(data) != h.checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to restore snapshot to %s: %w", dst, err)
	}
	return nil
}
