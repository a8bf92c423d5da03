// Package snapshot makes compressed point-in-time copies of a record file
// and restores them. A snapshot taken before a sort is the only way back to
// the unsorted input, since the sort rewrites the file in place.
package snapshot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Codec identifies a compression codec
type Codec uint8

const (
	// CodecNone stores snapshot data uncompressed
	CodecNone Codec = iota
	// CodecSnappy compresses snapshot data with snappy
	CodecSnappy
	// CodecZstd compresses snapshot data with zstd
	CodecZstd
)

var (
	// ErrUnknownCodec is returned when an unsupported compression codec is specified
	ErrUnknownCodec = errors.New("unknown compression codec")
	// ErrInvalidCompressedData is returned when compressed data cannot be decompressed
	ErrInvalidCompressedData = errors.New("invalid compressed data")
)

// String returns the codec name
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecSnappy:
		return "snappy"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps a codec name to its Codec value
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "none":
		return CodecNone, nil
	case "snappy":
		return CodecSnappy, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return CodecNone, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// CompressionManager provides methods to compress and decompress snapshot data
type CompressionManager struct {
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder

	// Mutex to protect encoder/decoder access
	mu sync.Mutex
}

// NewCompressionManager creates a new compressor with initialized codecs
func NewCompressionManager() (*CompressionManager, error) {
	zstdEncoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ZSTD encoder: %w", err)
	}

	zstdDecoder, err := zstd.NewReader(nil)
	if err != nil {
		zstdEncoder.Close()
		return nil, fmt.Errorf("failed to create ZSTD decoder: %w", err)
	}

	return &CompressionManager{
		zstdEncoder: zstdEncoder,
		zstdDecoder: zstdDecoder,
	}, nil
}

// Compress compresses data using the specified codec
func (c *CompressionManager) Compress(data []byte, codec Codec) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecZstd:
		return c.zstdEncoder.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
}

// Decompress decompresses data using the specified codec
func (c *CompressionManager) Decompress(data []byte, codec Codec) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		decompressed, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCompressedData, err)
		}
		return decompressed, nil
	case CodecZstd:
		decompressed, err := c.zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCompressedData, err)
		}
		return decompressed, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
}

// Close releases the compression codecs
func (c *CompressionManager) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.zstdEncoder != nil {
		c.zstdEncoder.Close()
		c.zstdEncoder = nil
	}
	if c.zstdDecoder != nil {
		c.zstdDecoder.Close()
		c.zstdDecoder = nil
	}
	return nil
}
