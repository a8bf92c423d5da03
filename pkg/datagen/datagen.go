// Package datagen writes record files for tests and benchmarks. Keys and
// values are big-endian signed 16-bit integers, four bytes per record, with
// no header or padding.
package datagen

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/VSortDB/vsort/pkg/blockfile"
)

// Mode selects the key distribution of a generated file
type Mode int

const (
	// ModeRandom draws keys and values uniformly over the int16 range
	ModeRandom Mode = iota
	// ModeAscending writes keys in non-decreasing order
	ModeAscending
	// ModeDescending writes keys in non-increasing order, the worst case
	// for an ascending-destination merge
	ModeDescending
	// ModeASCII draws keys and values from the printable ASCII range
	ModeASCII
)

var (
	// ErrInvalidCount is returned for a non-positive record count
	ErrInvalidCount = errors.New("record count must be positive")
	// ErrUnknownMode is returned for an unrecognized generation mode
	ErrUnknownMode = errors.New("unknown generation mode")
)

// ParseMode maps a mode name to its Mode value
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "random":
		return ModeRandom, nil
	case "ascending", "sorted":
		return ModeAscending, nil
	case "descending", "reverse":
		return ModeDescending, nil
	case "ascii":
		return ModeASCII, nil
	default:
		return ModeRandom, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Generator writes record files from a seeded source, so generated inputs
// are reproducible.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// GenerateBlocks writes numBlocks full blocks of records to path.
func (g *Generator) GenerateBlocks(path string, numBlocks int, mode Mode) error {
	return g.GenerateRecords(path, numBlocks*blockfile.RecordsPerBlock, mode)
}

// GenerateRecords writes numRecords records to path, truncating any
// existing file.
func (g *Generator) GenerateRecords(path string, numRecords int, mode Mode) error {
	if numRecords <= 0 {
		return ErrInvalidCount
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create data file %s: %w", path, err)
	}

	writer := bufio.NewWriterSize(f, blockfile.BytesPerBlock)
	var buf [blockfile.BytesPerRecord]byte

	for i := 0; i < numRecords; i++ {
		key, value := g.record(i, numRecords, mode)
		blockfile.EncodeRecord(buf[:], key, value)
		if _, err := writer.Write(buf[:]); err != nil {
			f.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := writer.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush data file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close data file %s: %w", path, err)
	}
	return nil
}

// record produces the i-th record of a numRecords-long file in the given mode.
func (g *Generator) record(i, numRecords int, mode Mode) (int16, int16) {
	switch mode {
	case ModeAscending:
		return rankKey(i, numRecords), int16(g.rng.Intn(1 << 16))
	case ModeDescending:
		return rankKey(numRecords-1-i, numRecords), int16(g.rng.Intn(1 << 16))
	case ModeASCII:
		return int16(' ' + g.rng.Intn('~'-' '+1)), int16(' ' + g.rng.Intn('~'-' '+1))
	default:
		return int16(g.rng.Intn(1 << 16)), int16(g.rng.Intn(1 << 16))
	}
}

// rankKey spreads rank i of n monotonically across the signed 16-bit range.
func rankKey(i, n int) int16 {
	if n <= 1 {
		return 0
	}
	span := uint64(1 << 16)
	return int16(int(uint64(i)*(span-1)/uint64(n-1)) - (1 << 15))
}
