// Package verify checks sort output: key order by sequential scan, and
// multiset preservation via an order-insensitive content fingerprint.
package verify

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/VSortDB/vsort/pkg/blockfile"
)

// CheckFile reports whether the record file at path is sorted by key,
// ascending. The scan reads the file directly, outside any buffer pool.
func CheckFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s for verification: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, blockfile.BytesPerBlock)
	var buf [blockfile.BytesPerRecord]byte

	first := true
	var prev int16
	for {
		if _, err := io.ReadFull(reader, buf[:]); err != nil {
			if err == io.EOF {
				return true, nil
			}
			if err == io.ErrUnexpectedEOF {
				return false, fmt.Errorf("%s is not a whole number of records: %w",
					path, blockfile.ErrShortRead)
			}
			return false, fmt.Errorf("failed to scan %s: %w", path, err)
		}

		key := blockfile.DecodeKey(buf[:])
		if !first && key < prev {
			return false, nil
		}
		prev = key
		first = false
	}
}

// Fingerprint computes an order-insensitive digest of the records in the
// file at path: the wrapping sum of each record's xxhash. Two files hold the
// same multiset of records iff their fingerprints match, up to hash
// collisions, so a sort must leave the fingerprint unchanged.
func Fingerprint(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s for fingerprinting: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, blockfile.BytesPerBlock)
	var buf [blockfile.BytesPerRecord]byte

	var sum uint64
	for {
		if _, err := io.ReadFull(reader, buf[:]); err != nil {
			if err == io.EOF {
				return sum, nil
			}
			if err == io.ErrUnexpectedEOF {
				return 0, fmt.Errorf("%s is not a whole number of records: %w",
					path, blockfile.ErrShortRead)
			}
			return 0, fmt.Errorf("failed to fingerprint %s: %w", path, err)
		}
		sum += xxhash.Sum64(buf[:])
	}
}

// BlockChecksum digests one block image, for the inspector's block summary.
func BlockChecksum(block []byte) uint64 {
	return xxhash.Sum64(block)
}
