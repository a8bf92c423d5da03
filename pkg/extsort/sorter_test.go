package extsort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/VSortDB/vsort/pkg/bufferpool"
	"github.com/VSortDB/vsort/pkg/datagen"
	"github.com/VSortDB/vsort/pkg/verify"
)

// generateFile writes n records to a fresh file in the given mode and
// returns its path.
func generateFile(t *testing.T, n int, mode datagen.Mode) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.bin")
	gen := datagen.NewGenerator(42)
	if err := gen.GenerateRecords(path, n, mode); err != nil {
		t.Fatalf("Failed to generate test file: %v", err)
	}
	return path
}

// sortFile runs a full sort over path with numBuffers buffers, flushing and
// closing the pool before returning.
func sortFile(t *testing.T, path string, numBuffers int, options ...SorterOption) {
	t.Helper()

	pool, err := bufferpool.Open(path, numBuffers)
	if err != nil {
		t.Fatalf("Failed to open pool: %v", err)
	}

	sorter := NewSorter(pool, options...)
	if err := sorter.Sort(); err != nil {
		pool.Close()
		t.Fatalf("Failed to sort: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Failed to close pool: %v", err)
	}
}

// checkSorted fails the test unless the file at path is sorted by key.
func checkSorted(t *testing.T, path string) {
	t.Helper()

	sorted, err := verify.CheckFile(path)
	if err != nil {
		t.Fatalf("Failed to check file: %v", err)
	}
	if !sorted {
		t.Fatal("Expected file to be sorted")
	}
}

// fingerprint returns the order-insensitive content digest of path.
func fingerprint(t *testing.T, path string) uint64 {
	t.Helper()

	sum, err := verify.Fingerprint(path)
	if err != nil {
		t.Fatalf("Failed to fingerprint file: %v", err)
	}
	return sum
}

func TestSortEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to create empty file: %v", err)
	}

	sortFile(t, path, 4)
	checkSorted(t, path)
}

func TestSortSingleRecord(t *testing.T) {
	path := generateFile(t, 1, datagen.ModeRandom)
	before := fingerprint(t, path)

	sortFile(t, path, 1)

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}

func TestSortSmallRandom(t *testing.T) {
	path := generateFile(t, 3000, datagen.ModeRandom)
	before := fingerprint(t, path)

	sortFile(t, path, 4)

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}

func TestSortAlreadySorted(t *testing.T) {
	path := generateFile(t, 4000, datagen.ModeAscending)
	before := fingerprint(t, path)

	sortFile(t, path, 4)

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}

func TestSortDescending(t *testing.T) {
	path := generateFile(t, 4000, datagen.ModeDescending)
	before := fingerprint(t, path)

	sortFile(t, path, 4)

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}

func TestSortManyDuplicateKeys(t *testing.T) {
	// ASCII mode draws keys from 95 distinct values, so a few thousand
	// records guarantee heavy duplication.
	path := generateFile(t, 3000, datagen.ModeASCII)
	before := fingerprint(t, path)

	sortFile(t, path, 4)

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}

func TestSortMediumMergeSort(t *testing.T) {
	// Lowered thresholds push a modest file onto the recursive merge path.
	path := generateFile(t, 2000, datagen.ModeRandom)
	before := fingerprint(t, path)

	sortFile(t, path, 4, WithThresholds(100, 100000))

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}

func TestSortLargeChunked(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		chunk int
	}{
		{"even chunk count", 6000, 1500},
		{"odd tail carried forward", 3301, 300},
		{"chunk boundary exact", 4500, 1500},
		{"one record past a pair", 3001, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := generateFile(t, tt.n, datagen.ModeRandom)
			before := fingerprint(t, path)

			sortFile(t, path, 4,
				WithThresholds(100, 1000),
				WithChunkSize(tt.chunk))

			checkSorted(t, path)
			if got := fingerprint(t, path); got != before {
				t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
			}
		})
	}
}

func TestSortSingleBuffer(t *testing.T) {
	// The minimum pool size exercises eviction on nearly every access.
	path := generateFile(t, 2500, datagen.ModeRandom)
	before := fingerprint(t, path)

	sortFile(t, path, 1, WithThresholds(100, 100000))

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}

func TestSortIsIdempotent(t *testing.T) {
	path := generateFile(t, 2000, datagen.ModeRandom)

	sortFile(t, path, 4)
	first := fingerprint(t, path)

	sortFile(t, path, 4)
	checkSorted(t, path)
	if got := fingerprint(t, path); got != first {
		t.Errorf("Second sort changed content: fingerprint %016x != %016x", got, first)
	}
}

func TestInsertionSortRange(t *testing.T) {
	// A file small enough to be one insertion-sorted range end to end.
	path := generateFile(t, 20, datagen.ModeDescending)
	before := fingerprint(t, path)

	sortFile(t, path, 2, WithThresholds(5, 100000), WithInsertionThreshold(32))

	checkSorted(t, path)
	if got := fingerprint(t, path); got != before {
		t.Errorf("Content changed: fingerprint %016x != %016x", got, before)
	}
}
