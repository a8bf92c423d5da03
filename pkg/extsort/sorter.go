// Package extsort sorts a record file through a buffer pool, choosing among
// three strategies by file size so that cache-miss traffic stays
// proportional to the working set rather than the whole file.
package extsort

import (
	"sort"

	"github.com/VSortDB/vsort/pkg/bufferpool"
	"github.com/VSortDB/vsort/pkg/common/log"
)

// Default dispatch thresholds, in records. Tunables, not invariants.
const (
	// DefaultSmallFileMax is the largest file sorted fully in memory
	DefaultSmallFileMax = 5000
	// DefaultMediumFileMax is the largest file sorted by one recursive
	// merge sort over the whole index range
	DefaultMediumFileMax = 50000
	// DefaultChunkSize is the segment size of the chunked large-file merge
	DefaultChunkSize = 10000
	// DefaultInsertionThreshold is the index span (hi - lo) of an inclusive
	// subrange at or below which the merge sort switches to insertion sort
	DefaultInsertionThreshold = 32
)

// record is a decoded key/value pair held in a temporary array.
type record struct {
	key   int16
	value int16
}

// Sorter drives a size-adaptive sort over one buffer pool. A Sorter borrows
// the pool for the duration of Sort and leaves flushing to the caller.
type Sorter struct {
	pool   *bufferpool.Pool
	logger log.Logger

	smallFileMax       int
	mediumFileMax      int
	chunkSize          int
	insertionThreshold int
}

// SorterOption configures a Sorter
type SorterOption func(*Sorter)

// WithThresholds overrides the small and medium dispatch thresholds
func WithThresholds(smallMax, mediumMax int) SorterOption {
	return func(s *Sorter) {
		s.smallFileMax = smallMax
		s.mediumFileMax = mediumMax
	}
}

// WithChunkSize overrides the large-file chunk size
func WithChunkSize(chunk int) SorterOption {
	return func(s *Sorter) {
		s.chunkSize = chunk
	}
}

// WithInsertionThreshold overrides the insertion sort cutoff
func WithInsertionThreshold(threshold int) SorterOption {
	return func(s *Sorter) {
		s.insertionThreshold = threshold
	}
}

// WithSortLogger sets the logger used by the sorter
func WithSortLogger(logger log.Logger) SorterOption {
	return func(s *Sorter) {
		s.logger = logger
	}
}

// NewSorter creates a sorter over the given pool.
func NewSorter(pool *bufferpool.Pool, options ...SorterOption) *Sorter {
	s := &Sorter{
		pool:               pool,
		smallFileMax:       DefaultSmallFileMax,
		mediumFileMax:      DefaultMediumFileMax,
		chunkSize:          DefaultChunkSize,
		insertionThreshold: DefaultInsertionThreshold,
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.GetDefaultLogger().WithField("component", "extsort")
	}
	return s
}

// Sort orders the whole file by key, ascending. Equal keys keep no
// particular order.
func (s *Sorter) Sort() error {
	n := s.pool.RecordCount()
	if n == 0 {
		return nil
	}

	switch {
	case n <= s.smallFileMax:
		s.logger.Debug("sorting %d records in memory", n)
		return s.sortSmall(n)
	case n <= s.mediumFileMax:
		s.logger.Debug("sorting %d records with merge sort", n)
		return s.mergeSort(0, n-1)
	default:
		s.logger.Debug("sorting %d records with chunked merge", n)
		return s.sortLarge(n)
	}
}

// sortSmall loads every record into one array, sorts it, and writes the
// records back in order.
func (s *Sorter) sortSmall(n int) error {
	records := make([]record, n)
	for i := 0; i < n; i++ {
		key, err := s.pool.GetKey(i)
		if err != nil {
			return err
		}
		value, err := s.pool.GetValue(i)
		if err != nil {
			return err
		}
		records[i] = record{key: key, value: value}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].key < records[j].key
	})

	for i := 0; i < n; i++ {
		if err := s.pool.SetRecord(i, records[i].key, records[i].value); err != nil {
			return err
		}
	}
	return nil
}

// mergeSort sorts the inclusive index range [lo, hi].
func (s *Sorter) mergeSort(lo, hi int) error {
	if hi-lo <= s.insertionThreshold {
		return s.insertionSort(lo, hi)
	}

	mid := lo + (hi-lo)/2

	if err := s.mergeSort(lo, mid); err != nil {
		return err
	}
	if err := s.mergeSort(mid+1, hi); err != nil {
		return err
	}

	// Skip the merge when the halves are already in order.
	leftMax, err := s.pool.GetKey(mid)
	if err != nil {
		return err
	}
	rightMin, err := s.pool.GetKey(mid + 1)
	if err != nil {
		return err
	}
	if leftMax <= rightMin {
		return nil
	}

	return s.merge(lo, mid, hi)
}

// insertionSort orders the inclusive range [lo, hi] in place through the
// record accessor.
func (s *Sorter) insertionSort(lo, hi int) error {
	for i := lo + 1; i <= hi; i++ {
		key, err := s.pool.GetKey(i)
		if err != nil {
			return err
		}
		value, err := s.pool.GetValue(i)
		if err != nil {
			return err
		}

		j := i - 1
		for j >= lo {
			keyJ, err := s.pool.GetKey(j)
			if err != nil {
				return err
			}
			if keyJ <= key {
				break
			}
			valueJ, err := s.pool.GetValue(j)
			if err != nil {
				return err
			}
			if err := s.pool.SetRecord(j+1, keyJ, valueJ); err != nil {
				return err
			}
			j--
		}

		// Nothing shifted, the held record is already in place.
		if j+1 != i {
			if err := s.pool.SetRecord(j+1, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// merge combines the sorted ranges [lo, mid] and [mid+1, hi] by
// materialising both halves into temporary arrays and writing the merged
// output back through the accessor.
func (s *Sorter) merge(lo, mid, hi int) error {
	left, err := s.loadRecords(lo, mid)
	if err != nil {
		return err
	}
	right, err := s.loadRecords(mid+1, hi)
	if err != nil {
		return err
	}

	i, j, k := 0, 0, lo
	for i < len(left) && j < len(right) {
		if left[i].key <= right[j].key {
			err = s.pool.SetRecord(k, left[i].key, left[i].value)
			i++
		} else {
			err = s.pool.SetRecord(k, right[j].key, right[j].value)
			j++
		}
		if err != nil {
			return err
		}
		k++
	}

	for ; i < len(left); i, k = i+1, k+1 {
		if err := s.pool.SetRecord(k, left[i].key, left[i].value); err != nil {
			return err
		}
	}
	for ; j < len(right); j, k = j+1, k+1 {
		if err := s.pool.SetRecord(k, right[j].key, right[j].value); err != nil {
			return err
		}
	}
	return nil
}

// loadRecords reads the inclusive range [lo, hi] into a fresh array.
func (s *Sorter) loadRecords(lo, hi int) ([]record, error) {
	out := make([]record, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		key, err := s.pool.GetKey(r)
		if err != nil {
			return nil, err
		}
		value, err := s.pool.GetValue(r)
		if err != nil {
			return nil, err
		}
		out = append(out, record{key: key, value: value})
	}
	return out, nil
}

// sortLarge sorts fixed-size chunks independently, then merges adjacent
// chunk pairs in rounds of geometrically growing width. An odd tail chunk
// is carried forward unmerged; it is already sorted and the next round's
// wider window sweeps it in.
func (s *Sorter) sortLarge(n int) error {
	chunk := s.chunkSize
	numChunks := (n + chunk - 1) / chunk

	for i := 0; i < numChunks; i++ {
		start := i * chunk
		end := min(start+chunk-1, n-1)
		if err := s.mergeSort(start, end); err != nil {
			return err
		}
	}

	for numChunks > 1 {
		for i := 0; i < numChunks/2; i++ {
			start := i * 2 * chunk
			mid := min(start+chunk-1, n-1)
			end := min(mid+chunk, n-1)

			if mid < end {
				if err := s.merge(start, mid, end); err != nil {
					return err
				}
			}
		}

		chunk *= 2
		numChunks = (numChunks + 1) / 2
	}
	return nil
}
