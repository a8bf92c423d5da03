package stats

import (
	"fmt"
	"os"
	"time"
)

// SortReport is the record of one completed sort, rendered into the
// statistics file.
type SortReport struct {
	DataFile   string
	CacheHits  uint64
	DiskReads  uint64
	DiskWrites uint64
	SortTime   time.Duration
}

// Format renders the report entry, trailing blank line included.
func (r SortReport) Format() string {
	return fmt.Sprintf("File: %s\nCache hits: %d\nDisk reads: %d\nDisk writes: %d\nSort time: %d ms\n\n",
		r.DataFile, r.CacheHits, r.DiskReads, r.DiskWrites, r.SortTime.Milliseconds())
}

// AppendReport appends the report entry to the statistics file at path,
// creating the file if it does not exist.
func AppendReport(path string, r SortReport) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open statistics file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(r.Format()); err != nil {
		return fmt.Errorf("failed to append statistics to %s: %w", path, err)
	}
	return nil
}
