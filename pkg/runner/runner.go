// Package runner wires a complete sort run together: optional pre-sort
// snapshot, buffer pool, sort driver, final flush, and statistics emission.
package runner

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/VSortDB/vsort/pkg/bufferpool"
	"github.com/VSortDB/vsort/pkg/common/log"
	"github.com/VSortDB/vsort/pkg/config"
	"github.com/VSortDB/vsort/pkg/extsort"
	"github.com/VSortDB/vsort/pkg/snapshot"
	"github.com/VSortDB/vsort/pkg/stats"
)

// Runner executes sorts according to one configuration.
type Runner struct {
	cfg    *config.Config
	logger log.Logger
}

// New creates a runner for the given configuration. A nil cfg uses the
// defaults.
func New(cfg *config.Config, logger log.Logger) (*Runner, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.GetDefaultLogger().WithField("component", "runner")
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Sort sorts dataFile in place through a pool of numBuffers buffers and
// appends the run's statistics to statFile. numBuffers overrides the
// configured pool size. Returns the report that was appended.
func (r *Runner) Sort(dataFile string, numBuffers int, statFile string) (*stats.SortReport, error) {
	if r.cfg.SnapshotBeforeSort {
		codec, err := snapshot.ParseCodec(string(r.cfg.Codec))
		if err != nil {
			return nil, err
		}
		dst := filepath.Join(r.cfg.SnapshotDir, filepath.Base(dataFile)+".snap")
		if err := snapshot.Write(dataFile, dst, codec); err != nil {
			return nil, fmt.Errorf("pre-sort snapshot failed: %w", err)
		}
		r.logger.Info("wrote pre-sort snapshot %s", dst)
	}

	collector := stats.NewCollector()
	pool, err := bufferpool.Open(dataFile, numBuffers,
		bufferpool.WithCollector(collector),
		bufferpool.WithLogger(r.logger.WithField("component", "bufferpool")))
	if err != nil {
		return nil, err
	}

	sorter := extsort.NewSorter(pool,
		extsort.WithThresholds(r.cfg.SmallFileMax, r.cfg.MediumFileMax),
		extsort.WithChunkSize(r.cfg.ChunkSize),
		extsort.WithInsertionThreshold(r.cfg.InsertionThreshold),
		extsort.WithSortLogger(r.logger.WithField("component", "extsort")))

	start := time.Now()
	sortErr := sorter.Sort()
	elapsed := time.Since(start)

	if closeErr := pool.Close(); closeErr != nil && sortErr == nil {
		sortErr = closeErr
	}
	if sortErr != nil {
		return nil, sortErr
	}

	report := &stats.SortReport{
		DataFile:   dataFile,
		CacheHits:  pool.CacheHits(),
		DiskReads:  pool.DiskReads(),
		DiskWrites: pool.DiskWrites(),
		SortTime:   elapsed,
	}

	r.logger.Info("sorted %s: %d cache hits, %d disk reads, %d disk writes in %s",
		dataFile, report.CacheHits, report.DiskReads, report.DiskWrites, elapsed)

	if err := stats.AppendReport(statFile, *report); err != nil {
		return nil, err
	}
	return report, nil
}
