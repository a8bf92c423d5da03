// Package bufferpool mediates all access to a record file through a fixed
// set of block-sized buffers with LRU replacement and write-back caching.
// Every read and write the sort performs flows through one pool; the pool
// owns the backing file for the lifetime of the sort.
package bufferpool

import (
	"errors"
	"fmt"

	"github.com/VSortDB/vsort/pkg/blockfile"
	"github.com/VSortDB/vsort/pkg/common/log"
	"github.com/VSortDB/vsort/pkg/stats"
)

const (
	// MinBuffers is the smallest allowed pool size
	MinBuffers = 1
	// MaxBuffers is the largest allowed pool size
	MaxBuffers = 20

	// emptyBlock marks a slot that holds no block
	emptyBlock = -1
)

var (
	// ErrInvalidBufferCount is returned when the pool size is outside
	// [MinBuffers, MaxBuffers]
	ErrInvalidBufferCount = errors.New("invalid number of buffers")
	// ErrNegativeIndex is returned for negative record indices
	ErrNegativeIndex = errors.New("negative record index")
	// ErrPoolClosed is returned when operating on a closed pool
	ErrPoolClosed = errors.New("buffer pool already closed")
)

// slot is one fixed buffer holding a block image plus its metadata.
type slot struct {
	blockID int
	bytes   []byte
	dirty   bool
	stamp   uint64
}

// Pool is a fixed-capacity block cache over a record file. Buffers returned
// by GetBlock alias pool-owned memory and are only valid until the next pool
// operation; callers that need a block across pool calls must re-fetch it.
type Pool struct {
	file   *blockfile.File
	slots  []slot
	clock  uint64 // monotonic LRU stamp source
	closed bool

	cacheHits  uint64
	diskReads  uint64
	diskWrites uint64

	collector *stats.Collector
	logger    log.Logger
}

// Option configures a Pool
type Option func(*Pool)

// WithCollector sets the statistics collector the pool reports to
func WithCollector(c *stats.Collector) Option {
	return func(p *Pool) {
		p.collector = c
	}
}

// WithLogger sets the logger used by the pool
func WithLogger(logger log.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// Open opens the record file at path and builds a pool of numBuffers empty
// slots over it.
func Open(path string, numBuffers int, options ...Option) (*Pool, error) {
	if numBuffers < MinBuffers || numBuffers > MaxBuffers {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]",
			ErrInvalidBufferCount, numBuffers, MinBuffers, MaxBuffers)
	}

	file, err := blockfile.Open(path)
	if err != nil {
		return nil, err
	}

	pool := &Pool{
		file:  file,
		slots: make([]slot, numBuffers),
	}
	for i := range pool.slots {
		pool.slots[i].blockID = emptyBlock
		pool.slots[i].bytes = make([]byte, blockfile.BytesPerBlock)
	}

	for _, option := range options {
		option(pool)
	}
	if pool.collector == nil {
		pool.collector = stats.NewCollector()
	}
	if pool.logger == nil {
		pool.logger = log.GetDefaultLogger().WithField("component", "bufferpool")
	}

	return pool, nil
}

// GetBlock returns the in-memory image of block blockID, loading it from
// disk if it is not resident. The returned slice is valid only until the
// next pool operation.
func (p *Pool) GetBlock(blockID int) ([]byte, error) {
	if p.closed {
		return nil, ErrPoolClosed
	}
	p.collector.TrackOperation(stats.OpGetBlock)

	if idx := p.findSlot(blockID); idx != -1 {
		p.cacheHits++
		p.collector.TrackOperation(stats.OpCacheHit)
		p.touch(idx)
		return p.slots[idx].bytes, nil
	}

	idx := p.victimIndex()
	victim := &p.slots[idx]
	if victim.dirty {
		if err := p.writeBack(idx); err != nil {
			return nil, err
		}
	}

	p.logger.Debug("cache miss, loading block %d into slot %d (evicting %d)",
		blockID, idx, victim.blockID)

	if err := p.file.ReadBlock(blockID, victim.bytes); err != nil {
		// A failed read may have clobbered the slot bytes, so the slot
		// cannot keep claiming its previous block.
		victim.blockID = emptyBlock
		victim.dirty = false
		return nil, err
	}

	victim.blockID = blockID
	victim.dirty = false
	p.touch(idx)
	p.diskReads++
	p.collector.TrackOperation(stats.OpDiskRead)

	return victim.bytes, nil
}

// MarkDirty marks block blockID dirty, loading it first if it is not
// resident. After MarkDirty returns the block is resident and dirty.
func (p *Pool) MarkDirty(blockID int) error {
	if p.closed {
		return ErrPoolClosed
	}

	idx := p.findSlot(blockID)
	if idx == -1 {
		if _, err := p.GetBlock(blockID); err != nil {
			return err
		}
		idx = p.findSlot(blockID)
		if idx == -1 {
			return fmt.Errorf("failed to load block %d for marking dirty", blockID)
		}
	}
	p.slots[idx].dirty = true
	return nil
}

// FlushAll writes every resident dirty slot back to disk.
func (p *Pool) FlushAll() error {
	if p.closed {
		return ErrPoolClosed
	}

	flushed := 0
	for i := range p.slots {
		if p.slots[i].blockID != emptyBlock && p.slots[i].dirty {
			if err := p.writeBack(i); err != nil {
				return err
			}
			flushed++
		}
	}

	p.collector.TrackOperation(stats.OpFlush)
	p.logger.Debug("flushed %d dirty buffers", flushed)
	return nil
}

// Close flushes all dirty slots and releases the backing file.
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	if err := p.FlushAll(); err != nil {
		return err
	}
	p.closed = true
	return p.file.Close()
}

// CacheHits returns the number of GetBlock calls satisfied from memory.
func (p *Pool) CacheHits() uint64 {
	return p.cacheHits
}

// DiskReads returns the number of block loads from disk.
func (p *Pool) DiskReads() uint64 {
	return p.diskReads
}

// DiskWrites returns the number of block write-backs, flushes included.
func (p *Pool) DiskWrites() uint64 {
	return p.diskWrites
}

// NumBuffers returns the pool capacity in slots.
func (p *Pool) NumBuffers() int {
	return len(p.slots)
}

// findSlot returns the index of the slot holding blockID, or -1.
func (p *Pool) findSlot(blockID int) int {
	for i := range p.slots {
		if p.slots[i].blockID == blockID {
			return i
		}
	}
	return -1
}

// victimIndex picks the slot to evict: the lowest-index empty slot if any
// exists, else the slot with the smallest LRU stamp. Ties resolve to the
// lowest index because only strictly older stamps displace the candidate.
func (p *Pool) victimIndex() int {
	for i := range p.slots {
		if p.slots[i].blockID == emptyBlock {
			return i
		}
	}

	victim := 0
	oldest := p.slots[0].stamp
	for i := 1; i < len(p.slots); i++ {
		if p.slots[i].stamp < oldest {
			oldest = p.slots[i].stamp
			victim = i
		}
	}
	return victim
}

// touch assigns a fresh LRU stamp to the slot at idx.
func (p *Pool) touch(idx int) {
	p.clock++
	p.slots[idx].stamp = p.clock
}

// writeBack persists the slot at idx and clears its dirty flag. A failed
// write leaves the slot dirty. Empty slots are skipped.
func (p *Pool) writeBack(idx int) error {
	s := &p.slots[idx]
	if s.blockID == emptyBlock {
		return nil
	}
	if err := p.file.WriteBlock(s.blockID, s.bytes); err != nil {
		return err
	}
	s.dirty = false
	p.diskWrites++
	p.collector.TrackOperation(stats.OpDiskWrite)
	return nil
}
