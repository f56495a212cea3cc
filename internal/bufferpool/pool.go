package bufferpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ssaxena10/Buffer-Manager/internal/pagefile"
)

// PageID identifies a page in the pool's page file. Valid ids are >= 0.
type PageID int32

// NoPage marks a frame that holds no page.
const NoPage PageID = -1

var (
	// ErrNoFreeFrame is returned when no unpinned frame is available for
	// replacement.
	ErrNoFreeFrame = errors.New("bufferpool: no free frame available (all pinned)")

	// ErrPoolHasPinnedPages is returned by Shutdown while clients still hold
	// pins.
	ErrPoolHasPinnedPages = errors.New("bufferpool: pool has pinned pages")

	ErrNotPinned  = errors.New("bufferpool: page is not pinned")
	ErrNotFound   = errors.New("bufferpool: page not resident in pool")
	ErrPoolClosed = errors.New("bufferpool: pool is shut down")
)

// Strategy selects the page replacement policy.
type Strategy int

const (
	FIFO Strategy = iota
	LRU
	LRUK
	LFU
	Clock
)

func (s Strategy) String() string {
	switch s {
	case FIFO:
		return "fifo"
	case LRU:
		return "lru"
	case LRUK:
		return "lru_k"
	case LFU:
		return "lfu"
	case Clock:
		return "clock"
	default:
		return "unknown"
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "lru":
		return LRU, nil
	case "lru_k":
		return LRUK, nil
	case "lfu":
		return LFU, nil
	case "clock":
		return Clock, nil
	default:
		return 0, fmt.Errorf("invalid replacement strategy: %s", s)
	}
}

// PageHandle is handed to clients on Pin. Data aliases the frame's buffer for
// as long as the client holds the pin; the client may read and write those
// bytes.
type PageHandle struct {
	PageNum PageID
	Data    []byte
}

// Frame holds a single page and its metadata inside the buffer pool.
type Frame struct {
	PageNum PageID
	Buf     []byte
	Dirty   bool
	Pin     int32
}

// Pool is a fixed-size in-memory cache of pages backed by a single page file.
// All operations serialize behind one mutex; pin decisions are atomic.
type Pool struct {
	strategy Strategy

	mu     sync.Mutex
	file   *pagefile.File
	frames []*Frame       // len == numFrames, nil == never used
	table  map[PageID]int // resident page -> frame index
	repl   replacer

	numRead  int
	numWrite int
}

// NewPool opens fileName (which must already exist, see pagefile.Create) and
// prepares numFrames empty frames. k is the access-history depth for LRUK and
// is ignored by every other strategy. No I/O beyond the open is performed.
func NewPool(fileName string, numFrames int, strategy Strategy, k int) (*Pool, error) {
	if numFrames < 1 {
		return nil, fmt.Errorf("bufferpool: numFrames must be >= 1, got %d", numFrames)
	}
	f, err := pagefile.Open(fileName)
	if err != nil {
		return nil, err
	}
	return &Pool{
		strategy: strategy,
		file:     f,
		frames:   make([]*Frame, numFrames),
		table:    make(map[PageID]int, numFrames),
		repl:     newReplacer(strategy, numFrames, k),
	}, nil
}

func (p *Pool) Strategy() Strategy { return p.strategy }

func (p *Pool) NumFrames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Pin returns a handle on pageNum, loading the page from disk if it is not
// resident. A miss with every frame pinned fails with ErrNoFreeFrame.
func (p *Pool) Pin(pageNum PageID) (*PageHandle, error) {
	if pageNum < 0 {
		return nil, fmt.Errorf("bufferpool: invalid page number %d", pageNum)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil, ErrPoolClosed
	}

	// 1) Hit: the page is already resident.
	if idx, ok := p.table[pageNum]; ok {
		f := p.frames[idx]
		wasZero := f.Pin == 0
		f.Pin++
		p.repl.RecordAccess(idx)
		if wasZero {
			p.repl.SetEvictable(idx, false)
		}
		slog.Debug("bufferpool: pin hit", "pageNum", pageNum, "frame", idx, "pin", f.Pin)
		return &PageHandle{PageNum: pageNum, Data: f.Buf}, nil
	}

	// 2) Miss with a free slot (never used, or reclaimed after a failed load).
	if idx := p.freeFrame(); idx != -1 {
		return p.load(idx, pageNum)
	}

	// 3) Miss with a full pool: evict.
	idx, ok := p.repl.Evict()
	if !ok {
		return nil, ErrNoFreeFrame
	}
	victim := p.frames[idx]
	slog.Debug("bufferpool: evicting",
		"victim", victim.PageNum, "frame", idx, "dirty", victim.Dirty)

	if victim.Dirty {
		if err := p.file.WriteBlock(int(victim.PageNum), victim.Buf); err != nil {
			// The victim stays resident and dirty; the new page is not loaded.
			return nil, err
		}
		victim.Dirty = false
		p.numWrite++
	}
	delete(p.table, victim.PageNum)
	return p.load(idx, pageNum)
}

// freeFrame returns the lowest-index frame that holds no page, or -1.
func (p *Pool) freeFrame() int {
	for i, f := range p.frames {
		if f == nil || f.PageNum == NoPage {
			return i
		}
	}
	return -1
}

// load reads pageNum into frame idx and pins it. The file is extended first
// so clients can pin a page past the current end to write a fresh one. On
// failure the frame is left clean and unmapped so a later pin can reuse it.
func (p *Pool) load(idx int, pageNum PageID) (*PageHandle, error) {
	f := p.frames[idx]
	if f == nil {
		f = &Frame{Buf: make([]byte, pagefile.PageSize)}
		p.frames[idx] = f
	}
	f.PageNum = NoPage
	f.Dirty = false
	f.Pin = 0

	if err := p.file.EnsureCapacity(int(pageNum) + 1); err != nil {
		p.repl.Remove(idx)
		return nil, err
	}
	if err := p.file.ReadBlock(int(pageNum), f.Buf); err != nil {
		p.repl.Remove(idx)
		return nil, err
	}
	p.numRead++

	f.PageNum = pageNum
	f.Pin = 1
	p.table[pageNum] = idx
	p.repl.RecordLoad(idx)
	p.repl.SetEvictable(idx, false)

	slog.Debug("bufferpool: loaded page", "pageNum", pageNum, "frame", idx)
	return &PageHandle{PageNum: pageNum, Data: f.Buf}, nil
}

// Unpin releases one pin on the handle's page.
func (p *Pool) Unpin(h *PageHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPoolClosed
	}

	idx, ok := p.table[h.PageNum]
	if !ok {
		return ErrNotPinned
	}
	f := p.frames[idx]
	if f.Pin <= 0 {
		return ErrNotPinned
	}
	f.Pin--
	if f.Pin == 0 {
		p.repl.SetEvictable(idx, true)
	}
	return nil
}

// MarkDirty records that the client has modified the handle's page.
func (p *Pool) MarkDirty(h *PageHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPoolClosed
	}

	idx, ok := p.table[h.PageNum]
	if !ok {
		return ErrNotFound
	}
	p.frames[idx].Dirty = true
	return nil
}

// ForcePage writes the handle's page to disk immediately and marks its frame
// clean, regardless of pin count.
func (p *Pool) ForcePage(h *PageHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPoolClosed
	}

	idx, ok := p.table[h.PageNum]
	if !ok {
		return ErrNotFound
	}
	f := p.frames[idx]
	if err := p.file.WriteBlock(int(f.PageNum), f.Buf); err != nil {
		return err
	}
	f.Dirty = false
	p.numWrite++
	return nil
}

// FlushAll writes every dirty unpinned frame back to disk. Pinned dirty
// frames are skipped; they are flushed when their last pin is released and a
// later flush or eviction reaches them.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPoolClosed
	}
	return p.flushLocked()
}

func (p *Pool) flushLocked() error {
	for idx, f := range p.frames {
		if f == nil || f.PageNum == NoPage || !f.Dirty || f.Pin != 0 {
			continue
		}
		if err := p.file.WriteBlock(int(f.PageNum), f.Buf); err != nil {
			return err
		}
		f.Dirty = false
		p.numWrite++
		slog.Debug("bufferpool: flushed frame", "pageNum", f.PageNum, "frame", idx)
	}
	return nil
}

// Shutdown flushes all dirty frames, closes the page file and releases the
// pool's buffers. It fails without touching anything while any frame is
// still pinned, and the pool stays usable after such a failure.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPoolClosed
	}

	for _, f := range p.frames {
		if f != nil && f.Pin > 0 {
			return ErrPoolHasPinnedPages
		}
	}
	if err := p.flushLocked(); err != nil {
		return err
	}

	err := p.file.Close()
	p.file = nil
	p.frames = nil
	p.table = nil
	return err
}
