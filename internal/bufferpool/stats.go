package bufferpool

import (
	"fmt"
	"strings"
)

// FrameContents returns the resident page id of every frame in index order,
// NoPage for empty frames.
func (p *Pool) FrameContents() []PageID {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PageID, len(p.frames))
	for i, f := range p.frames {
		if f == nil {
			out[i] = NoPage
		} else {
			out[i] = f.PageNum
		}
	}
	return out
}

// DirtyFlags returns the dirty bit of every frame in index order; empty
// frames report false.
func (p *Pool) DirtyFlags() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]bool, len(p.frames))
	for i, f := range p.frames {
		if f != nil {
			out[i] = f.Dirty
		}
	}
	return out
}

// FixCounts returns the pin count of every frame in index order; empty
// frames report 0.
func (p *Pool) FixCounts() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, len(p.frames))
	for i, f := range p.frames {
		if f != nil {
			out[i] = int(f.Pin)
		}
	}
	return out
}

// NumReadIO reports the number of pages read from disk since init.
func (p *Pool) NumReadIO() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numRead
}

// NumWriteIO reports the number of pages written to disk since init.
func (p *Pool) NumWriteIO() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numWrite
}

// Content renders the pool in the harness format: one "[page pin]" cell per
// frame in index order, comma separated, the space replaced by 'x' when the
// frame is dirty, e.g. "[3 0],[4 1],[5x0]".
func (p *Pool) Content() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	for i, f := range p.frames {
		if i > 0 {
			b.WriteByte(',')
		}
		pageNum, pin, dirty := NoPage, int32(0), false
		if f != nil {
			pageNum, pin, dirty = f.PageNum, f.Pin, f.Dirty
		}
		sep := byte(' ')
		if dirty {
			sep = 'x'
		}
		fmt.Fprintf(&b, "[%d%c%d]", pageNum, sep, pin)
	}
	return b.String()
}
