package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// pinUnpin pins pageNum and releases it immediately, asserting success.
func pinUnpin(t *testing.T, pool *Pool, pageNum PageID) {
	t.Helper()
	h, err := pool.Pin(pageNum)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(h))
}

func TestFIFOReplacement(t *testing.T) {
	path := newTestFile(t)
	createDummyPages(t, path, 100)

	pool, err := NewPool(path, 3, FIFO, 0)
	require.NoError(t, err)

	// Read pages linearly with direct unpin and no modifications: the first
	// three fill the pool, the rest replace in load order.
	linear := []string{
		"[0 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[-1 0]",
		"[0 0],[1 0],[2 0]",
		"[3 0],[1 0],[2 0]",
		"[3 0],[4 0],[2 0]",
	}
	for i, want := range linear {
		pinUnpin(t, pool, PageID(i))
		require.Equal(t, want, pool.Content())
	}

	// Hold a pin on page 4 so it cannot be evicted.
	h4, err := pool.Pin(4)
	require.NoError(t, err)
	require.Equal(t, "[3 0],[4 1],[2 0]", pool.Content())

	// Read pages and mark them dirty.
	dirty := []struct {
		pageNum PageID
		want    string
	}{
		{5, "[3 0],[4 1],[5x0]"},
		{6, "[6x0],[4 1],[5x0]"},
		{0, "[6x0],[4 1],[0x0]"},
	}
	for _, step := range dirty {
		h, err := pool.Pin(step.pageNum)
		require.NoError(t, err)
		require.NoError(t, pool.MarkDirty(h))
		require.NoError(t, pool.Unpin(h))
		require.Equal(t, step.want, pool.Content())
	}

	require.NoError(t, pool.Unpin(h4))
	require.Equal(t, "[6x0],[4 0],[0x0]", pool.Content())

	require.NoError(t, pool.FlushAll())
	require.Equal(t, "[6 0],[4 0],[0 0]", pool.Content())

	// Evicting dirty page 5 cost one write; the flush wrote pages 6 and 0.
	require.Equal(t, 3, pool.NumWriteIO())
	require.Equal(t, 8, pool.NumReadIO())

	require.NoError(t, pool.Shutdown())
}

func TestLRUReplacement(t *testing.T) {
	path := newTestFile(t)
	createDummyPages(t, path, 100)

	pool, err := NewPool(path, 5, LRU, 0)
	require.NoError(t, err)

	// Read the first five pages linearly.
	fill := []string{
		"[0 0],[-1 0],[-1 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[-1 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[2 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[2 0],[3 0],[-1 0]",
		"[0 0],[1 0],[2 0],[3 0],[4 0]",
	}
	for i, want := range fill {
		pinUnpin(t, pool, PageID(i))
		require.Equal(t, want, pool.Content())
	}

	// Touch resident pages to fix an LRU order without changing contents.
	for _, pageNum := range []PageID{3, 4, 0, 2, 1} {
		pinUnpin(t, pool, pageNum)
		require.Equal(t, "[0 0],[1 0],[2 0],[3 0],[4 0]", pool.Content())
	}

	// New pages replace the least recently used frame each time.
	evictions := []string{
		"[0 0],[1 0],[2 0],[5 0],[4 0]",
		"[0 0],[1 0],[2 0],[5 0],[6 0]",
		"[7 0],[1 0],[2 0],[5 0],[6 0]",
		"[7 0],[1 0],[8 0],[5 0],[6 0]",
		"[7 0],[9 0],[8 0],[5 0],[6 0]",
	}
	for i, want := range evictions {
		pinUnpin(t, pool, PageID(5+i))
		require.Equal(t, want, pool.Content())
	}

	require.Equal(t, 0, pool.NumWriteIO())
	require.Equal(t, 10, pool.NumReadIO())

	require.NoError(t, pool.Shutdown())
}

func TestClockReplacement(t *testing.T) {
	path := newTestFile(t)
	createDummyPages(t, path, 100)

	pool, err := NewPool(path, 3, Clock, 0)
	require.NoError(t, err)

	// Fill the pool, then keep requesting. Page 3 finds every reference bit
	// set, so the first sweep clears them all and the second revolution
	// evicts at the hand; page 4 then takes the first frame past the hand,
	// whose bit that sweep already cleared.
	linear := []string{
		"[0 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[-1 0]",
		"[0 0],[1 0],[2 0]",
		"[0 0],[1 0],[3 0]",
		"[4 0],[1 0],[3 0]",
	}
	for i, want := range linear {
		pinUnpin(t, pool, PageID(i))
		require.Equal(t, want, pool.Content())
	}

	// Re-pin 4 and 3; both get their reference bit back and the hand parks
	// on page 3's frame.
	_, err = pool.Pin(4)
	require.NoError(t, err)
	_, err = pool.Pin(3)
	require.NoError(t, err)
	require.Equal(t, "[4 1],[1 0],[3 1]", pool.Content())

	// The sweep passes the pinned frames, clearing their bits, and takes
	// the only unpinned frame.
	_, err = pool.Pin(5)
	require.NoError(t, err)
	require.Equal(t, "[4 1],[5 1],[3 1]", pool.Content())

	for _, pageNum := range []PageID{3, 4, 5} {
		require.NoError(t, pool.Unpin(&PageHandle{PageNum: pageNum}))
	}
	require.Equal(t, "[4 0],[5 0],[3 0]", pool.Content())

	// Page 5 still holds its reference bit, so the sweep gives it a second
	// chance and evicts page 3.
	h6, err := pool.Pin(6)
	require.NoError(t, err)
	require.Equal(t, "[4 0],[5 0],[6 1]", pool.Content())
	require.NoError(t, pool.Unpin(h6))

	require.NoError(t, pool.FlushAll())
	require.Equal(t, 0, pool.NumWriteIO())
	require.Equal(t, 7, pool.NumReadIO())

	require.NoError(t, pool.Shutdown())
}

func TestLFUReplacement(t *testing.T) {
	path := newTestFile(t)
	createDummyPages(t, path, 100)

	pool, err := NewPool(path, 5, LFU, 0)
	require.NoError(t, err)

	fill := []string{
		"[0 0],[-1 0],[-1 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[-1 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[2 0],[-1 0],[-1 0]",
		"[0 0],[1 0],[2 0],[3 0],[-1 0]",
		"[0 0],[1 0],[2 0],[3 0],[4 0]",
	}
	for i, want := range fill {
		pinUnpin(t, pool, PageID(i))
		require.Equal(t, want, pool.Content())
	}

	// Raise use counts without changing the pool contents: page 1 five
	// times, 2 four times, 0 three times, 4 twice, 3 once.
	frequencies := []PageID{
		1, 1, 1, 1, 1,
		2, 2, 2, 2,
		0, 0, 0,
		4, 4,
		3,
	}
	for _, pageNum := range frequencies {
		pinUnpin(t, pool, pageNum)
		require.Equal(t, "[0 0],[1 0],[2 0],[3 0],[4 0]", pool.Content())
	}

	// New pages, kept pinned, replace the least frequently used frames.
	evictions := []string{
		"[0 0],[1 0],[2 0],[5 1],[4 0]",
		"[0 0],[1 0],[2 0],[5 1],[6 1]",
		"[7 1],[1 0],[2 0],[5 1],[6 1]",
		"[7 1],[1 0],[8 1],[5 1],[6 1]",
		"[7 1],[9 1],[8 1],[5 1],[6 1]",
	}
	for i, want := range evictions {
		_, err := pool.Pin(PageID(5 + i))
		require.NoError(t, err)
		require.Equal(t, want, pool.Content())
	}

	unpins := []string{
		"[7 1],[9 1],[8 1],[5 0],[6 1]",
		"[7 1],[9 1],[8 1],[5 0],[6 0]",
		"[7 0],[9 1],[8 1],[5 0],[6 0]",
		"[7 0],[9 1],[8 0],[5 0],[6 0]",
		"[7 0],[9 0],[8 0],[5 0],[6 0]",
	}
	for i, want := range unpins {
		require.NoError(t, pool.Unpin(&PageHandle{PageNum: PageID(5 + i)}))
		require.Equal(t, want, pool.Content())
	}

	require.NoError(t, pool.FlushAll())
	require.Equal(t, 0, pool.NumWriteIO())
	require.Equal(t, 10, pool.NumReadIO())

	require.NoError(t, pool.Shutdown())
}

func TestLRUKReplacement(t *testing.T) {
	path := newTestFile(t)
	createDummyPages(t, path, 100)

	pool, err := NewPool(path, 3, LRUK, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		pinUnpin(t, pool, PageID(i))
	}
	require.Equal(t, "[0 0],[1 0],[2 0]", pool.Content())

	// Give pages 1 and 2 a second access; page 0 has fewer than K accesses
	// and is the preferred victim.
	pinUnpin(t, pool, 1)
	pinUnpin(t, pool, 2)

	pinUnpin(t, pool, 3)
	require.Equal(t, "[3 0],[1 0],[2 0]", pool.Content())

	// Page 3 has itself been accessed only once, so it goes next, ahead of
	// the twice-used pages.
	pinUnpin(t, pool, 4)
	require.Equal(t, "[4 0],[1 0],[2 0]", pool.Content())

	// A second access to page 4 fills its history; now the victim is the
	// frame with the oldest K-th most recent access, page 1 before page 2.
	pinUnpin(t, pool, 4)
	pinUnpin(t, pool, 5)
	require.Equal(t, "[4 0],[5 0],[2 0]", pool.Content())

	// Page 5 has only one access on record, so it is preferred over the
	// full-history frames when page 6 arrives.
	pinUnpin(t, pool, 6)
	require.Equal(t, "[4 0],[6 0],[2 0]", pool.Content())

	require.Equal(t, 0, pool.NumWriteIO())
	require.Equal(t, 7, pool.NumReadIO())

	require.NoError(t, pool.Shutdown())
}

func TestLRUKDepthOne(t *testing.T) {
	path := newTestFile(t)
	createDummyPages(t, path, 10)

	// K=1 degenerates to plain LRU ordering over the last access.
	pool, err := NewPool(path, 2, LRUK, 1)
	require.NoError(t, err)

	pinUnpin(t, pool, 0)
	pinUnpin(t, pool, 1)
	pinUnpin(t, pool, 0)

	// Page 1 is the least recently used.
	pinUnpin(t, pool, 2)
	require.Equal(t, "[0 0],[2 0]", pool.Content())

	require.NoError(t, pool.Shutdown())
}
