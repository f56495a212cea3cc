package pagefile

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// PageSize is the fixed unit of I/O shared by the store and the buffer pool.
const PageSize = 4096

const FileMode0644 = 0o644

var (
	ErrFileNotFound    = errors.New("pagefile: file not found")
	ErrHandleNotInit   = errors.New("pagefile: file handle not initialized")
	ErrNonExistingPage = errors.New("pagefile: page does not exist")
	ErrWriteFailed     = errors.New("pagefile: write failed")
)

// File is an open page file: a flat file whose length is a multiple of
// PageSize. Page i occupies bytes [i*PageSize, (i+1)*PageSize). Freshly
// appended pages are all-zero.
type File struct {
	name string

	mu         sync.Mutex
	f          *os.File
	totalPages int
	curPage    int // cursor used by the *CurrentBlock/NextBlock helpers
}

// Create creates (or truncates) a page file containing a single zeroed page.
func Create(name string) error {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, FileMode0644)
	if err != nil {
		return fmt.Errorf("create page file: %w", err)
	}
	if _, err := f.Write(make([]byte, PageSize)); err != nil {
		_ = f.Close()
		return ErrWriteFailed
	}
	return f.Close()
}

// Destroy removes the page file from disk.
func Destroy(name string) error {
	if err := os.Remove(name); err != nil {
		return ErrFileNotFound
	}
	return nil
}

// Open opens an existing page file for read+write. The file must already
// exist; use Create first for a fresh one.
func Open(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR, FileMode0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open page file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat page file: %w", err)
	}

	return &File{
		name:       name,
		f:          f,
		totalPages: int(info.Size()) / PageSize,
	}, nil
}

// Close closes the underlying file. Further I/O on the handle fails with
// ErrHandleNotInit.
func (pf *File) Close() error {
	if pf == nil {
		return ErrHandleNotInit
	}
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.f == nil {
		return ErrHandleNotInit
	}
	err := pf.f.Close()
	pf.f = nil
	if err != nil {
		return fmt.Errorf("close page file: %w", err)
	}
	return nil
}

func (pf *File) Name() string { return pf.name }

// TotalPages returns the number of pages currently in the file.
func (pf *File) TotalPages() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.totalPages
}

// BlockPos returns the page number of the last block read or written.
func (pf *File) BlockPos() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.curPage
}

// ReadBlock reads exactly PageSize bytes of page pageNum into dst. A page
// number at or past the end of the file is out of range.
func (pf *File) ReadBlock(pageNum int, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("pagefile: dst must be exactly %d bytes", PageSize)
	}
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.f == nil {
		return ErrHandleNotInit
	}
	if pageNum < 0 || pageNum >= pf.totalPages {
		return ErrNonExistingPage
	}

	n, err := pf.f.ReadAt(dst, int64(pageNum)*PageSize)
	if err != nil || n != PageSize {
		return ErrNonExistingPage
	}
	pf.curPage = pageNum
	return nil
}

// WriteBlock writes exactly PageSize bytes of src to page pageNum, extending
// the file with zero pages first if pageNum is past the current end.
func (pf *File) WriteBlock(pageNum int, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("pagefile: src must be exactly %d bytes", PageSize)
	}
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.f == nil {
		return ErrHandleNotInit
	}
	if pageNum < 0 {
		return ErrWriteFailed
	}
	if err := pf.ensureCapacityLocked(pageNum + 1); err != nil {
		return err
	}

	n, err := pf.f.WriteAt(src, int64(pageNum)*PageSize)
	if err != nil || n != PageSize {
		return ErrWriteFailed
	}
	pf.curPage = pageNum
	return nil
}

// AppendEmptyBlock grows the file by one zeroed page.
func (pf *File) AppendEmptyBlock() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.f == nil {
		return ErrHandleNotInit
	}
	return pf.appendEmptyBlockLocked()
}

func (pf *File) appendEmptyBlockLocked() error {
	zero := make([]byte, PageSize)
	n, err := pf.f.WriteAt(zero, int64(pf.totalPages)*PageSize)
	if err != nil || n != PageSize {
		return ErrWriteFailed
	}
	pf.totalPages++
	return nil
}

// EnsureCapacity extends the file to at least numberOfPages pages by
// appending zero pages.
func (pf *File) EnsureCapacity(numberOfPages int) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.f == nil {
		return ErrHandleNotInit
	}
	return pf.ensureCapacityLocked(numberOfPages)
}

func (pf *File) ensureCapacityLocked(numberOfPages int) error {
	for pf.totalPages < numberOfPages {
		if err := pf.appendEmptyBlockLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Positional helpers relative to the cursor maintained by ReadBlock and
// WriteBlock.

func (pf *File) ReadFirstBlock(dst []byte) error {
	return pf.ReadBlock(0, dst)
}

func (pf *File) ReadPreviousBlock(dst []byte) error {
	return pf.ReadBlock(pf.BlockPos()-1, dst)
}

func (pf *File) ReadCurrentBlock(dst []byte) error {
	return pf.ReadBlock(pf.BlockPos(), dst)
}

func (pf *File) ReadNextBlock(dst []byte) error {
	return pf.ReadBlock(pf.BlockPos()+1, dst)
}

func (pf *File) ReadLastBlock(dst []byte) error {
	return pf.ReadBlock(pf.TotalPages()-1, dst)
}

func (pf *File) WriteCurrentBlock(src []byte) error {
	return pf.WriteBlock(pf.BlockPos(), src)
}
