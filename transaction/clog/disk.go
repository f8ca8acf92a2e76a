package clog

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	// pageSize is the unit of clog/subtrans file io
	pageSize = 8192
)

// pageID locates one page within a file
type pageID int64

const invalidPageID pageID = -1

// pagePtr points at one in-memory page image
type pagePtr = *[pageSize]byte

func newPagePtr() pagePtr {
	return &[pageSize]byte{}
}

// diskManager manages one page-structured file (the clog bitmap or the
// subtrans parent map)
type diskManager struct {
	fd *os.File
}

// newDiskManager opens (or creates) the file at path
func newDiskManager(path string) (*diskManager, error) {
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "os.OpenFile failed")
	}
	return &diskManager{fd: fd}, nil
}

// writePage writes the page out to disk. durability needs a separate sync().
func (dm *diskManager) writePage(pid pageID, p pagePtr) error {
	n, err := dm.fd.WriteAt(p[:], int64(pid)*pageSize)
	if err != nil {
		return errors.Wrap(err, "WriteAt failed")
	}
	if n != pageSize {
		return errors.Errorf("WriteAt wrote %d bytes, want %d", n, pageSize)
	}
	return nil
}

// readPage reads the page from disk into p.
// a page beyond the end of the file reads back zero-filled: for the clog that
// means in-progress, for subtrans an unset parent, which is exactly the state
// an unwritten entry must have.
func (dm *diskManager) readPage(pid pageID, p pagePtr) error {
	n, err := dm.fd.ReadAt(p[:], int64(pid)*pageSize)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			for i := n; i < pageSize; i++ {
				p[i] = 0
			}
			return nil
		}
		return errors.Wrap(err, "ReadAt failed")
	}
	return nil
}

// sync flushes the file to stable storage
func (dm *diskManager) sync() error {
	if err := dm.fd.Sync(); err != nil {
		return errors.Wrap(err, "fd.Sync failed")
	}
	return nil
}

// close closes the file
func (dm *diskManager) close() error {
	if err := dm.fd.Close(); err != nil {
		return errors.Wrap(err, "fd.Close failed")
	}
	return nil
}
