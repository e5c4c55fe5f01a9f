package backend

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
)

// pwrite is swapped out by tests
var pwrite = unix.Pwrite

// File is a drive image kept in a regular file. The file is locked with an
// exclusive advisory lock for as long as it is open, so two simulators
// cannot drive the same image.
type File struct {
	path string
	size int64

	mu     sync.RWMutex
	fd     int
	closed bool

	reads   atomic.Uint64
	writes  atomic.Uint64
	flushes atomic.Uint64
}

// OpenFile opens or creates the image at path and grows it to size bytes.
// An existing image larger than size keeps its length; size only ever
// extends it.
func OpenFile(path string, size int64) (*File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if st.Size < size {
		if err := unix.Ftruncate(fd, size); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("resize %s: %w", path, err)
		}
		st.Size = size
	}

	return &File{path: path, size: st.Size, fd: fd}, nil
}

// ReadAt implements the Storage interface. Reads past the end are short.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return 0, ErrClosed
	}
	f.reads.Add(1)

	if off >= f.size {
		return 0, nil
	}
	if avail := f.size - off; int64(len(p)) > avail {
		p = p[:avail]
	}

	total := 0
	for total < len(p) {
		n, err := unix.Pread(f.fd, p[total:], off+int64(total))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("pread %s: %w", f.path, err)
		}
		if n == 0 {
			break
		}
		total += n
	}
	return total, nil
}

// WriteAt implements the Storage interface. Writes running past the end
// are truncated.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return 0, ErrClosed
	}
	if off >= f.size {
		return 0, ErrOutOfRange
	}
	f.writes.Add(1)

	if avail := f.size - off; int64(len(p)) > avail {
		p = p[:avail]
	}

	total := 0
	for total < len(p) {
		n, err := pwrite(f.fd, p[total:], off+int64(total))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("pwrite %s: %w", f.path, err)
		}
		if n == 0 {
			return total, fmt.Errorf("pwrite %s at %d: %w", f.path, off+int64(total), io.ErrShortWrite)
		}
		total += n
	}
	return total, nil
}

// Size implements the Storage interface
func (f *File) Size() int64 {
	return f.size
}

// Flush implements the Storage interface
func (f *File) Flush() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return ErrClosed
	}
	f.flushes.Add(1)
	if err := unix.Fsync(f.fd); err != nil {
		return fmt.Errorf("fsync %s: %w", f.path, err)
	}
	return nil
}

// Close syncs, unlocks and closes the image
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	syncErr := unix.Fsync(f.fd)
	unix.Flock(f.fd, unix.LOCK_UN)
	if err := unix.Close(f.fd); err != nil {
		return fmt.Errorf("close %s: %w", f.path, err)
	}
	if syncErr != nil {
		return fmt.Errorf("fsync %s: %w", f.path, syncErr)
	}
	return nil
}

// Path returns the image path
func (f *File) Path() string {
	return f.path
}

// Stats implements the StatStorage interface
func (f *File) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":    "file",
		"path":    f.path,
		"size":    f.size,
		"reads":   f.reads.Load(),
		"writes":  f.writes.Load(),
		"flushes": f.flushes.Load(),
	}
}

var (
	_ interfaces.Storage     = (*File)(nil)
	_ interfaces.StatStorage = (*File)(nil)
)
