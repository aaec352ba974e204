//go:build unix

package telemetry

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultSegmentName is resolved below /dev/shm
const DefaultSegmentName = "acpmf_graphics"

const shmDir = "/dev/shm"

// fileSegment reads the segment with pread on every Window call.
// A truncated backing file just yields a short window.
type fileSegment struct {
	fd   int
	path string
	stat unix.Stat_t
	buf  []byte
}

// OpenSegment opens the segment read-only. Relative names are looked up in /dev/shm.
func OpenSegment(name string, size int) (Segment, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(shmDir, name)
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("%w: %s", ErrSegmentUnavailable, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSegmentUnavailable, path, err)
	}
	seg := &fileSegment{fd: fd, path: path, buf: make([]byte, size)}
	if err := unix.Fstat(fd, &seg.stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %s: %v", ErrSegmentUnavailable, path, err)
	}
	return seg, nil
}

// Stale reports whether path was removed or now refers to another file.
// This happens when the simulator restarts and recreates the segment.
func (s *fileSegment) Stale() bool {
	var cur unix.Stat_t
	if err := unix.Stat(s.path, &cur); err != nil {
		return true
	}
	return cur.Dev != s.stat.Dev || cur.Ino != s.stat.Ino
}

func (s *fileSegment) Window() []byte {
	n, err := unix.Pread(s.fd, s.buf, 0)
	if err != nil || n < 0 {
		return nil
	}
	return s.buf[:n]
}

func (s *fileSegment) Close() error {
	return unix.Close(s.fd)
}
