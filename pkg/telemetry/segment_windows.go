//go:build windows

package telemetry

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const DefaultSegmentName = `Local\acpmf_graphics`

var (
	kernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMapping = kernel32.NewProc("OpenFileMappingW")
)

type mappedSegment struct {
	handle windows.Handle
	addr   uintptr
	data   []byte
}

// OpenSegment maps the named file mapping created by the simulator
func OpenSegment(name string, size int) (Segment, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, _, callErr := procOpenFileMapping.Call(
		uintptr(windows.FILE_MAP_READ),
		0,
		uintptr(unsafe.Pointer(namePtr)))
	if h == 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrSegmentUnavailable, name, callErr)
	}
	handle := windows.Handle(h)
	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(handle)
		return nil, fmt.Errorf("%w: map %s: %v", ErrSegmentUnavailable, name, err)
	}
	return &mappedSegment{
		handle: handle,
		addr:   addr,
		data:   unsafe.Slice((*byte)(unsafe.Pointer(addr)), size),
	}, nil
}

func (s *mappedSegment) Window() []byte {
	return s.data
}

func (s *mappedSegment) Close() error {
	if err := windows.UnmapViewOfFile(s.addr); err != nil {
		_ = windows.CloseHandle(s.handle)
		return err
	}
	return windows.CloseHandle(s.handle)
}
