//go:build windows

// lock_windows.go implements file locking on Windows systems.
package vfs

import (
	"io"
	"os"
	"syscall"
)

// fileLock implements file locking on Windows systems.
type fileLock struct {
	f *os.File
}

// lockFile acquires an exclusive lock on the named file by opening it
// with a share mode of 0, which makes every other open of the file fail
// while this handle is held.
func lockFile(name string) (io.Closer, error) {
	p, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := syscall.CreateFile(p, syscall.GENERIC_READ|syscall.GENERIC_WRITE, 0, nil,
		syscall.OPEN_ALWAYS, syscall.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return nil, err
	}
	return &fileLock{f: os.NewFile(uintptr(h), name)}, nil
}

func (l *fileLock) Close() error {
	return l.f.Close()
}
