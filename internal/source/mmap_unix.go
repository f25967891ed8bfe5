//go:build linux || darwin || freebsd || netbsd || openbsd

package source

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/example/stationstats/internal/fault"
)

// MapFile maps path read-only into memory.
func MapFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.New(fault.KindInput, "open", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fault.New(fault.KindInput, "stat", err)
	}
	size := fi.Size()
	if size == 0 {
		// mmap rejects empty mappings.
		return fromBytes(path, []byte{}, nil), nil
	}
	if size > math.MaxInt {
		return nil, fault.Newf(fault.KindInput, "mmap", "%s: %d bytes do not fit in memory", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fault.Newf(fault.KindInput, "mmap", "%s: %w", path, err)
	}
	// Advisory only; the mapping works without it.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return fromBytes(path, data, func() error {
		if err := unix.Munmap(data); err != nil {
			return fmt.Errorf("munmap %s: %w", path, err)
		}
		return nil
	}), nil
}
