//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package source

import (
	"errors"

	"github.com/example/stationstats/internal/fault"
)

var errMmapUnsupported = errors.New("memory mapping is not supported on this platform")

func MapFile(path string) (*Source, error) {
	return nil, fault.Newf(fault.KindInput, "mmap", "%s: %w", path, errMmapUnsupported)
}
