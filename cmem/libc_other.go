//go:build !((linux || darwin || freebsd) && (amd64 || arm64))

package cmem

import (
	"runtime"

	"github.com/wippyai/refptr/errors"
)

var (
	cMalloc func(size uintptr) uintptr
	cFree   func(ptr uintptr)
)

// Load reports that no libc binding exists for this platform.
func Load() error {
	return errors.Unsupported(errors.PhaseLoad, "libc binding on "+runtime.GOOS+"/"+runtime.GOARCH)
}
