//go:build (linux || darwin || freebsd) && (amd64 || arm64)

package cmem

import (
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/wippyai/refptr/errors"
)

var (
	libc     uintptr
	loadOnce sync.Once
	loadErr  error
)

var (
	cMalloc func(size uintptr) uintptr
	cFree   func(ptr uintptr)
)

func libcPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/lib/libSystem.B.dylib"
	case "freebsd":
		return "libc.so.7"
	default:
		return "libc.so.6"
	}
}

// Load binds malloc and free from the platform libc. It is safe to call
// repeatedly; only the first call does any work.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadLibrary()
	})
	return loadErr
}

func loadLibrary() error {
	path := libcPath()
	var err error
	libc, err = purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return errors.Load("dlopen "+path, err)
	}

	purego.RegisterLibFunc(&cMalloc, libc, "malloc")
	purego.RegisterLibFunc(&cFree, libc, "free")

	Logger().Debug("libc loaded", zap.String("path", path))
	return nil
}
