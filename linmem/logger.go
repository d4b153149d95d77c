package linmem

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nop    = zap.NewNop()
)

// Logger returns the linmem package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nop
}

// SetLogger configures the linmem package's logger. Call it before first use,
// typically before New is called; a nil logger restores the no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
