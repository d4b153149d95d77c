package cmem

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nop    = zap.NewNop()
)

// Logger returns the cmem package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nop
}

// SetLogger configures the cmem package's logger. Call it before first use,
// typically before Load is called; a nil logger restores the no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
