package logger

import (
	"sync"
	"sync/atomic"
)

var (
	global     atomic.Pointer[CentralLogger]
	globalOnce sync.Once
)

// Global returns the process-wide logger. Until SetGlobal is called it is
// a console logger at info level.
func Global() *CentralLogger {
	if cl := global.Load(); cl != nil {
		return cl
	}
	globalOnce.Do(func() {
		if global.Load() != nil {
			return
		}
		cl, err := NewCentralLogger(nil)
		if err != nil {
			cl = newCentralLoggerFromZap(nil, nopZap(), func() error { return nil })
		}
		global.CompareAndSwap(nil, cl)
	})
	return global.Load()
}

// SetGlobal replaces the process-wide logger. Package loggers obtained
// earlier keep their old instance.
func SetGlobal(cl *CentralLogger) {
	if cl != nil {
		global.Store(cl)
	}
}
