package app

import (
	"runtime/debug"

	"github.com/searchktools/fire-server/config"
	"github.com/searchktools/fire-server/logger"
)

// applyRuntime tunes the garbage collector. A negative GCPercent turns
// collection off; MemoryLimit then bounds the heap.
func applyRuntime(cfg config.RuntimeConfig, log logger.Logger) {
	if cfg.GCPercent != 0 {
		prev := debug.SetGCPercent(cfg.GCPercent)
		log.Info("gc percent set", "from", prev, "to", cfg.GCPercent)
	}
	if cfg.MemoryLimit > 0 {
		debug.SetMemoryLimit(cfg.MemoryLimit)
		log.Info("memory limit set", "bytes", cfg.MemoryLimit)
	}
}
