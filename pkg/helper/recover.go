package helper

import (
	"os"
	"runtime/debug"

	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

// RecoverPanic recovers a panic, logs the stack trace and exits with code.
// Usage: defer helper.RecoverPanic(logger, "sync-monitor", 2)
func RecoverPanic(log *logger.Logger, name string, code int) {
	if r := recover(); r != nil {
		log.Errorf("PANIC recovered in %s: %v\nStack: %s", name, r, debug.Stack())
		os.Exit(code)
	}
}
