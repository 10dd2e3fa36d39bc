package observability

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic wraps every error produced by MustRecover
var ErrPanic = errors.New("panic")

// RecoverPanic recovers from a panic and logs it with its stack. It must be
// deferred directly:
//
//	defer observability.RecoverPanic(logger, "gauge refresh")
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
	}
}

// RecoverPanicWithCallback is RecoverPanic followed by callback, which only
// runs when a panic was recovered
func RecoverPanicWithCallback(logger *Logger, where string, callback func()) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
		if callback != nil {
			callback()
		}
	}
}

// MustRecover converts a recovered value into an error wrapping ErrPanic.
// A nil value yields nil.
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = observability.MustRecover(r)
//	    }
//	}()
func MustRecover(r interface{}) error {
	if r == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}

func logPanic(logger *Logger, where string, r interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic":   fmt.Sprint(r),
		"stack":   string(debug.Stack()),
		"context": where,
	}).Error("PANIC recovered")
}
