package hxcore

import (
	"sync"

	"github.com/go-logr/logr"
)

var (
	logMu  sync.RWMutex
	logger = logr.Discard()
)

// SetLogger sets the logger used for errors that have no caller to return
// to, such as failures inside watcher callbacks without an OnError handler.
func SetLogger(l logr.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l.WithName("hxcore")
}

// Logger returns the package logger.
func Logger() logr.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}
