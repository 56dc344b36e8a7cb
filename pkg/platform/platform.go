// Package platform identifies the host the application runs on.
package platform

import (
	"runtime"
	"sync"
)

// ID names a host platform.
type ID string

const (
	Android ID = "android"
	IOS     ID = "ios"
	Darwin  ID = "darwin"
	Linux   ID = "linux"
	Windows ID = "windows"
	Web     ID = "js"
)

var (
	mu       sync.RWMutex
	override ID
)

// Current returns the configured platform, or runtime.GOOS when none was set.
func Current() ID {
	mu.RLock()
	defer mu.RUnlock()
	if override != "" {
		return override
	}
	return ID(runtime.GOOS)
}

// Set overrides the detected platform. An empty id restores detection.
func Set(id ID) {
	mu.Lock()
	defer mu.Unlock()
	override = id
}

// HasNativeFaultHandler reports whether the host already intercepts fatal
// faults itself, in which case the containment policy stays out of the way.
func HasNativeFaultHandler(id ID) bool {
	return id == IOS
}

func (id ID) String() string {
	return string(id)
}
