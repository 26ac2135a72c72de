package logger

import (
	"sort"
	"sync"
)

// registry caches component loggers derived from the global logger.
var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores a named logger in the registry, replacing any cached one.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get returns the logger registered for a component. Unknown names get the
// global logger tagged with the component name, cached for later calls.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if l, ok := registry.loggers[name]; ok {
		return l
	}
	l = GetGlobalLogger().WithComponent(name)
	registry.loggers[name] = l
	return l
}

// Names returns the registered component names in sorted order.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.loggers))
	for name := range registry.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every cached logger so the next Get derives from the current
// global logger. Init calls it.
func Reset() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers = make(map[string]*Logger)
}
