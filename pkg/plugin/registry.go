package plugin

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/eapsniffer/internal/core"
)

// Factory functions create fresh plugin instances.
type (
	CapturerFactory func() Capturer
	InjectorFactory func() Injector
	ReporterFactory func() Reporter
)

type registry[F any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]F
}

func newRegistry[F any](kind string) *registry[F] {
	return &registry[F]{kind: kind, factories: make(map[string]F)}
}

func (r *registry[F]) register(name string, f F, isNil bool) {
	if name == "" {
		panic(fmt.Sprintf("plugin: %s registered with empty name", r.kind))
	}
	if isNil {
		panic(fmt.Sprintf("plugin: %s %q registered with nil factory", r.kind, name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		panic(fmt.Sprintf("plugin: %s %q registered twice", r.kind, name))
	}
	r.factories[name] = f
}

func (r *registry[F]) get(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s %q", core.ErrPluginNotFound, r.kind, name)
	}
	return f, nil
}

func (r *registry[F]) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset removes every registration. Intended for tests.
func (r *registry[F]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]F)
}

var (
	capturerReg = newRegistry[CapturerFactory]("capturer")
	injectorReg = newRegistry[InjectorFactory]("injector")
	reporterReg = newRegistry[ReporterFactory]("reporter")
)

// RegisterCapturer registers a capturer factory. It panics on empty or duplicate names.
func RegisterCapturer(name string, f CapturerFactory) { capturerReg.register(name, f, f == nil) }

// RegisterInjector registers an injector factory.
func RegisterInjector(name string, f InjectorFactory) { injectorReg.register(name, f, f == nil) }

// RegisterReporter registers a reporter factory.
func RegisterReporter(name string, f ReporterFactory) { reporterReg.register(name, f, f == nil) }

func GetCapturerFactory(name string) (CapturerFactory, error) { return capturerReg.get(name) }
func GetInjectorFactory(name string) (InjectorFactory, error) { return injectorReg.get(name) }
func GetReporterFactory(name string) (ReporterFactory, error) { return reporterReg.get(name) }

// ListCapturers returns registered capturer names in sorted order.
func ListCapturers() []string { return capturerReg.list() }
func ListInjectors() []string { return injectorReg.list() }
func ListReporters() []string { return reporterReg.list() }
