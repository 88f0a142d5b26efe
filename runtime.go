package nativeruntime

import (
	"github.com/evolvkit/native-runtime/bridge"
	"github.com/evolvkit/native-runtime/loader"
)

// Runtime ties a loader and a bridge together behind one handle. It is
// a thin facade: the underlying components remain accessible for
// callers that need loader introspection or bridge diagnostics.
type Runtime struct {
	loader *loader.Loader
	bridge *bridge.Bridge
}

// New creates a runtime with default loader options.
func New() *Runtime {
	return NewWithOptions(loader.DefaultOptions())
}

// NewWithOptions creates a runtime with explicit loader options.
func NewWithOptions(opts loader.Options) *Runtime {
	l := loader.New(opts)
	return &Runtime{
		loader: l,
		bridge: bridge.New(l),
	}
}

// Loader returns the underlying module loader.
func (r *Runtime) Loader() *loader.Loader {
	return r.loader
}

// Bridge returns the underlying call bridge.
func (r *Runtime) Bridge() *bridge.Bridge {
	return r.bridge
}

// Load brings a module and its dependency closure to Ready.
func (r *Runtime) Load(name string) (loader.Info, error) {
	return r.loader.Load(name)
}

// Unload drops one reference to a Ready module.
func (r *Runtime) Unload(name string) error {
	return r.loader.Unload(name)
}

// HotSwap replaces a Ready module's container in place from disk.
func (r *Runtime) HotSwap(name string) error {
	return r.loader.HotSwap(name)
}

// RegisterInterface binds an interface name to a module symbol under
// the given signature.
func (r *Runtime) RegisterInterface(name, module, symbol string, sig bridge.Signature) error {
	return r.bridge.RegisterInterface(name, module, symbol, sig)
}

// RegisterStdlib loads the system libc module and registers the
// well-known allocation, deallocation, string length and formatted
// output interfaces against it.
func (r *Runtime) RegisterStdlib() error {
	if _, err := r.loader.Load(bridge.StdlibModule); err != nil {
		return err
	}
	return r.bridge.RegisterStdlib(bridge.StdlibModule)
}

// Call invokes a registered interface with tagged arguments.
func (r *Runtime) Call(name string, args []bridge.Value) (bridge.Value, error) {
	return r.bridge.Call(name, args)
}

// Close force-unloads every module and shuts the runtime down.
func (r *Runtime) Close() error {
	return r.loader.Close()
}
