// SPDX-License-Identifier: MPL-2.0

package shim

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/jmodlink/jmodlink/pkg/jimage"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

// Binding names.
const (
	BindingPortable = "portable"
	BindingMemory   = "memory"

	// DefaultBinding is used when Select is given an empty name.
	DefaultBinding = BindingPortable

	// ImagePath is where a runtime keeps its native image, relative to the
	// runtime directory.
	ImagePath = "lib/modules"
)

type (
	// ImageSource is the read side of a runtime image. *jimage.Reader
	// satisfies it.
	ImageSource interface {
		Modules() []string
		Entries(module string) iter.Seq[string]
		FindLocation(module, name string) (jimage.Location, bool)
		ReadEntry(module, name string) ([]byte, error)
		Close() error
	}

	// Capability is everything the toolchain needs from the host runtime.
	Capability interface {
		// Name returns the binding name.
		Name() string
		// ReadNativeImage opens the runtime's image. The caller closes it.
		// Returns an error matching ErrNoNativeImage when there is none.
		ReadNativeImage(ctx context.Context) (ImageSource, error)
		// RuntimeFS returns the runtime directory, or nil when the binding
		// has none.
		RuntimeFS() billy.Filesystem
		// NativePlugins lists the native plugin names, sorted.
		NativePlugins() []string
		// InvokeNativePlugin runs a native plugin over in and returns its result.
		InvokeNativePlugin(ctx context.Context, name string, opts plugin.Options, in *resource.Pool) (*resource.Pool, error)
	}

	// NativePlugin is the native side of a plugin invocation. It receives
	// the pool as a resource table (see poolcodec.EncodeTable) and returns
	// the transformed table.
	NativePlugin func(ctx context.Context, opts plugin.Options, table []byte) ([]byte, error)

	// BindingOptions configures a binding.
	BindingOptions struct {
		// RuntimePath is the runtime directory on the host filesystem.
		RuntimePath string
		// FS overrides the runtime filesystem. When nil, portable opens
		// RuntimePath and memory starts empty.
		FS billy.Filesystem
		// Plugins are the native plugins the binding can invoke.
		Plugins map[string]NativePlugin
	}

	// Binding constructs a Capability.
	Binding func(opts BindingOptions) (Capability, error)
)

var (
	bindingsMu sync.RWMutex
	bindings   = map[string]Binding{
		BindingPortable: newPortable,
		BindingMemory:   newMemory,
	}
)

// Register makes a binding available to Select. A later registration under
// the same name replaces the earlier one.
func Register(name string, b Binding) {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	bindings[name] = b
}

// Bindings returns the registered binding names, sorted.
func Bindings() []string {
	bindingsMu.RLock()
	defer bindingsMu.RUnlock()
	return slices.Sorted(maps.Keys(bindings))
}

// Select constructs the binding registered under name.
func Select(name string, opts BindingOptions) (Capability, error) {
	if name == "" {
		name = DefaultBinding
	}
	bindingsMu.RLock()
	b, ok := bindings[name]
	bindingsMu.RUnlock()
	if !ok {
		return nil, &UnknownBindingError{Name: name, Known: Bindings()}
	}
	return b(opts)
}
