// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"github.com/charmbracelet/log"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/shim"
)

// DefaultBaseModule is the module every other module implicitly requires.
const DefaultBaseModule = "java.base"

type (
	// Options configure one link.
	Options struct {
		// Roots are the modules the image is built for. Empty means every
		// collected module.
		Roots []string
		// OutputPath is where the image is written.
		OutputPath string
		// Stages configure the pipeline. The pipeline orders them; an
		// image-writer is added when no TERMINAL stage is configured.
		Stages []plugin.Config
		// Platform is the target, "<os>-<arch>"; empty means the host.
		// It picks the byte order of the default image-writer.
		Platform string
		// BaseModule defaults to DefaultBaseModule.
		BaseModule string
		// NoImplicitBase drops the implicit requirement on the base module.
		NoImplicitBase bool
		// Shim supplies the runtime image and native plugins. Optional.
		Shim shim.Capability
		// Registry resolves stage names; defaults to plugin.DefaultRegistry().
		Registry *plugin.Registry
		// Retry governs local file I/O.
		Retry  iox.Policy
		Logger *log.Logger
	}

	// Result summarizes a finished link.
	Result struct {
		OutputPath string
		// Modules lists the linked modules in resolution order.
		Modules []string
		// EntryCount is the number of resources in the image.
		EntryCount int
		// TotalBytes is the size of the written image.
		TotalBytes int64
		// Stages lists the pipeline stages in the order they ran.
		Stages []string
	}
)

func (o Options) baseModule() string {
	if o.BaseModule == "" {
		return DefaultBaseModule
	}
	return o.BaseModule
}

func (o Options) retry() iox.Policy {
	if o.Retry.Attempts == 0 {
		return iox.DefaultPolicy()
	}
	return o.Retry
}
