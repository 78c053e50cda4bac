// SPDX-License-Identifier: MPL-2.0

package plugin

// Names of the built-in stages.
const (
	StageSortResources    = "sort-resources"
	StageExcludeResources = "exclude-resources"
	StageStripNativeDebug = "strip-native-debug"
	StageCompress         = "compress"
	StageVerifyPool       = "verify-pool"
	StageImageWriter      = "image-writer"
)

// RegisterBuiltins adds the built-in stages to r. It panics if one of their
// names is already taken, which only happens on programmer error.
func RegisterBuiltins(r *Registry) {
	for _, f := range []Factory{
		sortFactory(),
		excludeFactory(),
		stripDebugFactory(),
		compressFactory(),
		verifyFactory(),
		imageWriterFactory(),
	} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
}
