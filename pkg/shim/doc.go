// SPDX-License-Identifier: MPL-2.0

// Package shim is the boundary between the linker and the host runtime it
// links against. A Capability reads the runtime's native image, exposes the
// runtime directory, and forwards native plugin invocations. Bindings are
// registered by name and one is selected at startup; the rest of the
// toolchain only sees the Capability interface.
package shim
