// SPDX-License-Identifier: MPL-2.0

// Package plugin runs the ordered chain of stages that turns the resource
// pool of a link into an image.
//
// Stages are registered by name in a Registry together with the option keys
// they accept. A Pipeline orders the configured stages once, honoring their
// before/after constraints, and then runs each stage exactly once: every
// Transformer receives the previous pool and returns a new one, and the single
// TERMINAL Emitter writes the final pool to the output.
package plugin
