// SPDX-License-Identifier: MPL-2.0

// Package resource defines the resource entries and the immutable pools that
// flow through the link pipeline. A Pool is never mutated after Build: stages
// derive a Builder with Edit, change it, and Build a new Pool.
package resource
