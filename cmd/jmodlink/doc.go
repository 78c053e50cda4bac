// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the jmodlink CLI commands: link and batch link images,
// create and inspect jmod archives, reduce and restore modules against a
// runtime, list runtime images, and explain error topics.
package cmd
