// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE parsing flow used for module
// descriptor sources (module-info.cue) and the tool configuration
// (jmodlink.cue):
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// # Usage
//
//	//go:embed module_info_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[moduleInfoFile](
//	    schemaBytes,
//	    data,
//	    "#ModuleInfo",
//	    cueutil.WithFilename("module-info.cue"),
//	)
//	if err != nil {
//	    return nil, err // includes the CUE path of every problem
//	}
//	return result.Value, nil
package cueutil
