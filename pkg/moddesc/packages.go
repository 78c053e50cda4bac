// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"path"
	"slices"
	"strings"
)

// PackagesOf derives the module's package set from class-section resource
// names such as "com/example/Main.class". Only class files make a package:
// a directory holding nothing but resources contributes none. Directories
// that are not valid package names (META-INF, for instance) are skipped. A
// class file at the top level would live in the unnamed package, which
// modules may not use.
func PackagesOf(module string, names []string) ([]string, error) {
	set := make(map[string]bool)
	var bad []string
	for _, n := range names {
		if !strings.HasSuffix(n, ".class") {
			continue
		}
		dir := path.Dir(n)
		if dir == "." {
			if n != "module-info.class" {
				bad = append(bad, n)
			}
			continue
		}
		pkg := strings.ReplaceAll(dir, "/", ".")
		if IsQualifiedName(pkg) {
			set[pkg] = true
		}
	}
	if len(bad) > 0 {
		reasons := make([]string, len(bad))
		for i, b := range bad {
			reasons[i] = "class " + b + " is in the unnamed package"
		}
		return nil, &InvalidModuleDescriptorError{Module: module, Reasons: reasons}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}
