// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/jmodlink/jmodlink/cmd/jmodlink"

func main() {
	cmd.Execute()
}
