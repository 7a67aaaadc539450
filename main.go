// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/kilnlauncher/kiln/cmd/kiln"

func main() {
	cmd.Execute()
}
