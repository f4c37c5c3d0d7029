// SPDX-License-Identifier: MPL-2.0

package main

import cmd "toolhost-cli/cmd/toolhost"

func main() {
	cmd.Execute()
}
