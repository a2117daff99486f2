// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/wxpipe/wxpipe/cmd/wxpipe"

func main() {
	cmd.Execute()
}
