/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/konstructio/hybrid-setup/cmd"
	"github.com/konstructio/hybrid-setup/internal/common"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}

	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %s\n", err)
	if !common.IsFatal(err) {
		fmt.Fprintln(os.Stderr, "Re-run with --verbose to see the output of every external command.")
	}

	os.Exit(common.ExitCode(err))
}
