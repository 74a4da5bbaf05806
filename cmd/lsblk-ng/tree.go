// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"

	"github.com/spf13/cobra"

	"git.lukeshu.com/lsblk-ng/lib/devtree"
	"git.lukeshu.com/lsblk-ng/lib/render"
)

func init() {
	var mergeFlag bool
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "tree [DEVICE...]",
			Short: "Show the device dependency tree",
			Args:  cobra.ArbitraryArgs,
		},
		RunE: func(tr *devtree.Tree, cmd *cobra.Command, _ []string) error {
			return render.Print(os.Stdout, tr, render.Options{
				Mode:  render.Tree,
				Merge: mergeFlag,
			})
		},
	}
	cmd.Command.Flags().BoolVarP(&mergeFlag, "merge", "M", false,
		"group a device with several parents under its last parent instead of repeating it")
	subcommands = append(subcommands, cmd)
}
