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
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "list [DEVICE...]",
			Short: "Show block devices as a flat list, each exactly once",
			Args:  cobra.ArbitraryArgs,
		},
		RunE: func(tr *devtree.Tree, cmd *cobra.Command, _ []string) error {
			return render.Print(os.Stdout, tr, render.Options{
				Mode: render.List,
			})
		},
	})
}
