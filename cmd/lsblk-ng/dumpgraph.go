// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"

	"git.lukeshu.com/go/lowmemjson"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"git.lukeshu.com/lsblk-ng/lib/devtree"
	"git.lukeshu.com/lsblk-ng/lib/render"
)

func init() {
	var spewFlag bool
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "dump-graph [DEVICE...]",
			Short: "Dump the raw dependency graph as JSON",
			Args:  cobra.ArbitraryArgs,
		},
		RunE: func(tr *devtree.Tree, cmd *cobra.Command, _ []string) error {
			dump := render.Dump(tr)
			if spewFlag {
				spew := spew.NewDefaultConfig()
				spew.DisablePointerAddresses = true
				spew.Dump(dump)
				return nil
			}
			return writeJSONFile(os.Stdout, dump, lowmemjson.ReEncoder{
				Indent:                "\t",
				ForceTrailingNewlines: true,
				CompactIfUnder:        120,
			})
		},
	}
	cmd.Command.Flags().BoolVar(&spewFlag, "spew", false,
		"dump with go-spew instead of JSON")
	subcommands = append(subcommands, cmd)
}
