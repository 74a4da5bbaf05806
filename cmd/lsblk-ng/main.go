// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/lsblk-ng/lib/devtree"
	"git.lukeshu.com/lsblk-ng/lib/profile"
	"git.lukeshu.com/lsblk-ng/lib/textui"
)

type subcommand struct {
	cobra.Command
	RunE func(*devtree.Tree, *cobra.Command, []string) error
}

var subcommands []subcommand

type scanConfig struct {
	SysfsRoot string
	UdevDir   string
	Mountinfo string
	Swaps     string
	All       bool
	NoDeps    bool
	DedupBy   string
}

func main() {
	logLevelFlag := textui.LogLevelFlag{
		Level: dlog.LogLevelInfo,
	}
	var cfg scanConfig

	argparser := &cobra.Command{
		Use:   "lsblk-ng {[flags]|SUBCOMMAND}",
		Short: "Show block devices and their dependencies",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,

		SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
		SilenceUsage:  true, // our FlagErrorFunc will handle it

		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().Var(&logLevelFlag, "verbosity", "set the verbosity")
	argparser.PersistentFlags().StringVar(&cfg.SysfsRoot, "sysfs", "", "read the device hierarchy from `directory` instead of /sys")
	argparser.PersistentFlags().StringVar(&cfg.UdevDir, "udev-data", "", "read device properties from `directory` instead of /run/udev/data")
	argparser.PersistentFlags().StringVar(&cfg.Mountinfo, "mountinfo", "", "read the mount table from `file` instead of /proc/self/mountinfo")
	argparser.PersistentFlags().StringVar(&cfg.Swaps, "swaps", "", "read the swap table from `file` instead of /proc/swaps")
	for _, flagname := range []string{"sysfs", "udev-data"} {
		if err := argparser.MarkPersistentFlagDirname(flagname); err != nil {
			panic(err)
		}
	}
	for _, flagname := range []string{"mountinfo", "swaps"} {
		if err := argparser.MarkPersistentFlagFilename(flagname); err != nil {
			panic(err)
		}
	}
	argparser.PersistentFlags().BoolVarP(&cfg.All, "all", "a", false, "also show empty devices")
	argparser.PersistentFlags().BoolVarP(&cfg.NoDeps, "nodeps", "d", false, "don't descend into holders or partitions")
	argparser.PersistentFlags().StringVarP(&cfg.DedupBy, "dedup", "E", "", "de-duplicate the tree by `column` (UUID, WWN, SERIAL, ...)")
	stopProfiling := profile.AddProfileFlags(argparser.PersistentFlags(), "profile.")

	for _, child := range subcommands {
		cmd := child.Command
		runE := child.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := textui.NewLogger(os.Stderr, logLevelFlag.Level)
			ctx = dlog.WithLogger(ctx, logger)
			ctx = dlog.WithField(ctx, "mem", new(textui.LiveMemUse))
			dlog.SetFallbackLogger(logger.WithField("lsblk-ng.THIS_IS_A_BUG", true))

			grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
				EnableSignalHandling: true,
			})
			grp.Go("main", func(ctx context.Context) error {
				tr, err := buildTree(ctx, cfg, args)
				if err != nil {
					return err
				}
				defer tr.Free()

				cmd.SetContext(ctx)
				return runE(tr, cmd, args)
			})
			return grp.Wait()
		}
		argparser.AddCommand(&cmd)
	}

	err := argparser.ExecuteContext(context.Background())
	if stopErr := stopProfiling(); err == nil {
		err = stopErr
	}
	if err != nil {
		textui.Fprintf(os.Stderr, "%v: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
