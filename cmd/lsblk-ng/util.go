// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"context"
	"io"

	"git.lukeshu.com/go/lowmemjson"
	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"

	"git.lukeshu.com/lsblk-ng/lib/devprops"
	"git.lukeshu.com/lsblk-ng/lib/devscan"
	"git.lukeshu.com/lsblk-ng/lib/devtree"
	"git.lukeshu.com/lsblk-ng/lib/mountinfo"
	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

// buildTree scans sysfs (all of it, or just the named devices),
// decorates the resulting devices with udev properties and mount
// state, and optionally de-duplicates the tree.  The caller owns the
// returned tree and must .Free() it.
func buildTree(ctx context.Context, cfg scanConfig, names []string) (*devtree.Tree, error) {
	sf := sysfs.New(cfg.SysfsRoot)
	scanner := devscan.New(sf, devscan.Options{
		All:    cfg.All,
		NoDeps: cfg.NoDeps,
	})

	tr := devtree.NewTree()
	if len(names) == 0 {
		if err := scanner.ScanAll(ctx, tr); err != nil {
			tr.Free()
			return nil, err
		}
	} else {
		var errs derror.MultiError
		for _, name := range names {
			if _, err := scanner.ScanOne(ctx, tr, name); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			tr.Free()
			if len(errs) == 1 {
				return nil, errs[0]
			}
			return nil, errs
		}
	}

	props := &devprops.Cached{Inner: devprops.UdevDB{Dir: cfg.UdevDir}}
	mounts, err := mountinfo.Load(cfg.Mountinfo, cfg.Swaps)
	if err != nil {
		dlog.Warnf(ctx, "cannot read mount table: %v", err)
		mounts = &mountinfo.Table{}
	}

	for devs := tr.Devices(); ; {
		dev, ok := devs.Next()
		if !ok {
			break
		}
		p, err := props.Get(ctx, dev.Devno)
		if err != nil {
			dlog.Warnf(dlog.WithField(ctx, "devscan.dev", dev.Name), "properties: %v", err)
		} else {
			dev.Properties = p.Map()
			if cfg.DedupBy != "" {
				dev.DedupKey = p.ByField(cfg.DedupBy)
			}
		}
		dev.Mountpoint = mounts.Mountpoint(dev.Devno)
		dev.Swap = mounts.IsSwap(dev.Filename)
		dev.Mounted = dev.Mountpoint != "" || dev.Swap
	}

	if cfg.DedupBy != "" {
		tr.Deduplicate(func(dev *devtree.Device) string {
			return dev.DedupKey
		})
	}

	return tr, nil
}

func writeJSONFile(w io.Writer, obj any, cfg lowmemjson.ReEncoder) (err error) {
	buffer := bufio.NewWriter(w)
	defer func() {
		if _err := buffer.Flush(); err == nil && _err != nil {
			err = _err
		}
	}()
	cfg.Out = buffer
	return lowmemjson.Encode(&cfg, obj)
}
