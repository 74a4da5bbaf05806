// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package devscan walks sysfs and assembles a devtree.Tree out of
// what it finds.
//
// Discovery is iterative (an explicit worklist plus a visited set):
// the kernel's block graph is supposed to be acyclic, but a
// malformed topology must degrade into a merely-incomplete tree, not
// into unbounded recursion.  A device whose attributes cannot be
// read (permission error, device yanked mid-scan) is logged and
// skipped; its siblings still get scanned.
package devscan

import (
	"context"
	"path/filepath"
	"time"

	"github.com/datawire/dlib/dlog"

	"git.lukeshu.com/lsblk-ng/lib/containers"
	"git.lukeshu.com/lsblk-ng/lib/devtree"
	"git.lukeshu.com/lsblk-ng/lib/sysfs"
	"git.lukeshu.com/lsblk-ng/lib/textui"
)

type Options struct {
	// All keeps devices of zero size, which are hidden by
	// default (empty card readers and the like).
	All bool
	// NoDeps stops discovery at the named devices: no
	// partitions, holders, or pktcdvd mates.
	NoDeps bool
	// DevDir is where device nodes live; it only feeds the
	// Filename field.  Empty means "/dev".
	DevDir string
}

type Scanner struct {
	sf   *sysfs.Context
	opts Options

	visited containers.Set[string]
}

func New(sf *sysfs.Context, opts Options) *Scanner {
	if opts.DevDir == "" {
		opts.DevDir = "/dev"
	}
	return &Scanner{
		sf:      sf,
		opts:    opts,
		visited: containers.Set[string]{},
	}
}

// ScanAll discovers the whole block-device topology: every /sys/block
// entry, with the ones that depend on nothing (no slaves) becoming
// the tree's roots and everything else being reached through
// partition/holder/pktcdvd edges.
func (s *Scanner) ScanAll(ctx context.Context, tr *devtree.Tree) error {
	tr.SetPktcdvdMapPath(filepath.Join(s.sf.Root(), "class", "pktcdvd", "device_map"))

	names, err := s.sf.BlockDevices()
	if err != nil {
		return err
	}

	progress := textui.Portion[int]{D: len(names)}
	progressWriter := textui.NewProgress[textui.Portion[int]](ctx, dlog.LogLevelDebug, textui.Tunable(1*time.Second))
	defer progressWriter.Done()

	for _, name := range names {
		progressWriter.Set(progress)
		progress.N++

		dir := s.sf.DeviceDir(name)
		slaves, err := dir.Slaves()
		if err != nil {
			dlog.Warnf(ctx, "device %q: %v; skipping", name, err)
			continue
		}
		if len(slaves) > 0 {
			// In the middle of the dependence graph; it
			// will be reached as a holder of its slaves.
			continue
		}
		devno, err := dir.ReadDevno()
		if err != nil {
			dlog.Warnf(ctx, "device %q: %v; skipping", name, err)
			continue
		}
		if tr.GetMate(devno, true) != sysfs.NoDevno {
			// A pktcdvd holder has no slaves/ symlinks,
			// but the side table says it belongs under
			// its CD/DVD device.
			continue
		}
		dev := tr.GetDevice(name)
		if dev == nil {
			dev = s.loadDevice(ctx, tr, dir, nil)
		}
		if dev == nil {
			continue
		}
		if err := tr.AddRoot(dev); err != nil {
			return err
		}
		s.scanDeps(ctx, tr, dev, dir)
	}
	return nil
}

// ScanOne discovers a single device given its name or /dev path: the
// device itself, its whole disk (as root) if it is a partition, its
// parents via `slaves/`, and its dependants.
func (s *Scanner) ScanOne(ctx context.Context, tr *devtree.Tree, nameOrPath string) (*devtree.Device, error) {
	tr.SetPktcdvdMapPath(filepath.Join(s.sf.Root(), "class", "pktcdvd", "device_map"))

	name := filepath.Base(nameOrPath)
	dir := s.sf.ClassBlockDir(name)

	var wholedisk *devtree.Device
	if dir.HasAttr("partition") {
		diskName, err := s.sf.Wholedisk(name)
		if err != nil {
			return nil, err
		}
		wholedisk = tr.GetDevice(diskName)
		if wholedisk == nil {
			wholedisk = s.loadDevice(ctx, tr, s.sf.DeviceDir(diskName), nil)
			if wholedisk == nil {
				return nil, &DeviceError{Name: diskName}
			}
		}
		if err := tr.AddRoot(wholedisk); err != nil {
			return nil, err
		}
	}

	dev := tr.GetDevice(name)
	if dev == nil {
		dev = s.loadDevice(ctx, tr, dir, wholedisk)
	}
	if dev == nil {
		return nil, &DeviceError{Name: name}
	}
	if wholedisk != nil {
		if _, err := devtree.NewDependence(wholedisk, dev); err != nil {
			return nil, err
		}
	} else {
		// Attach parents via the slaves/ directory; a device
		// with no slaves is its own root.
		slaves, err := dir.Slaves()
		if err != nil {
			return nil, err
		}
		if len(slaves) == 0 {
			if err := tr.AddRoot(dev); err != nil {
				return nil, err
			}
		}
		for _, slaveName := range slaves {
			parent := tr.GetDevice(slaveName)
			if parent == nil {
				parent = s.loadDevice(ctx, tr, s.sf.DeviceDir(slaveName), nil)
			}
			if parent == nil {
				continue
			}
			if err := tr.AddRoot(parent); err != nil {
				return nil, err
			}
			if _, err := devtree.NewDependence(parent, dev); err != nil {
				return nil, err
			}
		}
	}

	s.scanDeps(ctx, tr, dev, dir)
	return dev, nil
}

// scanDeps discovers everything below dev: partitions, holders, and
// the pktcdvd mate; worklist-driven, cycle-safe.
func (s *Scanner) scanDeps(ctx context.Context, tr *devtree.Tree, dev *devtree.Device, dir sysfs.DeviceDir) {
	if s.opts.NoDeps {
		return
	}

	type work struct {
		dev *devtree.Device
		dir sysfs.DeviceDir
	}
	stack := []work{{dev: dev, dir: dir}}

	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.visited.Has(w.dev.Name) {
			continue
		}
		s.visited.Insert(w.dev.Name)

		// Partitions.
		partNames, err := w.dir.Partitions()
		if err != nil {
			dlog.Warnf(ctx, "device %q: %v", w.dev.Name, err)
		}
		for _, partName := range partNames {
			partDir := w.dir.PartitionDir(partName)
			part := tr.GetDevice(partName)
			if part == nil {
				part = s.loadDevice(ctx, tr, partDir, w.dev)
				if part == nil {
					continue
				}
			}
			if _, err := devtree.NewDependence(w.dev, part); err != nil {
				dlog.Warnf(ctx, "device %q: %v", w.dev.Name, err)
				continue
			}
			stack = append(stack, work{dev: part, dir: partDir})
		}

		// Holders.
		holderNames, err := w.dir.Holders()
		if err != nil {
			dlog.Warnf(ctx, "device %q: %v", w.dev.Name, err)
		}
		for _, holderName := range holderNames {
			holderDir := s.sf.DeviceDir(holderName)
			holder := tr.GetDevice(holderName)
			if holder == nil {
				holder = s.loadDevice(ctx, tr, holderDir, nil)
				if holder == nil {
					continue
				}
			}
			if _, err := devtree.NewDependence(w.dev, holder); err != nil {
				dlog.Warnf(ctx, "device %q: %v", w.dev.Name, err)
				continue
			}
			stack = append(stack, work{dev: holder, dir: holderDir})
		}

		// The pktcdvd driver's holder relation exists only in
		// its side table, not as sysfs symlinks.
		if mate := tr.GetMate(w.dev.Devno, false); mate != sysfs.NoDevno {
			mateName, err := s.sf.DevnoToName(mate)
			if err != nil {
				dlog.Warnf(ctx, "device %q: pktcdvd mate %v: %v", w.dev.Name, mate, err)
				continue
			}
			holderDir := s.sf.DeviceDir(mateName)
			holder := tr.GetDevice(mateName)
			if holder == nil {
				holder = s.loadDevice(ctx, tr, holderDir, nil)
				if holder == nil {
					continue
				}
			}
			if _, err := devtree.NewDependence(w.dev, holder); err != nil {
				dlog.Warnf(ctx, "device %q: %v", w.dev.Name, err)
				continue
			}
			stack = append(stack, work{dev: holder, dir: holderDir})
		}
	}
}

// loadDevice reads a device's sysfs attributes, adds it to the tree,
// and returns the tree-owned device.  It returns nil if the device
// is unreadable (logged, skipped) or filtered out.
func (s *Scanner) loadDevice(ctx context.Context, tr *devtree.Tree, dir sysfs.DeviceDir, wholedisk *devtree.Device) *devtree.Device {
	dev, err := s.readDevice(dir, wholedisk)
	if err != nil {
		dlog.Warnf(ctx, "device %q: %v; skipping", dir.Name, err)
		return nil
	}
	if dev.Size == 0 && !s.opts.All {
		dlog.Debugf(ctx, "device %q: zero size; hiding", dir.Name)
		dev.Unref()
		return nil
	}
	if err := tr.AddDevice(dev); err != nil {
		dlog.Warnf(ctx, "device %q: %v; skipping", dir.Name, err)
		dev.Unref()
		return nil
	}
	dev.Unref() // the tree's reference is the canonical one now
	return dev
}

// readDevice creates a device from sysfs attributes; the caller owns
// the single reference.  On error nothing is linked anywhere.
func (s *Scanner) readDevice(dir sysfs.DeviceDir, wholedisk *devtree.Device) (*devtree.Device, error) {
	devno, err := dir.ReadDevno()
	if err != nil {
		return nil, err
	}
	sectors, err := dir.ReadAttrU64("size")
	if err != nil {
		return nil, err
	}

	dev := devtree.NewDevice(dir.Name)
	dev.Devno = devno
	dev.Size = int64(sectors << 9) // sysfs size is in 512-byte sectors
	dev.Filename = filepath.Join(s.opts.DevDir, dir.Name)

	if removable, err := dir.ReadAttr("removable"); err == nil {
		dev.Removable = removable == "1"
	}
	if ro, err := dir.ReadAttr("ro"); err == nil {
		dev.ReadOnly = ro == "1"
	}
	if dir.HasAttr("dm/name") {
		dev.DMName, _ = dir.ReadAttr("dm/name")
	}
	if wholedisk != nil {
		wholedisk.Ref()
		dev.Wholedisk = wholedisk
	}
	return dev, nil
}

// DeviceError reports a device that could not be scanned at all.
type DeviceError struct {
	Name string
}

func (e *DeviceError) Error() string {
	return "not a readable block device: " + e.Name
}
