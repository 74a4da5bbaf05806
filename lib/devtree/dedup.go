// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devtree

import (
	"git.lukeshu.com/lsblk-ng/lib/containers"
	"git.lukeshu.com/lsblk-ng/lib/slices"
)

// DedupKeyFunc selects the identity key that Deduplicate collapses
// on; devices returning "" are never considered duplicates.  The
// usual choice is the filesystem UUID.
type DedupKeyFunc func(*Device) string

// Deduplicate collapses subtrees that represent the same underlying
// storage (e.g. the several paths of a multipath device), so that
// each logically distinct piece of storage appears once in the
// root/edge structure.
//
// Devices are visited in stable (major,minor) order; the first
// device seen with a given key is kept, every other root with that
// key is pruned from the root set, and every edge to another device
// with that key is removed.  Only root-set entries and edges are
// pruned, never devices; devices stay in the device set with their
// references intact.  A partition is never considered a duplicate of
// its own whole disk.
//
// Deduplicate is idempotent.
func (tr *Tree) Deduplicate(key DedupKeyFunc) {
	devs := make([]*Device, 0, tr.NumDevices())
	it := tr.Devices()
	for dev, ok := it.Next(); ok; dev, ok = it.Next() {
		devs = append(devs, dev)
	}
	slices.SortStableFunc(devs, func(a, b *Device) int {
		switch {
		case a.Devno < b.Devno:
			return -1
		case a.Devno > b.Devno:
			return 1
		default:
			return 0
		}
	})

	var pattern string
	for _, dev := range devs {
		k := key(dev)
		if k == "" {
			continue
		}
		if dev.Wholedisk != nil && key(dev.Wholedisk) == k {
			// A partition always carries its disk's
			// identity; that is not a duplicate.
			continue
		}
		if k == pattern {
			// Already processed this key.
			continue
		}
		pattern = k
		tr.dedupPattern(dev, pattern, key)
	}
}

// isDuplicateOf reports whether dev is a duplicate of the kept
// device for the given pattern key.
func isDuplicateOf(dev, keeper *Device, pattern string, key DedupKeyFunc) bool {
	if dev == keeper {
		return false
	}
	k := key(dev)
	if k == "" || k != pattern {
		return false
	}
	if dev.Wholedisk != nil && key(dev.Wholedisk) == k {
		return false
	}
	return true
}

func (tr *Tree) dedupPattern(keeper *Device, pattern string, key DedupKeyFunc) {
	// Prune duplicate roots.  Snapshot first: pruning mutates the
	// root list under the cursor.
	var dupRoots []*Device
	rootIt := tr.Roots()
	for root, ok := rootIt.Next(); ok; root, ok = rootIt.Next() {
		if isDuplicateOf(root, keeper, pattern, key) {
			dupRoots = append(dupRoots, root)
		}
	}
	for _, root := range dupRoots {
		tr.RemoveRoot(root)
	}

	// Prune duplicate edges reachable from the surviving roots.
	// Iterative with a visited set: sysfs graphs are assumed
	// acyclic, but a malformed one must not hang us.
	visited := make(containers.Set[string], tr.NumDevices())
	var stack []*Device
	rootIt.Reset()
	for root, ok := rootIt.Next(); ok; root, ok = rootIt.Next() {
		stack = append(stack, root)
	}
	for len(stack) > 0 {
		dev := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Has(dev.Name) {
			continue
		}
		visited.Insert(dev.Name)

		var dupDeps []*Dep
		childIt := dev.Children()
		for dep, ok := childIt.Next(); ok; dep, ok = childIt.Next() {
			if isDuplicateOf(dep.Child, keeper, pattern, key) {
				dupDeps = append(dupDeps, dep)
			} else {
				stack = append(stack, dep.Child)
			}
		}
		for _, dep := range dupDeps {
			RemoveDependence(dep)
		}
	}
}
