// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devtree

import (
	"fmt"

	"git.lukeshu.com/lsblk-ng/lib/containers"
)

// Tree owns the canonical set of devices, the set of root devices,
// and the lazily-loaded pktcdvd mapping table.
type Tree struct {
	devices containers.LinkedList[*Device]
	roots   containers.LinkedList[*Device]

	pktcdvd pktcdvdMap
}

func NewTree() *Tree {
	return new(Tree)
}

// AddDevice inserts a device into the tree's device set, taking a
// reference on it; this is the canonical ownership-transfer point.
// The caller keeps (and remains responsible for) its own reference.
func (tr *Tree) AddDevice(dev *Device) error {
	if dev == nil {
		return fmt.Errorf("devtree: AddDevice: nil device")
	}
	if dev.tree != nil {
		return fmt.Errorf("devtree: %v is already tracked by a tree", dev)
	}
	dev.Ref()
	dev.tree = tr
	dev.devEntry = tr.devices.Store(dev)
	return nil
}

// HasDevice reports whether the device is in this tree's device set.
func (tr *Tree) HasDevice(dev *Device) bool {
	return dev != nil && dev.tree == tr
}

// AddRoot marks a device as a root of the tree, first adding it to
// the device set if it isn't in it yet.  It is idempotent.  Root-set
// membership carries no reference of its own; the device-set
// membership is the primary one.
func (tr *Tree) AddRoot(dev *Device) error {
	if !tr.HasDevice(dev) {
		if err := tr.AddDevice(dev); err != nil {
			return err
		}
	}
	if dev.rootEntry == nil {
		dev.rootEntry = tr.roots.Store(dev)
	}
	return nil
}

// IsRoot reports whether the device is in this tree's root set.
func (tr *Tree) IsRoot(dev *Device) bool {
	return tr.HasDevice(dev) && dev.rootEntry != nil
}

// RemoveRoot removes a device from the root set only.  The device
// stays in the device set, fully referenced; deduplication uses this
// to hide duplicate subtrees without freeing anything.
func (tr *Tree) RemoveRoot(dev *Device) {
	if tr.HasDevice(dev) && dev.rootEntry != nil {
		tr.roots.Delete(dev.rootEntry)
		dev.rootEntry = nil
	}
}

// GetDevice looks a device up by kernel name.
func (tr *Tree) GetDevice(name string) *Device {
	it := tr.Devices()
	for dev, ok := it.Next(); ok; dev, ok = it.Next() {
		if dev.Name == name {
			return dev
		}
	}
	return nil
}

// RemoveDevice removes a device from both the root set and the
// device set and drops the tree's reference, which may tear the
// device down.  It reports whether the device was tracked at all.
func (tr *Tree) RemoveDevice(dev *Device) bool {
	if !tr.HasDevice(dev) {
		return false
	}
	if dev.rootEntry != nil {
		tr.roots.Delete(dev.rootEntry)
		dev.rootEntry = nil
	}
	tr.devices.Delete(dev.devEntry)
	dev.devEntry = nil
	dev.tree = nil
	dev.Unref()
	return true
}

// NumDevices returns the size of the device set.
func (tr *Tree) NumDevices() int { return tr.devices.Len() }

// NumRoots returns the size of the root set.
func (tr *Tree) NumRoots() int { return tr.roots.Len() }

// Devices iterates (insertion order) over the device set.
func (tr *Tree) Devices() *containers.Iter[*Device] {
	return containers.NewIter(&tr.devices, containers.Forward)
}

// Roots iterates (insertion order) over the root set.
func (tr *Tree) Roots() *containers.Iter[*Device] {
	return containers.NewIter(&tr.roots, containers.Forward)
}

// Free removes every tracked device from the tree, tearing down any
// that the tree held the last reference on.  Order does not matter:
// each device severs its own edges when its count reaches zero, so
// no parent/child has to outlive the other.
func (tr *Tree) Free() {
	for !tr.devices.IsEmpty() {
		tr.RemoveDevice(tr.devices.Oldest().Value)
	}
	tr.pktcdvd = pktcdvdMap{}
}
