// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package devtree is an owned, reference-counted DAG of kernel block
// devices: disks, their partitions, and the device-mapper/multipath/
// RAID/pktcdvd devices holding them.
//
// A Tree owns its devices; membership in the tree's device set is
// the one reference-counted relationship.  Everything else (the root
// set, edges, the Wholedisk back-reference of a partition) is a weak
// reference, so the graph can share nodes freely without ownership
// cycles.  The reference count does not manage memory (the GC does
// that); it manages *teardown*: edges are severed and properties
// released exactly when the last count is dropped, and dropping the
// last count while the device is still linked into a tree is a
// programming error that panics rather than corrupting the graph.
package devtree

import (
	"fmt"

	"git.lukeshu.com/lsblk-ng/lib/containers"
	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

// Device is one kernel block device.
type Device struct {
	Name     string // kernel name ("sda", "dm-0", "cciss/c0d0")
	Filename string // /dev path
	Devno    sysfs.Devno
	Size     int64 // bytes

	Removable bool
	ReadOnly  bool
	DMName    string // device-mapper name, if any

	Mounted    bool
	Mountpoint string
	Swap       bool

	// Printed is scribbled on by the render layer so that flat
	// (non-tree) output emits a multi-parent device only once.
	Printed bool

	// DedupKey is an opaque identity string (e.g. filesystem
	// UUID) computed externally; Tree.Deduplicate collapses
	// devices that share one.
	DedupKey string

	// Wholedisk is non-nil iff this device is a partition, and
	// points at the disk the partition belongs to.  The
	// back-reference is counted: it is released at teardown.
	Wholedisk *Device

	// Properties are opaque per-device values from an external
	// property provider (udev/blkid equivalent); the devtree only
	// carries them.
	Properties map[string]string

	refcount int

	children containers.LinkedList[*Dep] // edges where this device is the parent
	parents  containers.LinkedList[*Dep] // edges where this device is the child

	tree      *Tree
	rootEntry *containers.LinkedListEntry[*Device]
	devEntry  *containers.LinkedListEntry[*Device]
}

// Dep is a parent→child dependency edge, linked simultaneously into
// the parent's child-list and the child's parent-list.
type Dep struct {
	Parent *Device
	Child  *Device

	childEntry  *containers.LinkedListEntry[*Dep] // in Parent.children
	parentEntry *containers.LinkedListEntry[*Dep] // in Child.parents
}

// NewDevice allocates a device with a reference count of 1 (owned by
// the caller) and empty lists.
func NewDevice(name string) *Device {
	return &Device{
		Name:     name,
		refcount: 1,
	}
}

func (dev *Device) String() string {
	return fmt.Sprintf("%s (%v)", dev.Name, dev.Devno)
}

// IsPartition reports whether the device is a partition.
func (dev *Device) IsPartition() bool {
	return dev.Wholedisk != nil
}

// Ref takes an additional reference on the device.
func (dev *Device) Ref() {
	if dev == nil {
		return
	}
	dev.refcount++
}

// Unref drops a reference on the device.  Dropping the last
// reference tears the device down: every edge is removed from both
// of its endpoints' lists, owned properties are released, and the
// Wholedisk reference is dropped.
//
// It is invalid (runtime-panic) to drop the last reference on a
// device that is still a member of a tree; remove it from the tree
// instead, and let the tree drop its reference.
func (dev *Device) Unref() {
	if dev == nil {
		return
	}
	dev.refcount--
	if dev.refcount > 0 {
		return
	}
	if dev.devEntry != nil || dev.rootEntry != nil {
		panic(fmt.Errorf("devtree: teardown of %v while still tracked by a tree", dev))
	}
	dev.removeDependences()
	dev.Properties = nil
	if dev.Wholedisk != nil {
		dev.Wholedisk.Unref()
		dev.Wholedisk = nil
	}
}

// removeDependences severs every edge in both directions.  Severing
// happens at device teardown, not at tree teardown: an edge attached
// to an other, still-live device must not dangle just because this
// device went away first.
func (dev *Device) removeDependences() {
	for !dev.children.IsEmpty() {
		RemoveDependence(dev.children.Oldest().Value)
	}
	for !dev.parents.IsEmpty() {
		RemoveDependence(dev.parents.Oldest().Value)
	}
}

// HasChild reports whether a parent→child edge already exists.  It
// is an O(children) scan.
func (dev *Device) HasChild(child *Device) bool {
	it := dev.Children()
	for dep, ok := it.Next(); ok; dep, ok = it.Next() {
		if dep.Child == child {
			return true
		}
	}
	return false
}

// NewDependence records that parent depends on child.  It is
// idempotent: if the edge already exists, no new edge is created and
// created=false is returned.  The edge is linked into both endpoints'
// lists, or (on invalid arguments) into neither.
func NewDependence(parent, child *Device) (created bool, err error) {
	if parent == nil || child == nil {
		return false, fmt.Errorf("devtree: dependence endpoints must be non-nil")
	}
	if parent == child {
		return false, fmt.Errorf("devtree: %v cannot depend on itself", parent)
	}
	if parent.HasChild(child) {
		return false, nil
	}
	dep := &Dep{
		Parent: parent,
		Child:  child,
	}
	dep.childEntry = parent.children.Store(dep)
	dep.parentEntry = child.parents.Store(dep)
	return true, nil
}

// RemoveDependence unlinks an edge from both endpoints' lists.
func RemoveDependence(dep *Dep) {
	if dep.childEntry != nil {
		dep.Parent.children.Delete(dep.childEntry)
		dep.childEntry = nil
	}
	if dep.parentEntry != nil {
		dep.Child.parents.Delete(dep.parentEntry)
		dep.parentEntry = nil
	}
}

// Children iterates (oldest-first) over the edges from this device
// to the devices that depend on it.
func (dev *Device) Children() *containers.Iter[*Dep] {
	return containers.NewIter(&dev.children, containers.Forward)
}

// Parents iterates (oldest-first) over the edges from the devices
// this device depends on.
func (dev *Device) Parents() *containers.Iter[*Dep] {
	return containers.NewIter(&dev.parents, containers.Forward)
}

// NumChildren returns the number of outgoing edges.
func (dev *Device) NumChildren() int { return dev.children.Len() }

// NumParents returns the number of incoming edges.
func (dev *Device) NumParents() int { return dev.parents.Len() }

// IsLastParent reports whether parent is the most-recently-added
// entry in dev's parent list.  The render layer uses this to decide
// which of several parents triggers emission of a shared
// multi-parent device.
func IsLastParent(dev, parent *Device) bool {
	newest := dev.parents.Newest()
	return newest != nil && newest.Value.Parent == parent
}
