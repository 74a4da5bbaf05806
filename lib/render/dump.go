// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package render

import (
	"git.lukeshu.com/lsblk-ng/lib/devtree"
)

// GraphDump is a plain serializable snapshot of a devtree, for the
// `dump-graph` command and for tests that want to diff topologies.
type GraphDump struct {
	Roots   []string     `json:"roots"`
	Devices []DeviceDump `json:"devices"`
}

type DeviceDump struct {
	Name       string            `json:"name"`
	Devno      string            `json:"devno"`
	Size       int64             `json:"size"`
	Removable  bool              `json:"removable,omitempty"`
	ReadOnly   bool              `json:"readonly,omitempty"`
	DMName     string            `json:"dm_name,omitempty"`
	Mountpoint string            `json:"mountpoint,omitempty"`
	Swap       bool              `json:"swap,omitempty"`
	DedupKey   string            `json:"dedup_key,omitempty"`
	Wholedisk  string            `json:"wholedisk,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Children   []string          `json:"children,omitempty"`
	Parents    []string          `json:"parents,omitempty"`
}

// Dump snapshots the tree.  Device order is the device set's
// insertion order; children/parents keep their edge order.
func Dump(tr *devtree.Tree) GraphDump {
	var ret GraphDump
	rootIt := tr.Roots()
	for root, ok := rootIt.Next(); ok; root, ok = rootIt.Next() {
		ret.Roots = append(ret.Roots, root.Name)
	}
	devIt := tr.Devices()
	for dev, ok := devIt.Next(); ok; dev, ok = devIt.Next() {
		dump := DeviceDump{
			Name:       dev.Name,
			Devno:      dev.Devno.String(),
			Size:       dev.Size,
			Removable:  dev.Removable,
			ReadOnly:   dev.ReadOnly,
			DMName:     dev.DMName,
			Mountpoint: dev.Mountpoint,
			Swap:       dev.Swap,
			DedupKey:   dev.DedupKey,
			Properties: dev.Properties,
		}
		if dev.Wholedisk != nil {
			dump.Wholedisk = dev.Wholedisk.Name
		}
		childIt := dev.Children()
		for dep, ok := childIt.Next(); ok; dep, ok = childIt.Next() {
			dump.Children = append(dump.Children, dep.Child.Name)
		}
		parentIt := dev.Parents()
		for dep, ok := parentIt.Next(); ok; dep, ok = parentIt.Next() {
			dump.Parents = append(dump.Parents, dep.Parent.Name)
		}
		ret.Devices = append(ret.Devices, dump)
	}
	return ret
}
