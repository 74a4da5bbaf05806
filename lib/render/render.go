// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package render walks a finished devtree and emits one row per
// device, as a tree (box-drawing art), as a flat list, or as JSON.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/datawire/dlib/derror"

	"git.lukeshu.com/lsblk-ng/lib/devtree"
	"git.lukeshu.com/lsblk-ng/lib/textui"
)

type Mode int8

const (
	Tree Mode = iota
	List
)

type Options struct {
	Mode Mode
	// Merge renders a device with several parents exactly once,
	// anchored at its most-recently-added parent; under every
	// other parent a group-reference row points at the anchored
	// one.
	Merge bool
}

type RowKind int8

const (
	// RowDevice is a regular one-device row.
	RowDevice RowKind = iota
	// RowGroupRef marks where a merged multi-parent device would
	// have appeared under one of its non-anchor parents.
	RowGroupRef
)

type Row struct {
	Kind   RowKind
	Device *devtree.Device
	Parent *devtree.Device // nil for roots
	Depth  int
	Last   bool // last row under its parent (tree art)

	// GroupParents is set on the anchored row of a merged
	// device: every parent, oldest first.
	GroupParents []*devtree.Device
}

// Rows flattens the tree into rows.  Flattening scribbles on the
// devices' Printed flags; it resets them first, so repeated calls
// are fine.
func Rows(tr *devtree.Tree, opts Options) []Row {
	it := tr.Devices()
	for dev, ok := it.Next(); ok; dev, ok = it.Next() {
		dev.Printed = false
	}

	w := walker{opts: opts}
	rootIt := tr.Roots()
	roots := make([]*devtree.Device, 0, tr.NumRoots())
	for root, ok := rootIt.Next(); ok; root, ok = rootIt.Next() {
		roots = append(roots, root)
	}
	for i, root := range roots {
		w.walk(frame{dev: root, last: i == len(roots)-1}, nil)
	}
	return w.rows
}

type frame struct {
	dev    *devtree.Device
	parent *devtree.Device
	depth  int
	last   bool
}

type walker struct {
	opts Options
	rows []Row
}

// walk emits the row(s) for one device and recurses into its
// children.  `ancestors` guards against a malformed (cyclic) sysfs
// topology: a device never appears below itself.
func (w *walker) walk(f frame, ancestors []*devtree.Device) {
	for _, anc := range ancestors {
		if anc == f.dev {
			return
		}
	}

	if w.opts.Mode == List && f.dev.Printed {
		// Already emitted via another path; a flat list wants
		// each device once.
		return
	}

	if w.opts.Merge && f.dev.NumParents() > 1 && f.parent != nil {
		if !devtree.IsLastParent(f.dev, f.parent) {
			// Another parent anchors the shared device;
			// leave a reference into the group.  DFS
			// order means the anchor's own row is emitted
			// after every reference.
			w.rows = append(w.rows, Row{
				Kind:   RowGroupRef,
				Device: f.dev,
				Parent: f.parent,
				Depth:  f.depth,
				Last:   f.last,
			})
			return
		}
	}

	row := Row{
		Kind:   RowDevice,
		Device: f.dev,
		Parent: f.parent,
		Depth:  f.depth,
		Last:   f.last,
	}
	if w.opts.Merge && f.dev.NumParents() > 1 {
		parentIt := f.dev.Parents()
		for dep, ok := parentIt.Next(); ok; dep, ok = parentIt.Next() {
			row.GroupParents = append(row.GroupParents, dep.Parent)
		}
	}
	w.rows = append(w.rows, row)
	f.dev.Printed = true

	ancestors = append(ancestors, f.dev)
	var children []*devtree.Device
	childIt := f.dev.Children()
	for dep, ok := childIt.Next(); ok; dep, ok = childIt.Next() {
		children = append(children, dep.Child)
	}
	for i, child := range children {
		w.walk(frame{
			dev:    child,
			parent: f.dev,
			depth:  f.depth + 1,
			last:   i == len(children)-1,
		}, ancestors)
	}
}

const (
	artSpace  = "  "
	artBar    = "│ "
	artTee    = "├─"
	artCorner = "└─"
	artGroup  = "┈┈"
)

// Print writes the classic columnar output.
func Print(out io.Writer, tr *devtree.Tree, opts Options) (err error) {
	defer func() {
		if _err := derror.PanicToError(recover()); _err != nil {
			err = _err
		}
	}()

	rows := Rows(tr, opts)

	table := tabwriter.NewWriter(out, 0, 8, 1, ' ', 0)
	textui.Fprintf(table, "NAME\tMAJ:MIN\tRM\tSIZE\tRO\tTYPE\tMOUNTPOINT\n")
	prefixes := make(map[int]string)
	for _, row := range rows {
		prefix := prefixes[row.Depth-1]
		var art string
		if row.Depth > 0 {
			switch {
			case row.Kind == RowGroupRef:
				art = artGroup
			case row.Last:
				art = artCorner
			default:
				art = artTee
			}
		}
		if row.Last {
			prefixes[row.Depth] = prefix + artSpace
		} else {
			prefixes[row.Depth] = prefix + artBar
		}

		if row.Kind == RowGroupRef {
			textui.Fprintf(table, "%s\t\t\t\t\t\t\n",
				prefix+art+"▶ "+row.Device.Name)
			continue
		}

		name := row.Device.Name
		if len(row.GroupParents) > 1 {
			names := make([]string, 0, len(row.GroupParents))
			for _, parent := range row.GroupParents {
				names = append(names, parent.Name)
			}
			name = fmt.Sprintf("%s [%s]", name, strings.Join(names, "+"))
		}
		textui.Fprintf(table, "%s\t%v\t%s\t%v\t%s\t%s\t%s\n",
			prefix+art+name,
			row.Device.Devno,
			boolCol(row.Device.Removable),
			textui.IEC(row.Device.Size, "B"),
			boolCol(row.Device.ReadOnly),
			typeOf(row.Device),
			mountpointCol(row.Device))
	}
	return table.Flush()
}

func boolCol(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func mountpointCol(dev *devtree.Device) string {
	if dev.Swap {
		return "[SWAP]"
	}
	return dev.Mountpoint
}

func typeOf(dev *devtree.Device) string {
	switch {
	case dev.IsPartition():
		return "part"
	case dev.DMName != "":
		return "dm"
	case strings.HasPrefix(dev.Name, "sr"):
		return "rom"
	case strings.HasPrefix(dev.Name, "pktcdvd"):
		return "pkt"
	case strings.HasPrefix(dev.Name, "md"):
		return "raid"
	case strings.HasPrefix(dev.Name, "loop"):
		return "loop"
	default:
		return "disk"
	}
}
