// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/lsblk-ng/lib/devtree"
	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

func addDevice(t *testing.T, tr *devtree.Tree, name string, major, minor uint32) *devtree.Device {
	t.Helper()
	dev := devtree.NewDevice(name)
	dev.Devno = sysfs.MkDevno(major, minor)
	dev.Size = 1 << 30
	require.NoError(t, tr.AddDevice(dev))
	dev.Unref()
	return dev
}

func addEdge(t *testing.T, parent, child *devtree.Device) {
	t.Helper()
	_, err := devtree.NewDependence(parent, child)
	require.NoError(t, err)
}

// multipathTree is sdb and sdc both holding dm-0: the one shape
// where tree, list, and merge output all disagree.
func multipathTree(t *testing.T) (tr *devtree.Tree, sdb, sdc, dm0 *devtree.Device) {
	t.Helper()
	tr = devtree.NewTree()
	t.Cleanup(tr.Free)
	sdb = addDevice(t, tr, "sdb", 8, 16)
	sdc = addDevice(t, tr, "sdc", 8, 32)
	dm0 = addDevice(t, tr, "dm-0", 253, 0)
	require.NoError(t, tr.AddRoot(sdb))
	require.NoError(t, tr.AddRoot(sdc))
	addEdge(t, sdb, dm0)
	addEdge(t, sdc, dm0)
	return
}

func rowNames(rows []Row) []string {
	ret := make([]string, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.Device.Name)
	}
	return ret
}

func TestRowsTree(t *testing.T) {
	t.Parallel()
	tr, _, _, _ := multipathTree(t)

	// Plain tree mode repeats the shared device under each parent.
	rows := Rows(tr, Options{Mode: Tree})
	assert.Equal(t, []string{"sdb", "dm-0", "sdc", "dm-0"}, rowNames(rows))
	for _, row := range rows {
		assert.Equal(t, RowDevice, row.Kind)
	}
}

func TestRowsList(t *testing.T) {
	t.Parallel()
	tr, _, _, _ := multipathTree(t)

	// A flat list shows each device exactly once.
	rows := Rows(tr, Options{Mode: List})
	assert.Equal(t, []string{"sdb", "dm-0", "sdc"}, rowNames(rows))

	// Repeated flattening starts from a clean slate.
	rows = Rows(tr, Options{Mode: List})
	assert.Equal(t, []string{"sdb", "dm-0", "sdc"}, rowNames(rows))
}

func TestRowsMerge(t *testing.T) {
	t.Parallel()
	tr, sdb, sdc, _ := multipathTree(t)

	rows := Rows(tr, Options{Mode: Tree, Merge: true})
	require.Equal(t, []string{"sdb", "dm-0", "sdc", "dm-0"}, rowNames(rows))

	// Under sdb (not the last parent) there is only a reference;
	// the real row is anchored under sdc and carries the group.
	assert.Equal(t, RowGroupRef, rows[1].Kind)
	assert.Same(t, sdb, rows[1].Parent)
	assert.Equal(t, RowDevice, rows[3].Kind)
	assert.Same(t, sdc, rows[3].Parent)
	assert.Equal(t, []*devtree.Device{sdb, sdc}, rows[3].GroupParents)
}

func TestRowsCycle(t *testing.T) {
	t.Parallel()

	tr := devtree.NewTree()
	t.Cleanup(tr.Free)
	a := addDevice(t, tr, "a", 253, 0)
	b := addDevice(t, tr, "b", 253, 1)
	require.NoError(t, tr.AddRoot(a))
	addEdge(t, a, b)
	addEdge(t, b, a)

	// A malformed, cyclic topology renders as a truncated tree
	// rather than hanging.
	rows := Rows(tr, Options{Mode: Tree})
	assert.Equal(t, []string{"a", "b"}, rowNames(rows))
}

func TestPrint(t *testing.T) {
	t.Parallel()

	tr := devtree.NewTree()
	t.Cleanup(tr.Free)
	sda := addDevice(t, tr, "sda", 8, 0)
	sda1 := addDevice(t, tr, "sda1", 8, 1)
	sda2 := addDevice(t, tr, "sda2", 8, 2)
	sda.Ref()
	sda1.Wholedisk = sda
	sda.Ref()
	sda2.Wholedisk = sda
	sda1.Mountpoint = "/"
	sda1.Mounted = true
	sda2.Swap = true
	require.NoError(t, tr.AddRoot(sda))
	addEdge(t, sda, sda1)
	addEdge(t, sda, sda2)

	var sb strings.Builder
	require.NoError(t, Print(&sb, tr, Options{Mode: Tree}))
	out := sb.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "MOUNTPOINT")
	assert.True(t, strings.HasPrefix(lines[1], "sda "))
	assert.Contains(t, lines[1], "disk")
	assert.Contains(t, lines[2], "├─sda1")
	assert.Contains(t, lines[2], "part")
	assert.Contains(t, lines[2], "/")
	assert.Contains(t, lines[3], "└─sda2")
	assert.Contains(t, lines[3], "[SWAP]")
}

func TestDump(t *testing.T) {
	t.Parallel()
	tr, _, _, _ := multipathTree(t)

	dump := Dump(tr)
	assert.Equal(t, []string{"sdb", "sdc"}, dump.Roots)
	require.Len(t, dump.Devices, 3)
	assert.Equal(t, "sdb", dump.Devices[0].Name)
	assert.Equal(t, "8:16", dump.Devices[0].Devno)
	assert.Equal(t, []string{"dm-0"}, dump.Devices[0].Children)
	assert.Equal(t, "dm-0", dump.Devices[2].Name)
	assert.Equal(t, []string{"sdb", "sdc"}, dump.Devices[2].Parents)
}
