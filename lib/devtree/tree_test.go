// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addOwned inserts a device and hands the caller's reference to the
// tree, the way the scanner does.
func addOwned(t *testing.T, tr *Tree, dev *Device) *Device {
	t.Helper()
	require.NoError(t, tr.AddDevice(dev))
	dev.Unref()
	return dev
}

func rootNames(tr *Tree) []string {
	var ret []string
	it := tr.Roots()
	for dev, ok := it.Next(); ok; dev, ok = it.Next() {
		ret = append(ret, dev.Name)
	}
	return ret
}

func TestTree(t *testing.T) {
	t.Parallel()

	tr := NewTree()
	sda := addOwned(t, tr, NewDevice("sda"))
	sdb := addOwned(t, tr, NewDevice("sdb"))

	assert.Equal(t, 2, tr.NumDevices())
	assert.True(t, tr.HasDevice(sda))
	assert.Same(t, sda, tr.GetDevice("sda"))
	assert.Nil(t, tr.GetDevice("sdz"))

	// A device can only be tracked by one tree at a time.
	assert.Error(t, tr.AddDevice(sda))
	assert.Error(t, NewTree().AddDevice(sda))
	assert.Error(t, tr.AddDevice(nil))

	// AddRoot is idempotent, and root-set membership is separate
	// from device-set membership.
	require.NoError(t, tr.AddRoot(sda))
	require.NoError(t, tr.AddRoot(sda))
	assert.Equal(t, 1, tr.NumRoots())
	assert.True(t, tr.IsRoot(sda))
	assert.False(t, tr.IsRoot(sdb))

	// AddRoot adds to the device set if needed.
	sdc := NewDevice("sdc")
	require.NoError(t, tr.AddRoot(sdc))
	sdc.Unref()
	assert.Equal(t, 3, tr.NumDevices())
	assert.Equal(t, []string{"sda", "sdc"}, rootNames(tr))

	tr.RemoveRoot(sdc)
	assert.False(t, tr.IsRoot(sdc))
	assert.True(t, tr.HasDevice(sdc))
	assert.Equal(t, []string{"sda"}, rootNames(tr))

	assert.True(t, tr.RemoveDevice(sdb))
	assert.False(t, tr.RemoveDevice(sdb))
	assert.Equal(t, 2, tr.NumDevices())

	tr.Free()
	assert.Equal(t, 0, tr.NumDevices())
	assert.Equal(t, 0, tr.NumRoots())
}

func TestFreeSeversEdges(t *testing.T) {
	t.Parallel()

	tr := NewTree()
	sda := addOwned(t, tr, NewDevice("sda"))
	dm0 := addOwned(t, tr, NewDevice("dm-0"))
	_, err := NewDependence(sda, dm0)
	require.NoError(t, err)

	// The caller holds dm-0 past the tree's lifetime; Free must
	// not leave it with an edge to the torn-down sda.
	dm0.Ref()
	tr.Free()
	assert.Equal(t, 0, dm0.NumParents())
	dm0.Unref()
}
