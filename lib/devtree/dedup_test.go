// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

func dedupByKey(dev *Device) string { return dev.DedupKey }

// Two paths to the same LUN: sda and sdb carry the same WWN, each
// holding the same multipath device.  De-duplication keeps the
// lowest-numbered path and hides the other, without freeing anything.
func TestDeduplicate(t *testing.T) {
	t.Parallel()

	tr := NewTree()
	sda := addOwned(t, tr, NewDevice("sda"))
	sda.Devno = sysfs.MkDevno(8, 0)
	sda.DedupKey = "0x5000c500a1b2c3d4"
	sdb := addOwned(t, tr, NewDevice("sdb"))
	sdb.Devno = sysfs.MkDevno(8, 16)
	sdb.DedupKey = "0x5000c500a1b2c3d4"
	dm0 := addOwned(t, tr, NewDevice("dm-0"))
	dm0.Devno = sysfs.MkDevno(253, 0)

	require.NoError(t, tr.AddRoot(sda))
	require.NoError(t, tr.AddRoot(sdb))
	for _, disk := range []*Device{sda, sdb} {
		_, err := NewDependence(disk, dm0)
		require.NoError(t, err)
	}

	tr.Deduplicate(dedupByKey)

	assert.Equal(t, []string{"sda"}, rootNames(tr))
	// Devices are never freed, only hidden from the root set.
	assert.Equal(t, 3, tr.NumDevices())
	assert.True(t, tr.HasDevice(sdb))
	assert.Equal(t, []string{"dm-0"}, childNames(sda))

	// Idempotent.
	tr.Deduplicate(dedupByKey)
	assert.Equal(t, []string{"sda"}, rootNames(tr))
	assert.Equal(t, 3, tr.NumDevices())
}

func TestDeduplicateEdges(t *testing.T) {
	t.Parallel()

	tr := NewTree()
	sda := addOwned(t, tr, NewDevice("sda"))
	sda.Devno = sysfs.MkDevno(8, 0)
	sda.DedupKey = "K"
	sdc := addOwned(t, tr, NewDevice("sdc"))
	sdc.Devno = sysfs.MkDevno(8, 32)
	dm0 := addOwned(t, tr, NewDevice("dm-0"))
	dm0.Devno = sysfs.MkDevno(253, 0)
	dm0.DedupKey = "K"

	require.NoError(t, tr.AddRoot(sda))
	require.NoError(t, tr.AddRoot(sdc))
	_, err := NewDependence(sdc, dm0)
	require.NoError(t, err)

	tr.Deduplicate(dedupByKey)

	// sda (8:0) is the keeper for K; the edge to the duplicate
	// dm-0 is pruned, the device itself is not.
	assert.Equal(t, []string{"sda", "sdc"}, rootNames(tr))
	assert.Equal(t, 0, sdc.NumChildren())
	assert.True(t, tr.HasDevice(dm0))
}

// A partition shares its whole disk's identity; that must never
// count as a duplicate.
func TestDeduplicatePartition(t *testing.T) {
	t.Parallel()

	tr := NewTree()
	sda := addOwned(t, tr, NewDevice("sda"))
	sda.Devno = sysfs.MkDevno(8, 0)
	sda.DedupKey = "K"
	sda1 := addOwned(t, tr, NewDevice("sda1"))
	sda1.Devno = sysfs.MkDevno(8, 1)
	sda1.DedupKey = "K"
	sda.Ref()
	sda1.Wholedisk = sda

	require.NoError(t, tr.AddRoot(sda))
	_, err := NewDependence(sda, sda1)
	require.NoError(t, err)

	tr.Deduplicate(dedupByKey)

	assert.Equal(t, []string{"sda"}, rootNames(tr))
	assert.Equal(t, []string{"sda1"}, childNames(sda))
}
