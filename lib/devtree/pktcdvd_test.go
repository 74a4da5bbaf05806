// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devtree

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

func TestParsePktcdvdMap(t *testing.T) {
	t.Parallel()

	pairs, err := parsePktcdvdMap(strings.NewReader("" +
		"pktcdvd0 253:0 11:0\n" +
		"pktcdvd1 253:1 11:1\n" +
		"\n" +
		"garbage line\n"))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, sysfs.MkDevno(253, 0), pairs[0].pkt)
	assert.Equal(t, sysfs.MkDevno(11, 0), pairs[0].slave)
	assert.Equal(t, sysfs.MkDevno(253, 1), pairs[1].pkt)
	assert.Equal(t, sysfs.MkDevno(11, 1), pairs[1].slave)

	_, err = parsePktcdvdMap(strings.NewReader("pktcdvd0 bogus 11:0\n"))
	assert.Error(t, err)
}

func TestGetMate(t *testing.T) {
	t.Parallel()

	mapPath := filepath.Join(t.TempDir(), "device_map")
	require.NoError(t, os.WriteFile(mapPath, []byte("pktcdvd0 253:0 11:0\n"), 0o600))

	tr := NewTree()
	tr.SetPktcdvdMapPath(mapPath)

	pkt := sysfs.MkDevno(253, 0)
	sr := sysfs.MkDevno(11, 0)
	assert.Equal(t, sr, tr.GetMate(pkt, true))
	assert.Equal(t, pkt, tr.GetMate(sr, false))

	// The relation is direction-sensitive.
	assert.Equal(t, sysfs.NoDevno, tr.GetMate(pkt, false))
	assert.Equal(t, sysfs.NoDevno, tr.GetMate(sr, true))
	assert.Equal(t, sysfs.NoDevno, tr.GetMate(sysfs.MkDevno(8, 0), true))
}

func TestGetMateNoMap(t *testing.T) {
	t.Parallel()

	// No device map configured at all.
	tr := NewTree()
	assert.Equal(t, sysfs.NoDevno, tr.GetMate(sysfs.MkDevno(253, 0), true))

	// A configured path that doesn't exist (no pktcdvd devices).
	tr = NewTree()
	tr.SetPktcdvdMapPath(filepath.Join(t.TempDir(), "device_map"))
	assert.Equal(t, sysfs.NoDevno, tr.GetMate(sysfs.MkDevno(253, 0), true))
}
