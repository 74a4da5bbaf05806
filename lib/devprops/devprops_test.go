// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devprops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

func TestByField(t *testing.T) {
	t.Parallel()

	props := Properties{
		UUID:   "8e1f8a64-0000-0000-0000-000000000000",
		FSType: "ext4",
		WWN:    "0x5000c500a1b2c3d4",
	}
	assert.Equal(t, props.UUID, props.ByField("UUID"))
	assert.Equal(t, "ext4", props.ByField("FSTYPE"))
	assert.Equal(t, "", props.ByField("LABEL"))
	assert.Equal(t, "", props.ByField("NO_SUCH_FIELD"))

	assert.Equal(t, map[string]string{
		"UUID":   props.UUID,
		"FSTYPE": "ext4",
		"WWN":    props.WWN,
	}, props.Map())
}

func TestUdevDB(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b8:1"), []byte(""+
		"S:disk/by-uuid/8e1f8a64\n"+
		"E:ID_FS_UUID=8e1f8a64\n"+
		"E:ID_FS_LABEL=root\n"+
		"E:ID_FS_TYPE=ext4\n"+
		"E:ID_PART_ENTRY_UUID=11111111-01\n"+
		"E:ID_SERIAL_SHORT=S3Z9NB0K\n"+
		"E:ID_WWN=0x5000c500a1b2c3d4\n"+
		"E:ID_MODEL=Samsung_SSD_860\n"+
		"E:UNRELATED=x\n"+
		"not a property line\n"), 0o600))

	ctx := context.Background()
	db := UdevDB{Dir: dir}

	props, err := db.Get(ctx, sysfs.MkDevno(8, 1))
	require.NoError(t, err)
	assert.Equal(t, Properties{
		UUID:     "8e1f8a64",
		Label:    "root",
		FSType:   "ext4",
		PartUUID: "11111111-01",
		Serial:   "S3Z9NB0K",
		WWN:      "0x5000c500a1b2c3d4",
		Model:    "Samsung_SSD_860",
	}, props)

	// An unknown device is not an error; it just has no
	// properties.
	props, err = db.Get(ctx, sysfs.MkDevno(8, 99))
	require.NoError(t, err)
	assert.Equal(t, Properties{}, props)
}

type countingProvider struct {
	inner Provider
	calls int
}

func (p *countingProvider) Get(ctx context.Context, devno sysfs.Devno) (Properties, error) {
	p.calls++
	return p.inner.Get(ctx, devno)
}

func TestCached(t *testing.T) {
	t.Parallel()

	devno := sysfs.MkDevno(8, 1)
	counting := &countingProvider{
		inner: Static{devno: {UUID: "8e1f8a64"}},
	}
	cached := &Cached{Inner: counting}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		props, err := cached.Get(ctx, devno)
		require.NoError(t, err)
		assert.Equal(t, "8e1f8a64", props.UUID)
	}
	assert.Equal(t, 1, counting.calls)
}
