// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package sysfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevno(t *testing.T) {
	t.Parallel()

	devno := MkDevno(8, 1)
	assert.Equal(t, uint32(8), devno.Major())
	assert.Equal(t, uint32(1), devno.Minor())
	assert.Equal(t, "8:1", devno.String())

	// Minors above 255 spill out of the classic 8-bit field.
	devno = MkDevno(259, 1048576)
	assert.Equal(t, uint32(259), devno.Major())
	assert.Equal(t, uint32(1048576), devno.Minor())

	parsed, err := ParseDevno("259:1048576")
	require.NoError(t, err)
	assert.Equal(t, devno, parsed)

	for _, bad := range []string{"", "8", "8:", ":1", "eight:one"} {
		_, err := ParseDevno(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
