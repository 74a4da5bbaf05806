// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package sysfs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Devno is a combined major:minor number identifying a kernel block
// device, in the kernel's 64-bit dev_t encoding.
//
// The zero Devno is never a real block device, and doubles as the
// "no such device" sentinel.
type Devno uint64

const NoDevno Devno = 0

func MkDevno(major, minor uint32) Devno {
	return Devno(unix.Mkdev(major, minor))
}

func (d Devno) Major() uint32 { return unix.Major(uint64(d)) }
func (d Devno) Minor() uint32 { return unix.Minor(uint64(d)) }

// String returns the "major:minor" form used by sysfs `dev`
// attributes and by /proc/self/mountinfo.
func (d Devno) String() string {
	return fmt.Sprintf("%d:%d", d.Major(), d.Minor())
}

// ParseDevno parses the "major:minor" form.
func ParseDevno(s string) (Devno, error) {
	var major, minor uint32
	if _, err := fmt.Sscanf(s, "%d:%d", &major, &minor); err != nil {
		return NoDevno, fmt.Errorf("invalid maj:min number %q: %w", s, err)
	}
	return MkDevno(major, minor), nil
}
