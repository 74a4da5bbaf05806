// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mountinfo answers "where is this block device mounted?",
// from /proc/self/mountinfo and /proc/swaps.  It is read once into a
// table; only the render layer consults it.
package mountinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"git.lukeshu.com/lsblk-ng/lib/containers"
	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

type Table struct {
	mounts map[sysfs.Devno][]string
	swaps  containers.Set[string]
}

// Load reads the mount table and the swap table.  Empty paths mean
// the usual /proc locations.  A missing swaps file is not an error
// (kernels without swap support).
func Load(mountinfoPath, swapsPath string) (*Table, error) {
	if mountinfoPath == "" {
		mountinfoPath = "/proc/self/mountinfo"
	}
	if swapsPath == "" {
		swapsPath = "/proc/swaps"
	}

	tbl := &Table{
		mounts: make(map[sysfs.Devno][]string),
		swaps:  containers.Set[string]{},
	}

	mountsFH, err := os.Open(mountinfoPath)
	if err != nil {
		return nil, err
	}
	err = tbl.parseMountinfo(mountsFH)
	_ = mountsFH.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mountinfoPath, err)
	}

	if swapsFH, err := os.Open(swapsPath); err == nil {
		err = tbl.parseSwaps(swapsFH)
		_ = swapsFH.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", swapsPath, err)
		}
	}

	return tbl, nil
}

func (tbl *Table) parseMountinfo(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// 36 35 98:0 /mnt1 /mnt2 rw,noatime master:1 - ext3 /dev/root rw
		// (0)(1) (2)  (3)   (4)   ...
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		devno, err := sysfs.ParseDevno(fields[2])
		if err != nil {
			continue
		}
		mountpoint := unescapeOctal(fields[4])
		tbl.mounts[devno] = append(tbl.mounts[devno], mountpoint)
	}
	return scanner.Err()
}

func (tbl *Table) parseSwaps(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if first { // header line
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		tbl.swaps.Insert(unescapeOctal(fields[0]))
	}
	return scanner.Err()
}

// Mountpoints returns everywhere the device is mounted, in table
// order; nil if it isn't.
func (tbl *Table) Mountpoints(devno sysfs.Devno) []string {
	return tbl.mounts[devno]
}

// Mountpoint returns the first mountpoint of the device, or "".
func (tbl *Table) Mountpoint(devno sysfs.Devno) string {
	if mps := tbl.mounts[devno]; len(mps) > 0 {
		return mps[0]
	}
	return ""
}

// IsSwap reports whether the device node (by /dev path) is an active
// swap area.
func (tbl *Table) IsSwap(filename string) bool {
	return tbl.swaps.Has(filename)
}

// Mount tables escape whitespace in paths octally ("\040" and
// friends).
func unescapeOctal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				sb.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
