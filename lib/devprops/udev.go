// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devprops

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

// UdevDB reads properties out of udev's on-disk database
// (/run/udev/data), where a block device's record is the file
// "b<major>:<minor>" and property lines look like
//
//	E:ID_FS_UUID=8e1f8a64-...
//
// This is the same fallback that lsblk uses when it cannot talk to
// libudev directly: no device access, no content probing, just the
// values udev already gathered.
type UdevDB struct {
	Dir string // empty means /run/udev/data
}

var _ Provider = UdevDB{}

func (db UdevDB) Get(_ context.Context, devno sysfs.Devno) (Properties, error) {
	dir := db.Dir
	if dir == "" {
		dir = "/run/udev/data"
	}
	fh, err := os.Open(filepath.Join(dir, "b"+devno.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return Properties{}, nil
		}
		return Properties{}, fmt.Errorf("udev db: %w", err)
	}
	defer func() {
		_ = fh.Close()
	}()

	var ret Properties
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "E:") {
			continue
		}
		key, val, ok := strings.Cut(line[len("E:"):], "=")
		if !ok {
			continue
		}
		switch key {
		case "ID_FS_UUID":
			ret.UUID = val
		case "ID_FS_LABEL":
			ret.Label = val
		case "ID_FS_TYPE":
			ret.FSType = val
		case "ID_PART_ENTRY_UUID":
			ret.PartUUID = val
		case "ID_PART_ENTRY_NAME":
			ret.PartLabel = val
		case "ID_PART_ENTRY_TYPE":
			ret.PartType = val
		case "ID_SERIAL_SHORT":
			ret.Serial = val
		case "ID_WWN":
			ret.WWN = val
		case "ID_MODEL":
			ret.Model = val
		}
	}
	if err := scanner.Err(); err != nil {
		return Properties{}, fmt.Errorf("udev db: %w", err)
	}
	return ret, nil
}
