// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package devprops looks up per-device properties (filesystem UUID,
// label, type, partition identity) that sysfs itself does not carry.
//
// The devtree consumes these values opaquely; the only semantic load
// any of them bears is serving as the deduplication key.
package devprops

import (
	"context"

	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

type Properties struct {
	UUID      string // filesystem UUID
	Label     string // filesystem label
	FSType    string
	PartUUID  string
	PartLabel string
	PartType  string
	Serial    string
	WWN       string
	Model     string
}

// ByField returns the named field, for callers (like `--dedup
// FIELD`) that pick the key at run time; unknown names return "".
func (p Properties) ByField(field string) string {
	switch field {
	case "UUID":
		return p.UUID
	case "LABEL":
		return p.Label
	case "FSTYPE":
		return p.FSType
	case "PARTUUID":
		return p.PartUUID
	case "PARTLABEL":
		return p.PartLabel
	case "PARTTYPE":
		return p.PartType
	case "SERIAL":
		return p.Serial
	case "WWN":
		return p.WWN
	case "MODEL":
		return p.Model
	default:
		return ""
	}
}

// Map returns the non-empty fields keyed by their ByField names.
func (p Properties) Map() map[string]string {
	ret := make(map[string]string)
	for _, field := range []string{"UUID", "LABEL", "FSTYPE", "PARTUUID", "PARTLABEL", "PARTTYPE", "SERIAL", "WWN", "MODEL"} {
		if val := p.ByField(field); val != "" {
			ret[field] = val
		}
	}
	return ret
}

// A Provider resolves a device to its Properties.  A device the
// provider knows nothing about yields zero Properties and a nil
// error; errors are reserved for the lookup mechanism itself
// breaking.
type Provider interface {
	Get(ctx context.Context, devno sysfs.Devno) (Properties, error)
}

// Static is a fixed Properties table; mainly for tests.
type Static map[sysfs.Devno]Properties

var _ Provider = Static(nil)

func (s Static) Get(_ context.Context, devno sysfs.Devno) (Properties, error) {
	return s[devno], nil
}
