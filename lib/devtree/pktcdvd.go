// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devtree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

// The pktcdvd driver does not expose its device relationships as
// holders/slaves symlinks; the only record is the side table
// /sys/class/pktcdvd/device_map, each row naming a pkt device and
// the CD/DVD device it wraps:
//
//	pktcdvd0 253:0 11:0
//
// The table is parsed once, on first use.

type pktcdvdPair struct {
	pkt   sysfs.Devno // the holder
	slave sysfs.Devno // the wrapped CD/DVD device
}

type pktcdvdMap struct {
	path   string
	parsed bool
	pairs  []pktcdvdPair
}

// SetPktcdvdMapPath tells the tree where to find the pktcdvd device
// map; an empty path (the default) means no pktcdvd support.  The
// file is not read until the first GetMate call.
func (tr *Tree) SetPktcdvdMapPath(path string) {
	tr.pktcdvd = pktcdvdMap{path: path}
}

// GetMate returns the pktcdvd mate of a device: with wantSlave=true,
// devno is a pkt device and the wrapped CD/DVD devno is returned;
// with wantSlave=false, devno is a CD/DVD device and its pkt holder
// is returned.  If devno has no mapping (or there is no device map),
// GetMate returns sysfs.NoDevno.
func (tr *Tree) GetMate(devno sysfs.Devno, wantSlave bool) sysfs.Devno {
	if !tr.pktcdvd.parsed {
		tr.pktcdvd.load()
	}
	for _, pair := range tr.pktcdvd.pairs {
		if wantSlave && pair.pkt == devno {
			return pair.slave
		}
		if !wantSlave && pair.slave == devno {
			return pair.pkt
		}
	}
	return sysfs.NoDevno
}

func (m *pktcdvdMap) load() {
	m.parsed = true
	if m.path == "" {
		return
	}
	fh, err := os.Open(m.path)
	if err != nil {
		// No pktcdvd devices on this system; not an error.
		return
	}
	defer func() {
		_ = fh.Close()
	}()
	m.pairs, _ = parsePktcdvdMap(fh)
}

func parsePktcdvdMap(r io.Reader) ([]pktcdvdPair, error) {
	var pairs []pktcdvdPair
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 {
			continue
		}
		pkt, err := sysfs.ParseDevno(fields[1])
		if err != nil {
			return pairs, fmt.Errorf("pktcdvd device map: %w", err)
		}
		slave, err := sysfs.ParseDevno(fields[2])
		if err != nil {
			return pairs, fmt.Errorf("pktcdvd device map: %w", err)
		}
		pairs = append(pairs, pktcdvdPair{pkt: pkt, slave: slave})
	}
	return pairs, scanner.Err()
}
