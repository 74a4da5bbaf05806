// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package sysfs reads the kernel's block-device topology out of a
// sysfs mount.
//
// All functions take the sysfs root as configuration (normally
// "/sys"), so that tests can point them at a fake tree; nothing in
// this package writes to the filesystem.
package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Context is a handle on one sysfs mount.
type Context struct {
	root string
}

func New(root string) *Context {
	if root == "" {
		root = "/sys"
	}
	return &Context{root: root}
}

func (sf *Context) Root() string { return sf.root }

// CanonName translates a sysfs directory-entry name to a kernel
// device name; sysfs encodes '/' in device names (e.g.
// "cciss/c0d0") as '!'.
func CanonName(sysName string) string {
	return strings.ReplaceAll(sysName, "!", "/")
}

// SysName is the inverse of CanonName.
func SysName(name string) string {
	return strings.ReplaceAll(name, "/", "!")
}

// BlockDevices lists the names of the whole-disk devices in
// /sys/block, sorted.
func (sf *Context) BlockDevices() ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(sf.root, "block"))
	if err != nil {
		return nil, fmt.Errorf("sysfs: %w", err)
	}
	names := make([]string, 0, len(ents))
	for _, ent := range ents {
		names = append(names, CanonName(ent.Name()))
	}
	sort.Strings(names)
	return names, nil
}

// DevnoToName resolves a devno to a kernel device name via
// /sys/dev/block.
func (sf *Context) DevnoToName(devno Devno) (string, error) {
	target, err := os.Readlink(filepath.Join(sf.root, "dev", "block", devno.String()))
	if err != nil {
		return "", fmt.Errorf("sysfs: devno %v: %w", devno, err)
	}
	return CanonName(filepath.Base(target)), nil
}

// A DeviceDir is the sysfs directory of one block device.  It is
// just a path; it holds no open file descriptor, so that scanning a
// graph with thousands of nodes does not brush up against the
// process fd limit.
type DeviceDir struct {
	sf   *Context
	Name string
	path string
}

// DeviceDir returns the directory for a whole-disk device.
func (sf *Context) DeviceDir(name string) DeviceDir {
	return DeviceDir{
		sf:   sf,
		Name: name,
		path: filepath.Join(sf.root, "block", SysName(name)),
	}
}

// DeviceDirByDevno returns the directory for any block device,
// partitions included.
func (sf *Context) DeviceDirByDevno(devno Devno) DeviceDir {
	return DeviceDir{
		sf:   sf,
		path: filepath.Join(sf.root, "dev", "block", devno.String()),
	}
}

// ClassBlockDir returns the directory for any named block device,
// partitions included, via /sys/class/block.
func (sf *Context) ClassBlockDir(name string) DeviceDir {
	return DeviceDir{
		sf:   sf,
		Name: name,
		path: filepath.Join(sf.root, "class", "block", SysName(name)),
	}
}

// Wholedisk resolves the whole-disk device that a partition belongs
// to, by inspecting the partition's /sys/class/block symlink (its
// directory nests inside the disk's).
func (sf *Context) Wholedisk(partName string) (string, error) {
	target, err := os.Readlink(filepath.Join(sf.root, "class", "block", SysName(partName)))
	if err != nil {
		return "", fmt.Errorf("sysfs: %s: %w", partName, err)
	}
	parent := filepath.Base(filepath.Dir(target))
	if parent == "block" || parent == "." || parent == "/" {
		return "", fmt.Errorf("sysfs: %s: not a partition", partName)
	}
	return CanonName(parent), nil
}

// PartitionDir returns the directory for a partition of the given
// disk.
func (d DeviceDir) PartitionDir(name string) DeviceDir {
	return DeviceDir{
		sf:   d.sf,
		Name: name,
		path: filepath.Join(d.path, SysName(name)),
	}
}

func (d DeviceDir) Context() *Context { return d.sf }

// HasAttr reports whether the attribute file exists.
func (d DeviceDir) HasAttr(attr string) bool {
	_, err := os.Stat(filepath.Join(d.path, attr))
	return err == nil
}

// ReadAttr reads a scalar attribute, with surrounding whitespace
// trimmed.
func (d DeviceDir) ReadAttr(attr string) (string, error) {
	data, err := os.ReadFile(filepath.Join(d.path, attr))
	if err != nil {
		return "", fmt.Errorf("sysfs: %s: %w", d.Name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadAttrU64 reads a scalar attribute as an unsigned integer.
func (d DeviceDir) ReadAttrU64(attr string) (uint64, error) {
	str, err := d.ReadAttr(attr)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sysfs: %s: attribute %q: %w", d.Name, attr, err)
	}
	return val, nil
}

// ReadDevno reads the `dev` attribute.
func (d DeviceDir) ReadDevno() (Devno, error) {
	str, err := d.ReadAttr("dev")
	if err != nil {
		return NoDevno, err
	}
	devno, err := ParseDevno(str)
	if err != nil {
		return NoDevno, fmt.Errorf("sysfs: %s: %w", d.Name, err)
	}
	return devno, nil
}

// Holders lists the `holders/` directory: devices that depend on
// this one.
func (d DeviceDir) Holders() ([]string, error) {
	return d.listDir("holders")
}

// Slaves lists the `slaves/` directory: devices that this one
// depends on.
func (d DeviceDir) Slaves() ([]string, error) {
	return d.listDir("slaves")
}

func (d DeviceDir) listDir(sub string) ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(d.path, sub))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sysfs: %s/%s: %w", d.Name, sub, err)
	}
	names := make([]string, 0, len(ents))
	for _, ent := range ents {
		names = append(names, CanonName(ent.Name()))
	}
	sort.Strings(names)
	return names, nil
}

// Partitions lists the sub-directories of a whole-disk device that
// are partitions (they carry a `partition` attribute).
func (d DeviceDir) Partitions() ([]string, error) {
	ents, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("sysfs: %s: %w", d.Name, err)
	}
	var names []string
	for _, ent := range ents {
		if !ent.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(d.path, ent.Name(), "partition")); err != nil {
			continue
		}
		names = append(names, CanonName(ent.Name()))
	}
	sort.Strings(names)
	return names, nil
}
