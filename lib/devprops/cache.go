// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package devprops

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"git.lukeshu.com/lsblk-ng/lib/sysfs"
)

// Cached wraps a Provider with an ARC cache, so that a render pass
// that asks about the same device several times (dedup key, then
// columns) hits the udev database once.
type Cached struct {
	Inner Provider

	initOnce sync.Once
	cache    *lru.ARCCache
}

var _ Provider = (*Cached)(nil)

func (c *Cached) init() {
	c.initOnce.Do(func() {
		c.cache, _ = lru.NewARC(128)
	})
}

func (c *Cached) Get(ctx context.Context, devno sysfs.Devno) (Properties, error) {
	c.init()
	if cached, ok := c.cache.Get(devno); ok {
		return cached.(Properties), nil
	}
	props, err := c.Inner.Get(ctx, devno)
	if err != nil {
		return Properties{}, err
	}
	c.cache.Add(devno, props)
	return props, nil
}
