// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

import (
	"git.lukeshu.com/go/typedsync"
)

// LinkedListEntry[T] is an entry in a LinkedList[T].
//
// Holders of an entry may keep the returned *LinkedListEntry around
// in order to later Delete it in O(1); this is how the devtree keeps
// a device's membership in several lists at once without scanning.
type LinkedListEntry[T any] struct {
	older, newer *LinkedListEntry[T]
	list         *LinkedList[T]
	Value        T
}

// LinkedList is a doubly-linked list.
//
// Rather than "head/tail", "front/back", or "next/prev", it has
// "oldest" and "newest"; insertion order is the only order there is,
// and that temporal naming keeps call sites readable ("the newest
// parent" is exactly the notion that last-parent anchoring needs).
//
// An advantage over `container/list.List` is that LinkedList
// maintains a Pool of entries, so churning through the list does not
// churn out garbage.  However, LinkedList also has fewer safety
// checks and fewer features in general.
type LinkedList[T any] struct {
	oldest, newest *LinkedListEntry[T]
	len            int
	pool           typedsync.Pool[*LinkedListEntry[T]]
}

// IsEmpty returns whether the list is empty or not.
func (l *LinkedList[T]) IsEmpty() bool {
	return l.oldest == nil
}

// Len returns the number of entries in the list.
func (l *LinkedList[T]) Len() int {
	return l.len
}

// Delete removes an entry from the list.  The entry is invalid once
// Delete returns, and should not be reused or have its .Value
// accessed.
//
// It is invalid (runtime-panic) to call Delete on a nil entry or on
// an entry that isn't in this list.
func (l *LinkedList[T]) Delete(entry *LinkedListEntry[T]) {
	if entry.list != l {
		panic("LinkedList.Delete: entry is not in this list")
	}
	if entry.newer == nil {
		l.newest = entry.older
	} else {
		entry.newer.older = entry.older
	}
	if entry.older == nil {
		l.oldest = entry.newer
	} else {
		entry.older.newer = entry.newer
	}
	l.len--

	*entry = LinkedListEntry[T]{} // no memory leaks
	l.pool.Put(entry)
}

// Store appends a value to the "newest" end of the list, returning
// the created entry.
func (l *LinkedList[T]) Store(val T) *LinkedListEntry[T] {
	entry, ok := l.pool.Get()
	if !ok {
		entry = new(LinkedListEntry[T])
	}
	*entry = LinkedListEntry[T]{
		older: l.newest,
		list:  l,
		Value: val,
	}
	l.newest = entry
	if entry.older == nil {
		l.oldest = entry
	} else {
		entry.older.newer = entry
	}
	l.len++
	return entry
}

// Oldest returns the entry at the "oldest" end of the list, or nil if
// the list is empty.
func (l *LinkedList[T]) Oldest() *LinkedListEntry[T] {
	return l.oldest
}

// Newest returns the entry at the "newest" end of the list, or nil if
// the list is empty.
func (l *LinkedList[T]) Newest() *LinkedListEntry[T] {
	return l.newest
}
