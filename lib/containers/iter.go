// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

// Direction says which way an Iter walks its LinkedList.
type Direction int8

const (
	Forward  Direction = iota // oldest → newest
	Backward                  // newest → oldest
)

// Iter is a cursor over a LinkedList[T].
//
// The zero Iter is not useful; create one with NewIter.  Multiple
// independent Iters over the same list are fine, as long as the list
// is not mutated while any of them is in use; deleting the entry that
// a cursor is currently parked on invalidates that cursor.
type Iter[T any] struct {
	list *LinkedList[T]
	dir  Direction

	cur     *LinkedListEntry[T]
	started bool
}

// NewIter returns a cursor over `list` that walks in the given
// direction.
func NewIter[T any](list *LinkedList[T], dir Direction) *Iter[T] {
	return &Iter[T]{
		list: list,
		dir:  dir,
	}
}

// Reset rewinds the cursor to the start of the list, keeping its
// direction.
func (it *Iter[T]) Reset() {
	it.cur = nil
	it.started = false
}

// Next advances the cursor and returns the value it lands on.  Once
// the walk has passed the final entry, Next returns ok=false, and
// keeps returning ok=false until Reset is called.
func (it *Iter[T]) Next() (val T, ok bool) {
	if !it.started {
		it.started = true
		switch it.dir {
		case Forward:
			it.cur = it.list.Oldest()
		case Backward:
			it.cur = it.list.Newest()
		}
	} else if it.cur != nil {
		switch it.dir {
		case Forward:
			it.cur = it.cur.newer
		case Backward:
			it.cur = it.cur.older
		}
	}
	if it.cur == nil {
		var zero T
		return zero, false
	}
	return it.cur.Value, true
}
