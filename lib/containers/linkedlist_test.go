// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect[T any](it *Iter[T]) []T {
	var ret []T
	for val, ok := it.Next(); ok; val, ok = it.Next() {
		ret = append(ret, val)
	}
	return ret
}

func TestLinkedList(t *testing.T) {
	t.Parallel()

	var list LinkedList[string]
	assert.True(t, list.IsEmpty())
	assert.Equal(t, 0, list.Len())
	assert.Nil(t, list.Oldest())
	assert.Nil(t, list.Newest())

	a := list.Store("a")
	b := list.Store("b")
	list.Store("c")
	assert.False(t, list.IsEmpty())
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, "a", list.Oldest().Value)
	assert.Equal(t, "c", list.Newest().Value)

	list.Delete(b)
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, []string{"a", "c"}, collect(NewIter(&list, Forward)))

	list.Delete(a)
	assert.Equal(t, "c", list.Oldest().Value)
	assert.Equal(t, "c", list.Newest().Value)

	list.Delete(list.Oldest())
	assert.True(t, list.IsEmpty())
	assert.Equal(t, 0, list.Len())
}

func TestLinkedListDeleteForeign(t *testing.T) {
	t.Parallel()

	var listA, listB LinkedList[int]
	entry := listA.Store(1)
	listB.Store(2)
	assert.Panics(t, func() {
		listB.Delete(entry)
	})
}

func TestIter(t *testing.T) {
	t.Parallel()

	var list LinkedList[int]
	for i := 1; i <= 4; i++ {
		list.Store(i)
	}

	assert.Equal(t, []int{1, 2, 3, 4}, collect(NewIter(&list, Forward)))
	assert.Equal(t, []int{4, 3, 2, 1}, collect(NewIter(&list, Backward)))

	it := NewIter(&list, Forward)
	assert.Equal(t, []int{1, 2, 3, 4}, collect(it))
	_, ok := it.Next()
	assert.False(t, ok)
	it.Reset()
	assert.Equal(t, []int{1, 2, 3, 4}, collect(it))

	var empty LinkedList[int]
	_, ok = NewIter(&empty, Forward).Next()
	assert.False(t, ok)
}
