package cache

import (
	"sync/atomic"
	"time"
)

type entry[V any] struct {
	val      V
	lastSeen atomic.Int64 // UnixNano
}

func newEntry[V any](val V, now time.Time) *entry[V] {
	e := &entry[V]{val: val}
	e.lastSeen.Store(now.UnixNano())
	return e
}

func (e *entry[V]) touch(now time.Time) { e.lastSeen.Store(now.UnixNano()) }
