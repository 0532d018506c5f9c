package engine

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks stripes mutexes by key hash so unrelated keys rarely contend.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyLocks() *keyLocks { return &keyLocks{} }

func (k *keyLocks) forKey(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &k.stripes[h.Sum32()%lockStripes]
}
