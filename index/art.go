package index

import (
	"sync"

	goart "github.com/plar/go-adaptive-radix-tree"

	"logkv/data"
)

// AdaptiveRadixTree 自适应基数树索引
// https://github.com/plar/go-adaptive-radix-tree
type AdaptiveRadixTree struct {
	tree goart.Tree
	lock *sync.RWMutex
}

func NewART() *AdaptiveRadixTree {
	return &AdaptiveRadixTree{
		tree: goart.New(),
		lock: new(sync.RWMutex),
	}
}

func (art *AdaptiveRadixTree) Put(key []byte, pos *data.LogRecordPos) bool {
	art.lock.Lock()
	art.tree.Insert(key, pos)
	art.lock.Unlock()
	return true
}

func (art *AdaptiveRadixTree) Get(key []byte) *data.LogRecordPos {
	art.lock.RLock()
	value, found := art.tree.Search(key)
	art.lock.RUnlock()
	if !found {
		return nil
	}
	return value.(*data.LogRecordPos)
}

func (art *AdaptiveRadixTree) Size() int {
	art.lock.RLock()
	defer art.lock.RUnlock()
	return art.tree.Size()
}

func (art *AdaptiveRadixTree) Ascend(fn func(key []byte, pos *data.LogRecordPos) bool) {
	art.lock.RLock()
	defer art.lock.RUnlock()
	art.tree.ForEach(func(node goart.Node) bool {
		return fn(node.Key(), node.Value().(*data.LogRecordPos))
	}, goart.TraverseLeaf)
}

func (art *AdaptiveRadixTree) Reset() error {
	art.lock.Lock()
	art.tree = goart.New()
	art.lock.Unlock()
	return nil
}

func (art *AdaptiveRadixTree) Close() error {
	return nil
}
