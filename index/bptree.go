package index

import (
	"os"

	"go.etcd.io/bbolt"

	"logkv/data"
)

const (
	bptreeIndexFileMode = 0644
	bptreeMaxKeySize    = bbolt.MaxKeySize
)

var indexBucketName = []byte("logkv-index")

// BPlusTree B+ 树索引，封装了 go.etcd.io/bbolt
// 索引文件只是缓存，每次 Reset 都会清空，内容始终可以从日志重建
type BPlusTree struct {
	tree *bbolt.DB
	path string
}

// NewBPlusTree 打开索引文件，旧的索引文件会被删除
func NewBPlusTree(path string) (*BPlusTree, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	opts := &bbolt.Options{NoSync: true}
	bptree, err := bbolt.Open(path, bptreeIndexFileMode, opts)
	if err != nil {
		return nil, err
	}
	// 创建对应的 bucket
	if err := bptree.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(indexBucketName)
		return err
	}); err != nil {
		_ = bptree.Close()
		return nil, err
	}
	return &BPlusTree{tree: bptree, path: path}, nil
}

func (bpt *BPlusTree) Put(key []byte, pos *data.LogRecordPos) bool {
	if err := bpt.tree.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(indexBucketName)
		return bucket.Put(key, data.EncodeLogRecordPos(pos))
	}); err != nil {
		return false
	}
	return true
}

func (bpt *BPlusTree) Get(key []byte) *data.LogRecordPos {
	var pos *data.LogRecordPos
	if err := bpt.tree.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(indexBucketName)
		value := bucket.Get(key)
		if len(value) != 0 {
			pos = data.DecodeLogRecordPos(value)
		}
		return nil
	}); err != nil {
		return nil
	}
	return pos
}

func (bpt *BPlusTree) Size() int {
	var size int
	if err := bpt.tree.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(indexBucketName)
		size = bucket.Stats().KeyN
		return nil
	}); err != nil {
		return 0
	}
	return size
}

// Ascend 遍历期间持有只读事务，key 在回调结束后不能继续使用
func (bpt *BPlusTree) Ascend(fn func(key []byte, pos *data.LogRecordPos) bool) {
	_ = bpt.tree.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(indexBucketName).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if !fn(k, data.DecodeLogRecordPos(v)) {
				break
			}
		}
		return nil
	})
}

func (bpt *BPlusTree) Reset() error {
	return bpt.tree.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(indexBucketName); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(indexBucketName)
		return err
	})
}

// Close 关闭并删除索引文件
func (bpt *BPlusTree) Close() error {
	if err := bpt.tree.Close(); err != nil {
		return err
	}
	return os.Remove(bpt.path)
}
