package index

import (
	"bytes"
	"fmt"

	"github.com/google/btree"

	"logkv/data"
)

// Indexer 抽象索引接口，后续如果想要接入其他的数据结构，则直接实现这个接口即可
// 索引只保存每个 key 最新一条记录的位置，墓碑记录同样写入索引
type Indexer interface {
	// Put 向索引中存储 key 对应的数据位置信息，后写入的覆盖先写入的
	Put(key []byte, pos *data.LogRecordPos) bool

	// Get 根据 key 取出对应的索引位置信息，不存在时返回 nil
	Get(key []byte) *data.LogRecordPos

	// Size 索引中的 key 数量
	Size() int

	// Ascend 按 key 升序遍历，fn 返回 false 时停止
	Ascend(fn func(key []byte, pos *data.LogRecordPos) bool)

	// Reset 清空索引，重建索引之前调用
	Reset() error

	// Close 关闭索引
	Close() error
}

type IndexType = int8

const (
	// Btree 索引
	Btree IndexType = iota + 1

	// ART 自适应基数树索引
	ART

	// BPTree B+ 树索引，存放在可随时重建的临时文件中
	BPTree
)

// NewIndexer 根据类型初始化索引，indexPath 只有 BPTree 使用
func NewIndexer(typ IndexType, indexPath string) (Indexer, error) {
	switch typ {
	case Btree:
		return NewBTree(), nil
	case ART:
		return NewART(), nil
	case BPTree:
		return NewBPlusTree(indexPath)
	default:
		return nil, fmt.Errorf("unsupported index type %d", typ)
	}
}

// MaxKeySize 返回该类型索引能保存的最大 key 长度，0 表示不限制
func MaxKeySize(typ IndexType) int {
	if typ == BPTree {
		return bptreeMaxKeySize
	}
	return 0
}

type Item struct {
	key []byte
	pos *data.LogRecordPos
}

func (ai *Item) Less(bi btree.Item) bool {
	return bytes.Compare(ai.key, bi.(*Item).key) == -1
}
