package logkv

import "logkv/index"

type Options struct {
	// 日志文件路径
	FilePath string

	// 每次写数据是否持久化
	SyncWrites bool

	// 索引类型
	IndexType IndexerType

	// 启动时是否使用 MMap 加载日志
	MMapAtStartup bool

	// Load 时是否截掉末尾不完整的记录。
	// 长度字段损坏的记录与崩溃留下的半条记录无法区分，开启后其后的数据会一并丢弃
	RepairTornTail bool
}

type IndexerType = index.IndexType

const (
	// BTree 索引
	BTree IndexerType = index.Btree

	// ART Adaptive Radix Tree 自适应基数树索引
	ART IndexerType = index.ART

	// BPlusTree B+ 树索引，索引存放在 FilePath + ".bptree" 中，每次 Load 时重建
	BPlusTree IndexerType = index.BPTree
)

var DefaultOptions = Options{
	FilePath:       "/tmp/logkv/data.log",
	SyncWrites:     false,
	IndexType:      BTree,
	MMapAtStartup:  true,
	RepairTornTail: false,
}
