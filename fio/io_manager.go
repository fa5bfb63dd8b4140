package fio

import "errors"

// DataFilePerm 数据文件权限
const DataFilePerm = 0644

type FileIOType = byte

const (
	// StandardFIO 标准文件 IO
	StandardFIO FileIOType = iota

	// MemoryMap 内存文件映射，只读，用于启动时加速回放
	MemoryMap
)

// ErrReadOnly is returned by write-side calls on a read-only IO manager.
var ErrReadOnly = errors.New("io manager is read only")

// IOManager 抽象 IO 管理接口，可以接入不同的 IO 类型
type IOManager interface {
	// Read 从文件的给定位置读取对应的数据
	Read([]byte, int64) (int, error)

	// Write 在文件末尾追加写入字节数组
	Write([]byte) (int, error)

	// Sync 持久化数据
	Sync() error

	// Close 关闭文件
	Close() error

	// Size 获取到文件大小
	Size() (int64, error)

	// Truncate 将文件截断到指定大小
	Truncate(int64) error
}

// NewIOManager 初始化 IOManager
func NewIOManager(fileName string, ioType FileIOType) (IOManager, error) {
	switch ioType {
	case StandardFIO:
		return NewFileIOManager(fileName)
	case MemoryMap:
		return NewMMapIOManager(fileName)
	default:
		panic("unsupported io type")
	}
}
