package data

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"logkv/fio"
)

// DataFile 数据文件，即追加写入的日志
type DataFile struct {
	FilePath  string        // 文件路径
	WriteOff  int64         // 文件写到了哪个位置
	IoManager fio.IOManager // io 读写管理
}

// OpenDataFile 打开数据文件，不存在则创建；不读取任何内容
func OpenDataFile(filePath string, ioType fio.FileIOType) (*DataFile, error) {
	ioManager, err := fio.NewIOManager(filePath, ioType)
	if err != nil {
		return nil, err
	}
	size, err := ioManager.Size()
	if err != nil {
		_ = ioManager.Close()
		return nil, err
	}
	return &DataFile{
		FilePath:  filePath,
		WriteOff:  size,
		IoManager: ioManager,
	}, nil
}

// AppendLogRecord 编码并在文件末尾写入一条记录，返回记录的起始位置和长度。
// 整条记录通过一次 Write 调用写入。
func (df *DataFile) AppendLogRecord(logRecord *LogRecord) (int64, int64, error) {
	encRecord, size := EncodeLogRecord(logRecord)
	offset := df.WriteOff
	if err := df.Write(encRecord); err != nil {
		// 写了一半的记录要去掉，截断失败时按文件实际大小校正 WriteOff
		if truncErr := df.Truncate(offset); truncErr != nil {
			if fileSize, sizeErr := df.IoManager.Size(); sizeErr == nil {
				df.WriteOff = fileSize
			}
		}
		return 0, 0, err
	}
	return offset, size, nil
}

// ReadLogRecord 根据 offset 从数据文件中读取一条记录，返回记录和它的总长度。
// offset 恰好位于文件末尾时返回 io.EOF。
func (df *DataFile) ReadLogRecord(offset int64) (*LogRecord, int64, error) {
	fileSize, err := df.IoManager.Size()
	if err != nil {
		return nil, 0, err
	}
	if offset >= fileSize {
		return nil, 0, io.EOF
	}
	if offset+logRecordHeaderSize > fileSize {
		return nil, 0, fmt.Errorf("header at offset %d: %w", offset, ErrTruncatedRecord)
	}

	headerBuf, err := df.readNBytes(logRecordHeaderSize, offset)
	if err != nil {
		return nil, 0, err
	}
	header := decodeLogRecordHeader(headerBuf)

	recordSize := int64(logRecordHeaderSize) + int64(header.keySize) + int64(header.valueSize)
	if offset+recordSize > fileSize {
		return nil, 0, fmt.Errorf("record at offset %d declares %d bytes, %d available: %w",
			offset, recordSize, fileSize-offset, ErrTruncatedRecord)
	}

	payload, err := df.readNBytes(recordSize-logRecordHeaderSize, offset+logRecordHeaderSize)
	if err != nil {
		return nil, 0, err
	}
	if getLogRecordCRC(payload) != header.crc {
		return nil, 0, fmt.Errorf("record at offset %d: %w", offset, ErrChecksumMismatch)
	}

	return newLogRecord(payload, header.keySize), recordSize, nil
}

// Replay 从头顺序读取所有记录，按文件顺序对每条记录调用 fn，fn 返回 false 时停止。
// 返回最后一条完整记录之后的位置。读到文件末尾时返回 nil；
// 遇到声明长度超出文件剩余长度的记录时停止，并返回 ErrTruncatedRecord，
// 它可能是崩溃留下的半条记录，也可能是长度字段损坏，由调用方决定如何处理。
func (df *DataFile) Replay(fn func(offset int64, logRecord *LogRecord) bool) (int64, error) {
	var offset int64 = 0
	for {
		logRecord, size, err := df.ReadLogRecord(offset)
		if err != nil {
			if err == io.EOF {
				return offset, nil
			}
			return offset, err
		}
		if !fn(offset, logRecord) {
			return offset + size, nil
		}
		offset += size
	}
}

// FindLast 不依赖索引，线性扫描整个文件，返回 key 对应的最后一条记录
func (df *DataFile) FindLast(key []byte) (int64, *LogRecord, error) {
	var (
		found    *LogRecord
		foundOff int64 = -1
	)
	_, err := df.Replay(func(offset int64, logRecord *LogRecord) bool {
		if bytes.Equal(logRecord.Key, key) {
			found, foundOff = logRecord, offset
		}
		return true
	})
	// 只读扫描，末尾不完整的记录视为日志结束
	if err != nil && !errors.Is(err, ErrTruncatedRecord) {
		return 0, nil, err
	}
	if found == nil {
		return 0, nil, ErrRecordNotFound
	}
	return foundOff, found, nil
}

func (df *DataFile) Write(buf []byte) error {
	n, err := df.IoManager.Write(buf)
	df.WriteOff += int64(n)
	return err
}

// Truncate 丢弃 size 之后的内容，用于清理写了一半的尾部记录
func (df *DataFile) Truncate(size int64) error {
	if err := df.IoManager.Truncate(size); err != nil {
		return err
	}
	df.WriteOff = size
	return nil
}

func (df *DataFile) Size() (int64, error) {
	return df.IoManager.Size()
}

func (df *DataFile) Sync() error {
	return df.IoManager.Sync()
}

func (df *DataFile) Close() error {
	return df.IoManager.Close()
}

// SetIOManager 切换 IO 类型，例如启动回放用 mmap，之后切回标准文件 IO
func (df *DataFile) SetIOManager(ioType fio.FileIOType) error {
	if err := df.IoManager.Close(); err != nil {
		return err
	}
	ioManager, err := fio.NewIOManager(df.FilePath, ioType)
	if err != nil {
		return err
	}
	df.IoManager = ioManager
	return nil
}

func (df *DataFile) readNBytes(n int64, offset int64) ([]byte, error) {
	b := make([]byte, n)
	if n == 0 {
		return b, nil
	}
	_, err := df.IoManager.Read(b, offset)
	return b, err
}
