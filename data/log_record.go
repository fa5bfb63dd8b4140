package data

import (
	"encoding/binary"
	"hash/crc32"
)

type LogRecordType = byte

const (
	LogRecordNormal LogRecordType = iota
	LogRecordDeleted
)

// crc(4) + keySize(4) + valueSize(4)
const logRecordHeaderSize = 12

// LogRecord 写入到数据文件的记录
// 数据文件中的数据是追加写入的，类似日志的格式
// value 为空的记录即为墓碑（删除标记）
type LogRecord struct {
	Key   []byte
	Value []byte
	Type  LogRecordType
}

// logRecordHeader 记录头部信息
type logRecordHeader struct {
	crc       uint32 // crc 校验值
	keySize   uint32 // key 的长度
	valueSize uint32 // value 的长度
}

// LogRecordPos 数据内存索引，主要是描述数据在磁盘上的位置
type LogRecordPos struct {
	Offset int64         // 记录起始位置
	Size   uint32        // 记录在磁盘上的总长度
	Type   LogRecordType // 是否为墓碑记录
}

// EncodeLogRecord 对 LogRecord 进行编码，返回字节数组及长度
//
//	+-------------+-------------+-------------+--------------+-------------+
//	| crc 校验值   |  key size   | value size  |      key     |    value    |
//	+-------------+-------------+-------------+--------------+-------------+
//	    4 字节         4 字节        4 字节          变长            变长
func EncodeLogRecord(logRecord *LogRecord) ([]byte, int64) {
	keySize := len(logRecord.Key)
	size := EncodedSize(logRecord)

	encBytes := make([]byte, size)
	binary.LittleEndian.PutUint32(encBytes[4:8], uint32(keySize))
	binary.LittleEndian.PutUint32(encBytes[8:12], uint32(len(logRecord.Value)))
	copy(encBytes[logRecordHeaderSize:], logRecord.Key)
	copy(encBytes[logRecordHeaderSize+keySize:], logRecord.Value)

	crc := getLogRecordCRC(encBytes[logRecordHeaderSize:])
	binary.LittleEndian.PutUint32(encBytes[:4], crc)

	return encBytes, size
}

// EncodedSize 记录编码后的总长度
func EncodedSize(logRecord *LogRecord) int64 {
	return int64(logRecordHeaderSize + len(logRecord.Key) + len(logRecord.Value))
}

// decodeLogRecordHeader 对字节数组中的 header 信息进行解码
func decodeLogRecordHeader(buf []byte) *logRecordHeader {
	if len(buf) < logRecordHeaderSize {
		return nil
	}
	return &logRecordHeader{
		crc:       binary.LittleEndian.Uint32(buf[:4]),
		keySize:   binary.LittleEndian.Uint32(buf[4:8]),
		valueSize: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

// DecodeLogRecord 解码一条完整的记录并校验 crc，返回的记录不引用 buf
func DecodeLogRecord(buf []byte) (*LogRecord, error) {
	header := decodeLogRecordHeader(buf)
	if header == nil {
		return nil, ErrTruncatedRecord
	}
	size := int64(logRecordHeaderSize) + int64(header.keySize) + int64(header.valueSize)
	if int64(len(buf)) < size {
		return nil, ErrTruncatedRecord
	}
	payload := buf[logRecordHeaderSize:size]
	if getLogRecordCRC(payload) != header.crc {
		return nil, ErrChecksumMismatch
	}
	return newLogRecord(payload, header.keySize), nil
}

func newLogRecord(payload []byte, keySize uint32) *LogRecord {
	key := make([]byte, keySize)
	copy(key, payload[:keySize])
	value := make([]byte, len(payload)-int(keySize))
	copy(value, payload[keySize:])

	rec := &LogRecord{Key: key, Value: value, Type: LogRecordNormal}
	if len(value) == 0 {
		rec.Type = LogRecordDeleted
	}
	return rec
}

// getLogRecordCRC 对 key ++ value 计算 crc
func getLogRecordCRC(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// EncodeLogRecordPos 对位置信息进行编码
func EncodeLogRecordPos(pos *LogRecordPos) []byte {
	buf := make([]byte, binary.MaxVarintLen64+binary.MaxVarintLen32+1)
	index := binary.PutVarint(buf, pos.Offset)
	index += binary.PutUvarint(buf[index:], uint64(pos.Size))
	buf[index] = pos.Type
	return buf[:index+1]
}

// DecodeLogRecordPos 解码 LogRecordPos
func DecodeLogRecordPos(buf []byte) *LogRecordPos {
	offset, n := binary.Varint(buf)
	size, m := binary.Uvarint(buf[n:])
	pos := &LogRecordPos{Offset: offset, Size: uint32(size)}
	if n+m < len(buf) {
		pos.Type = buf[n+m]
	}
	return pos
}
