package data

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeLogRecord(t *testing.T) {
	// 正常情况
	rec1 := &LogRecord{
		Key:   []byte("name"),
		Value: []byte("bitcask-go"),
		Type:  LogRecordNormal,
	}
	res1, n1 := EncodeLogRecord(rec1)
	assert.NotNil(t, res1)
	assert.Equal(t, int64(12+4+10), n1)
	assert.Equal(t, crc32.ChecksumIEEE([]byte("namebitcask-go")), binary.LittleEndian.Uint32(res1[:4]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(res1[4:8]))
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(res1[8:12]))
	assert.Equal(t, []byte("namebitcask-go"), res1[12:])

	// value 为空的情况，即墓碑
	rec2 := &LogRecord{
		Key:  []byte("name"),
		Type: LogRecordDeleted,
	}
	res2, n2 := EncodeLogRecord(rec2)
	assert.Equal(t, int64(16), n2)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(res2[8:12]))
	assert.Equal(t, crc32.ChecksumIEEE([]byte("name")), binary.LittleEndian.Uint32(res2[:4]))
}

func TestDecodeLogRecord(t *testing.T) {
	enc, _ := EncodeLogRecord(&LogRecord{Key: []byte("a"), Value: []byte("1")})

	rec, err := DecodeLogRecord(enc)
	assert.Nil(t, err)
	assert.Equal(t, []byte("a"), rec.Key)
	assert.Equal(t, []byte("1"), rec.Value)
	assert.Equal(t, LogRecordNormal, rec.Type)

	// 解码结果不引用原始 buf
	enc[12] = 'z'
	assert.Equal(t, []byte("a"), rec.Key)

	tomb, _ := EncodeLogRecord(&LogRecord{Key: []byte("a")})
	rec, err = DecodeLogRecord(tomb)
	assert.Nil(t, err)
	assert.Equal(t, LogRecordDeleted, rec.Type)
	assert.Empty(t, rec.Value)
}

func TestDecodeLogRecord_Truncated(t *testing.T) {
	enc, _ := EncodeLogRecord(&LogRecord{Key: []byte("abc"), Value: []byte("xy")})
	for i := 0; i < len(enc); i++ {
		_, err := DecodeLogRecord(enc[:i])
		assert.ErrorIs(t, err, ErrTruncatedRecord, "length %d", i)
	}
}

func TestDecodeLogRecord_Corrupted(t *testing.T) {
	enc, _ := EncodeLogRecord(&LogRecord{Key: []byte("key"), Value: []byte("value")})

	// 翻转 key/value 区域和 crc 区域中的任意一个字节
	positions := []int{0, 1, 2, 3, 12, 14, 15, len(enc) - 1}
	for _, p := range positions {
		buf := append([]byte(nil), enc...)
		buf[p] ^= 0xff
		_, err := DecodeLogRecord(buf)
		assert.ErrorIs(t, err, ErrChecksumMismatch, "flipped byte %d", p)
	}
}

func TestGetLogRecordCRC(t *testing.T) {
	assert.Equal(t, crc32.ChecksumIEEE([]byte("keyvalue")), getLogRecordCRC([]byte("keyvalue")))
	assert.Equal(t, uint32(0), getLogRecordCRC(nil))
}

func TestLogRecordPos_EncodeDecode(t *testing.T) {
	positions := []*LogRecordPos{
		{Offset: 0, Size: 12, Type: LogRecordNormal},
		{Offset: 1 << 40, Size: 1 << 31, Type: LogRecordDeleted},
	}
	for _, pos := range positions {
		assert.Equal(t, pos, DecodeLogRecordPos(EncodeLogRecordPos(pos)))
	}
}
