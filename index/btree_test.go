package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"logkv/data"
)

func TestBTree_Put(t *testing.T) {
	bt := NewBTree()

	res1 := bt.Put([]byte("a"), &data.LogRecordPos{Offset: 100})
	assert.True(t, res1)

	res2 := bt.Put([]byte("a"), &data.LogRecordPos{Offset: 200, Type: data.LogRecordDeleted})
	assert.True(t, res2)
	assert.Equal(t, 1, bt.Size())
}

func TestBTree_Get(t *testing.T) {
	bt := NewBTree()

	assert.Nil(t, bt.Get([]byte("a")))

	bt.Put([]byte("a"), &data.LogRecordPos{Offset: 2})
	bt.Put([]byte("a"), &data.LogRecordPos{Offset: 3})
	pos := bt.Get([]byte("a"))
	assert.Equal(t, int64(3), pos.Offset)
}

func TestBTree_Ascend(t *testing.T) {
	bt := NewBTree()
	bt.Put([]byte("ccde"), &data.LogRecordPos{Offset: 1})
	bt.Put([]byte("acee"), &data.LogRecordPos{Offset: 2})
	bt.Put([]byte("eede"), &data.LogRecordPos{Offset: 3})
	bt.Put([]byte("bbcd"), &data.LogRecordPos{Offset: 4})

	var keys []string
	bt.Ascend(func(key []byte, pos *data.LogRecordPos) bool {
		keys = append(keys, string(key))
		return true
	})
	assert.Equal(t, []string{"acee", "bbcd", "ccde", "eede"}, keys)

	var n int
	bt.Ascend(func(key []byte, pos *data.LogRecordPos) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}

func TestBTree_Reset(t *testing.T) {
	bt := NewBTree()
	bt.Put([]byte("a"), &data.LogRecordPos{Offset: 1})
	bt.Put([]byte("b"), &data.LogRecordPos{Offset: 2})

	assert.Nil(t, bt.Reset())
	assert.Equal(t, 0, bt.Size())
	assert.Nil(t, bt.Get([]byte("a")))
	assert.Nil(t, bt.Close())
}
