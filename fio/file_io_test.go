package fio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func destroyFile(name string) {
	if err := os.RemoveAll(name); err != nil {
		panic(err)
	}
}

func TestNewFileIOManager(t *testing.T) {
	path := filepath.Join(os.TempDir(), "logkv-fio-0001.data")
	fio, err := NewFileIOManager(path)
	defer destroyFile(path)

	assert.Nil(t, err)
	assert.NotNil(t, fio)
	assert.Nil(t, fio.Close())
}

func TestFileIO_WriteRead(t *testing.T) {
	path := filepath.Join(os.TempDir(), "logkv-fio-0002.data")
	fio, err := NewFileIOManager(path)
	defer destroyFile(path)
	require.Nil(t, err)
	defer fio.Close()

	n, err := fio.Write([]byte("key-a"))
	assert.Equal(t, 5, n)
	assert.Nil(t, err)

	n, err = fio.Write([]byte("key-b"))
	assert.Equal(t, 5, n)
	assert.Nil(t, err)

	b := make([]byte, 5)
	n, err = fio.Read(b, 5)
	assert.Equal(t, 5, n)
	assert.Nil(t, err)
	assert.Equal(t, []byte("key-b"), b)

	_, err = fio.Read(b, 8)
	assert.Equal(t, io.EOF, err)

	size, err := fio.Size()
	assert.Nil(t, err)
	assert.Equal(t, int64(10), size)
}

func TestFileIO_Truncate(t *testing.T) {
	path := filepath.Join(os.TempDir(), "logkv-fio-0003.data")
	fio, err := NewFileIOManager(path)
	defer destroyFile(path)
	require.Nil(t, err)
	defer fio.Close()

	_, err = fio.Write([]byte("0123456789"))
	require.Nil(t, err)
	assert.Nil(t, fio.Truncate(4))

	// O_APPEND 保证截断之后的写入紧接在新的文件末尾
	_, err = fio.Write([]byte("ab"))
	require.Nil(t, err)
	b := make([]byte, 6)
	_, err = fio.Read(b, 0)
	assert.Nil(t, err)
	assert.Equal(t, []byte("0123ab"), b)
}

func TestMMap_Read(t *testing.T) {
	path := filepath.Join(os.TempDir(), "logkv-mmap-0001.data")
	defer destroyFile(path)

	// 文件不存在时创建空文件
	mmapIO, err := NewMMapIOManager(path)
	require.Nil(t, err)
	size, err := mmapIO.Size()
	assert.Nil(t, err)
	assert.Equal(t, int64(0), size)
	assert.Nil(t, mmapIO.Close())

	fio, err := NewIOManager(path, StandardFIO)
	require.Nil(t, err)
	_, err = fio.Write([]byte("aa"))
	assert.Nil(t, err)
	_, err = fio.Write([]byte("bb"))
	assert.Nil(t, err)
	assert.Nil(t, fio.Close())

	mmapIO2, err := NewIOManager(path, MemoryMap)
	require.Nil(t, err)
	defer mmapIO2.Close()

	size, err = mmapIO2.Size()
	assert.Nil(t, err)
	assert.Equal(t, int64(4), size)

	b := make([]byte, 2)
	n, err := mmapIO2.Read(b, 2)
	assert.Nil(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("bb"), b)

	_, err = mmapIO2.Write([]byte("cc"))
	assert.Equal(t, ErrReadOnly, err)
	assert.Equal(t, ErrReadOnly, mmapIO2.Sync())
	assert.Equal(t, ErrReadOnly, mmapIO2.Truncate(0))
}
