package logkv

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"logkv/data"
	"logkv/fio"
	"logkv/index"
)

const (
	fileLockSuffix   = ".lock"
	bptreeFileSuffix = ".bptree"
	dataDirPerm      = 0755
)

// DB 基于单个追加写日志文件的存储引擎实例
type DB struct {
	options  Options
	mu       *sync.RWMutex
	dataFile *data.DataFile // 日志文件，只追加写入
	index    index.Indexer  // 内存索引，key -> 最新一条记录的位置
	fileLock *flock.Flock
	isLoaded bool
	isClosed bool
}

// Stat 存储引擎统计信息
type Stat struct {
	KeyNum       uint  // 有效的 key 数量
	IndexedNum   uint  // 索引中的 key 数量，包含已删除的 key
	DataFileSize int64 // 日志文件大小
}

// Open 打开存储引擎实例，文件不存在时创建。不读取内容，需要调用 Load 重建索引
func Open(options Options) (*DB, error) {
	if err := checkOptions(options); err != nil {
		return nil, err
	}

	// 判断目录是否存在，如果不存在的话，则创建这个目录
	if err := os.MkdirAll(filepath.Dir(options.FilePath), dataDirPerm); err != nil {
		return nil, err
	}

	// 判断该文件是否正在使用
	fileLock := flock.New(options.FilePath + fileLockSuffix)
	hold, err := fileLock.TryLock()
	if err != nil {
		return nil, err
	}
	if !hold {
		return nil, ErrDatabaseIsUsing
	}

	dataFile, err := data.OpenDataFile(options.FilePath, fio.StandardFIO)
	if err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	idx, err := index.NewIndexer(options.IndexType, options.FilePath+bptreeFileSuffix)
	if err != nil {
		_ = dataFile.Close()
		_ = fileLock.Unlock()
		return nil, err
	}

	return &DB{
		options:  options,
		mu:       new(sync.RWMutex),
		dataFile: dataFile,
		index:    idx,
		fileLock: fileLock,
	}, nil
}

// Load 清空索引，回放日志重建索引。
// 回放遇到长度超出文件末尾的记录时返回 ErrTruncatedRecord，文件保持不变；
// 开启 RepairTornTail 时把它当作崩溃留下的半条记录截掉。
func (db *DB) Load() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.isClosed {
		return ErrDatabaseIsClosed
	}
	// 重建失败时索引不完整，不允许继续读
	db.isLoaded = false
	if err := db.loadIndexFromDataFile(); err != nil {
		return err
	}
	db.isLoaded = true
	return nil
}

func (db *DB) loadIndexFromDataFile() error {
	if db.options.MMapAtStartup {
		if err := db.dataFile.SetIOManager(fio.MemoryMap); err != nil {
			return err
		}
	}

	validEnd, err := db.rebuildIndex()

	// 回放结束后切回标准文件 IO
	if db.options.MMapAtStartup {
		if ioErr := db.dataFile.SetIOManager(fio.StandardFIO); ioErr != nil && err == nil {
			err = ioErr
		}
	}
	if err == nil {
		return nil
	}
	if !errors.Is(err, data.ErrTruncatedRecord) || !db.options.RepairTornTail {
		return err
	}

	if err := db.dataFile.Truncate(validEnd); err != nil {
		return fmt.Errorf("truncate torn tail at offset %d: %w", validEnd, err)
	}
	return nil
}

// rebuildIndex 后写入的记录覆盖先写入的，墓碑记录同样写入索引
func (db *DB) rebuildIndex() (int64, error) {
	if err := db.index.Reset(); err != nil {
		return 0, err
	}

	var putErr error
	validEnd, err := db.dataFile.Replay(func(offset int64, logRecord *data.LogRecord) bool {
		pos := &data.LogRecordPos{
			Offset: offset,
			Size:   uint32(data.EncodedSize(logRecord)),
			Type:   logRecord.Type,
		}
		if !db.index.Put(logRecord.Key, pos) {
			putErr = fmt.Errorf("record at offset %d: %w", offset, ErrIndexUpdateFailed)
			return false
		}
		return true
	})
	if putErr != nil {
		return validEnd, putErr
	}
	return validEnd, err
}

// Put 写入 key/value，key 已存在时覆盖
func (db *DB) Put(key []byte, value []byte) error {
	if err := db.checkKey(key); err != nil {
		return err
	}
	if len(value) == 0 {
		return ErrValueIsEmpty
	}
	if uint64(len(value)) > math.MaxUint32 {
		return ErrValueTooLarge
	}
	return db.appendAndIndex(&data.LogRecord{
		Key:   key,
		Value: value,
		Type:  data.LogRecordNormal,
	})
}

// Insert 与 Put 相同，不检查 key 是否已存在
func (db *DB) Insert(key []byte, value []byte) error {
	return db.Put(key, value)
}

// Update 与 Put 相同，仅用于表达调用方的意图
func (db *DB) Update(key []byte, value []byte) error {
	return db.Put(key, value)
}

// Delete 追加一条墓碑记录，之前的记录不会被删除
func (db *DB) Delete(key []byte) error {
	if err := db.checkKey(key); err != nil {
		return err
	}
	return db.appendAndIndex(&data.LogRecord{
		Key:  key,
		Type: data.LogRecordDeleted,
	})
}

func (db *DB) appendAndIndex(logRecord *data.LogRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.isClosed {
		return ErrDatabaseIsClosed
	}

	offset, size, err := db.dataFile.AppendLogRecord(logRecord)
	if err != nil {
		return err
	}
	if db.options.SyncWrites {
		if err := db.dataFile.Sync(); err != nil {
			return err
		}
	}

	// 索引持有 key，拷贝一份避免调用方复用 buf
	key := make([]byte, len(logRecord.Key))
	copy(key, logRecord.Key)
	pos := &data.LogRecordPos{Offset: offset, Size: uint32(size), Type: logRecord.Type}
	if !db.index.Put(key, pos) {
		// 索引没有更新，撤销刚追加的记录，保持日志与索引一致
		if err := db.dataFile.Truncate(offset); err != nil {
			return fmt.Errorf("%w, rollback failed: %v", ErrIndexUpdateFailed, err)
		}
		return ErrIndexUpdateFailed
	}
	return nil
}

// Get 根据 key 读取数据，key 不存在或已删除时返回 ErrKeyNotFound
func (db *DB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.checkReadable(); err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, ErrKeyIsEmpty
	}

	pos := db.index.Get(key)
	if pos == nil {
		return nil, ErrKeyNotFound
	}
	return db.getValueByPosition(pos)
}

func (db *DB) getValueByPosition(pos *data.LogRecordPos) ([]byte, error) {
	logRecord, _, err := db.dataFile.ReadLogRecord(pos.Offset)
	if err != nil {
		return nil, err
	}
	if logRecord.Type == data.LogRecordDeleted {
		return nil, ErrKeyNotFound
	}
	return logRecord.Value, nil
}

// FindLast 不使用索引，线性扫描日志，返回 key 最后一条记录的位置和 value。
// 最后一条记录是墓碑时返回 ErrKeyNotFound 以及该墓碑的位置。
func (db *DB) FindLast(key []byte) (int64, []byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.isClosed {
		return 0, nil, ErrDatabaseIsClosed
	}
	if len(key) == 0 {
		return 0, nil, ErrKeyIsEmpty
	}

	offset, logRecord, err := db.dataFile.FindLast(key)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return 0, nil, ErrKeyNotFound
		}
		return 0, nil, err
	}
	if logRecord.Type == data.LogRecordDeleted {
		return offset, nil, ErrKeyNotFound
	}
	return offset, logRecord.Value, nil
}

// ListKeys 按升序返回所有未删除的 key
func (db *DB) ListKeys() ([][]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.checkReadable(); err != nil {
		return nil, err
	}

	var keys [][]byte
	db.index.Ascend(func(key []byte, pos *data.LogRecordPos) bool {
		if pos.Type == data.LogRecordDeleted {
			return true
		}
		k := make([]byte, len(key))
		copy(k, key)
		keys = append(keys, k)
		return true
	})
	return keys, nil
}

// Fold 按 key 升序遍历所有未删除的数据，fn 返回 false 时停止
func (db *DB) Fold(fn func(key []byte, value []byte) bool) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.checkReadable(); err != nil {
		return err
	}

	var iterErr error
	db.index.Ascend(func(key []byte, pos *data.LogRecordPos) bool {
		if pos.Type == data.LogRecordDeleted {
			return true
		}
		value, err := db.getValueByPosition(pos)
		if err != nil {
			iterErr = err
			return false
		}
		k := make([]byte, len(key))
		copy(k, key)
		return fn(k, value)
	})
	return iterErr
}

// Stat 返回数据库的相关统计信息
func (db *DB) Stat() (*Stat, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.checkReadable(); err != nil {
		return nil, err
	}

	var keyNum uint
	db.index.Ascend(func(_ []byte, pos *data.LogRecordPos) bool {
		if pos.Type != data.LogRecordDeleted {
			keyNum++
		}
		return true
	})
	size, err := db.dataFile.Size()
	if err != nil {
		return nil, err
	}
	return &Stat{
		KeyNum:       keyNum,
		IndexedNum:   uint(db.index.Size()),
		DataFileSize: size,
	}, nil
}

// Sync 持久化日志文件
func (db *DB) Sync() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.isClosed {
		return ErrDatabaseIsClosed
	}
	return db.dataFile.Sync()
}

// Close 关闭日志文件和索引并释放文件锁，重复调用无副作用
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.isClosed {
		return nil
	}
	db.isClosed = true

	// 出错时继续释放剩余资源，返回第一个错误
	err := db.dataFile.Sync()
	if closeErr := db.dataFile.Close(); err == nil {
		err = closeErr
	}
	if closeErr := db.index.Close(); err == nil {
		err = closeErr
	}
	if unlockErr := db.fileLock.Unlock(); err == nil && unlockErr != nil {
		err = fmt.Errorf("failed to unlock %s: %w", db.fileLock.Path(), unlockErr)
	}
	return err
}

func (db *DB) checkReadable() error {
	if db.isClosed {
		return ErrDatabaseIsClosed
	}
	if !db.isLoaded {
		return ErrIndexNotLoaded
	}
	return nil
}

func (db *DB) checkKey(key []byte) error {
	if len(key) == 0 {
		return ErrKeyIsEmpty
	}
	if uint64(len(key)) > math.MaxUint32 {
		return ErrKeyTooLarge
	}
	if limit := index.MaxKeySize(db.options.IndexType); limit > 0 && len(key) > limit {
		return ErrKeyTooLarge
	}
	return nil
}

func checkOptions(options Options) error {
	if options.FilePath == "" {
		return ErrFilePathIsEmpty
	}
	if filepath.Base(options.FilePath) == "." || filepath.Base(options.FilePath) == string(filepath.Separator) {
		return fmt.Errorf("invalid database file path %q", options.FilePath)
	}
	return nil
}
