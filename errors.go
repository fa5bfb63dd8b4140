package logkv

import (
	"errors"

	"logkv/data"
)

var (
	ErrKeyIsEmpty       = errors.New("the key is empty")
	ErrValueIsEmpty     = errors.New("the value is empty, use Delete to remove a key")
	ErrKeyTooLarge      = errors.New("the key is too large for the log format or index type")
	ErrValueTooLarge    = errors.New("the value is too large for the log format")
	ErrKeyNotFound      = errors.New("key not found in database")
	ErrFilePathIsEmpty  = errors.New("database file path is empty")
	ErrIndexNotLoaded   = errors.New("index is not loaded, call Load first")
	ErrDatabaseIsUsing  = errors.New("the database file is used by another process")
	ErrDatabaseIsClosed = errors.New("the database is closed")

	ErrIndexUpdateFailed = errors.New("failed to update index")

	ErrChecksumMismatch = data.ErrChecksumMismatch
	ErrTruncatedRecord  = data.ErrTruncatedRecord
)
