package data

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrChecksumMismatch means the stored checksum disagrees with the payload read back.
	ErrChecksumMismatch = errors.New("log record checksum mismatch, log may be corrupted")
	// ErrTruncatedRecord means fewer bytes remain than the record header declares.
	ErrTruncatedRecord = fmt.Errorf("log record truncated: %w", io.ErrUnexpectedEOF)
	// ErrRecordNotFound is returned by FindLast when no record carries the key.
	ErrRecordNotFound = errors.New("no log record for key")
)
