// Package transport turns a connection into a stream of application lines.
package transport

import (
	"errors"
	"time"
)

const (
	// DefaultMaxLine is the longest inbound line accepted, terminator excluded.
	DefaultMaxLine = 1024

	writeWait = 10 * time.Second // Time allowed to write a line to the peer.
)

var ErrLineTooLong = errors.New("line too long")

// Conn is a line-oriented connection. ReadLine and WriteLine may be called
// from different goroutines, but neither concurrently with itself.
type Conn interface {
	// ReadLine blocks until the next line arrives and returns it without
	// the terminator.
	ReadLine() ([]byte, error)
	// WriteLine sends data followed by the line terminator.
	WriteLine(data []byte) error
	Close() error
	RemoteAddr() string
}
