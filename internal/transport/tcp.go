package transport

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"time"
)

// TCP frames a stream connection with '\n' terminators.
type TCP struct {
	conn net.Conn
	r    *bufio.Reader
}

// NewTCP wraps conn; lines longer than maxLine bytes fail with ErrLineTooLong.
func NewTCP(conn net.Conn, maxLine int) *TCP {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	// +2 leaves room for "\r\n".
	return &TCP{conn: conn, r: bufio.NewReaderSize(conn, maxLine+2)}
}

func (t *TCP) ReadLine() ([]byte, error) {
	line, err := t.r.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, ErrLineTooLong
		}
		return nil, err
	}
	line = bytes.TrimRight(line, "\r\n")
	return bytes.Clone(line), nil
}

func (t *TCP) WriteLine(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')
	_, err := t.conn.Write(buf)
	return err
}

func (t *TCP) Close() error {
	return t.conn.Close()
}

func (t *TCP) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
