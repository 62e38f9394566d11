package transport

import (
	"bytes"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket carries one line per text frame.
type WebSocket struct {
	conn *websocket.Conn
}

// NewWebSocket wraps an upgraded connection; frames larger than maxLine
// bytes close the connection.
func NewWebSocket(conn *websocket.Conn, maxLine int) *WebSocket {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	conn.SetReadLimit(int64(maxLine) + 2)
	return &WebSocket{conn: conn}
}

func (w *WebSocket) ReadLine() ([]byte, error) {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if err == websocket.ErrReadLimit {
				return nil, ErrLineTooLong
			}
			return nil, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return bytes.TrimRight(data, "\r\n"), nil
	}
}

func (w *WebSocket) WriteLine(data []byte) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) Close() error {
	return w.conn.Close()
}

func (w *WebSocket) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
