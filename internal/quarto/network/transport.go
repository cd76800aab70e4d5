package network

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from a websocket peer.
	maxMessageSize = 512
)

// Transport moves whole messages over one connection. ReadMessage is only
// ever called from a single goroutine; WriteMessage may be called
// concurrently.
type Transport interface {
	ReadMessage() (string, error)
	WriteMessage(msg string) error
	Close() error
	RemoteAddr() string
}

// LineTransport frames messages as newline terminated lines over a stream
// connection.
type LineTransport struct {
	conn   net.Conn
	reader *bufio.Reader

	wmu sync.Mutex
}

func NewLineTransport(conn net.Conn) *LineTransport {
	return &LineTransport{conn: conn, reader: bufio.NewReader(conn)}
}

func (t *LineTransport) ReadMessage() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *LineTransport) WriteMessage(msg string) error {
	if strings.ContainsAny(msg, "\r\n") {
		return fmt.Errorf("message %q contains a line break", msg)
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err := t.conn.Write([]byte(msg + "\n"))
	return err
}

func (t *LineTransport) Close() error {
	return t.conn.Close()
}

func (t *LineTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// WSTransport carries one message per websocket text frame.
type WSTransport struct {
	conn *websocket.Conn

	wmu sync.Mutex
}

func NewWSTransport(conn *websocket.Conn) *WSTransport {
	conn.SetReadLimit(maxMessageSize)
	return &WSTransport{conn: conn}
}

func (t *WSTransport) ReadMessage() (string, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if kind == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (t *WSTransport) WriteMessage(msg string) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (t *WSTransport) Close() error {
	t.wmu.Lock()
	deadline := time.Now().Add(time.Second)
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	t.wmu.Unlock()
	return t.conn.Close()
}

func (t *WSTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
