package kite

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultRoot is the production ticker endpoint.
	DefaultRoot = "wss://ws.kite.trade"
	// Version is reported in the User-Agent header.
	Version = "1.0.0"

	kiteVersionHeader = "X-Kite-Version"
	kiteVersion       = "3"

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// Frame types, same values as gorilla/websocket.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Conn is one open socket. ReadMessage is only called from a single reader
// goroutine; WriteMessage and Close are serialised by the ticker.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens sockets.
type Dialer interface {
	Dial(ctx context.Context, rawURL string, header http.Header) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, rawURL string, header http.Header) (Conn, error) {
	hs := d.HandshakeTimeout
	if hs <= 0 {
		hs = handshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: hs,
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	wt := d.WriteTimeout
	if wt <= 0 {
		wt = writeTimeout
	}
	return &wsConn{Conn: conn, writeTimeout: wt}, nil
}

// wsConn adds a write deadline and a close handshake to *websocket.Conn.
type wsConn struct {
	*websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *wsConn) Close() error {
	c.Conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.Conn.Close()
}

// BuildURL appends the credentials and a uid cache-buster to root.
func BuildURL(root, apiKey, accessToken string, now time.Time) (string, error) {
	u, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("parse root url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("root url must be ws:// or wss://, got %q", root)
	}

	q := u.Query()
	q.Set("api_key", apiKey)
	q.Set("access_token", accessToken)
	q.Set("uid", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func requestHeader() http.Header {
	h := make(http.Header)
	h.Set(kiteVersionHeader, kiteVersion)
	h.Set("User-Agent", "kiteticker-go/"+Version)
	return h
}
