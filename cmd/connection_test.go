// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn returns its chunks one Read at a time, then io.EOF. With block
// set it waits for Close instead of returning io.EOF.
type fakeConn struct {
	mu     sync.Mutex
	chunks [][]byte
	block  bool
	closed chan struct{}
	once   sync.Once
	writes [][]byte
}

func newFakeConn(block bool, chunks ...[]byte) *fakeConn {
	return &fakeConn{chunks: chunks, block: block, closed: make(chan struct{})}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	if len(c.chunks) > 0 {
		n := copy(p, c.chunks[0])
		c.chunks = c.chunks[1:]
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	if c.block {
		<-c.closed
		return 0, ErrConnectionClosed
	}
	return 0, io.EOF
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func fastBackOff(t *testing.T) {
	t.Helper()
	previous := newReconnectBackOff
	newReconnectBackOff = func() *backoff.ExponentialBackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Millisecond
		bo.MaxInterval = 5 * time.Millisecond
		bo.MaxElapsedTime = 0
		return bo
	}
	t.Cleanup(func() { newReconnectBackOff = previous })
}

// ============================================================
// streamConnection
// ============================================================

func TestStreamConnection_NoReconnect(t *testing.T) {
	conn := newFakeConn(false, []byte{0x01, 0x02}, []byte{0x03})
	connect := func() (Connection, string, error) { return conn, "fake", nil }

	out := make(chan []byte, 10)
	err := streamConnection(context.Background(), connect, false, out)
	assert.ErrorIs(t, err, io.EOF)

	require.Len(t, out, 2)
	assert.Equal(t, []byte{0x01, 0x02}, <-out)
	assert.Equal(t, []byte{0x03}, <-out)
}

func TestStreamConnection_Reconnects(t *testing.T) {
	fastBackOff(t)

	var mu sync.Mutex
	attempts := 0
	last := newFakeConn(true, []byte{0x03})
	connect := func() (Connection, string, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		switch attempts {
		case 1:
			return newFakeConn(false, []byte{0x01}), "first", nil
		case 2:
			return nil, "", io.ErrUnexpectedEOF
		case 3:
			return newFakeConn(false, []byte{0x02}), "second", nil
		default:
			return last, "last", nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []byte, 10)
	done := make(chan error, 1)
	go func() { done <- streamConnection(ctx, connect, true, out) }()

	for _, want := range []byte{0x01, 0x02, 0x03} {
		select {
		case got := <-out:
			assert.Equal(t, []byte{want}, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for 0x%02X", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop on cancel")
	}

	mu.Lock()
	assert.Equal(t, 4, attempts)
	mu.Unlock()
}

func TestStreamConnection_CancelUnblocksRead(t *testing.T) {
	conn := newFakeConn(true)
	connect := func() (Connection, string, error) { return conn, "fake", nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- streamConnection(ctx, connect, false, make(chan []byte)) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("read was not unblocked")
	}
}

func TestReuseFirst(t *testing.T) {
	first := newFakeConn(false)
	second := newFakeConn(false)
	connect := reuseFirst(first, "first", func() (Connection, string, error) {
		return second, "second", nil
	})

	conn, info, err := connect()
	require.NoError(t, err)
	assert.Same(t, first, conn)
	assert.Equal(t, "first", info)

	conn, info, err = connect()
	require.NoError(t, err)
	assert.Same(t, second, conn)
	assert.Equal(t, "second", info)
}

// ============================================================
// WebSocket transport
// ============================================================

func TestWebSocketConnection_ReadWrite(t *testing.T) {
	upgrader := websocket.Upgrader{}
	authHeader := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader <- r.Header.Get("Authorization")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		// Text messages are ignored by the client
		_ = ws.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = ws.WriteMessage(websocket.BinaryMessage, []byte{'h', 'i', 0x38, 0xFF})

		// Echo one binary message back
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.WriteMessage(websocket.BinaryMessage, data)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := OpenWebSocketConnection(url, "user", "secret", false)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Basic dXNlcjpzZWNyZXQ=", <-authHeader)

	// Small buffers drain a message across reads
	buf := make([]byte, 3)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{'h', 'i', 0x38}, buf[:n])
	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, buf[:n])

	_, err = conn.Write([]byte{0x6F, 0x6B, 0x6D, 0xFF})
	require.NoError(t, err)
	n, err = conn.Read(buf[:cap(buf)])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6F, 0x6B, 0x6D}, buf[:n])
}

func TestWebSocketConnection_ClosedAfterServerHangup(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.Close()
	}))
	defer server.Close()

	conn, err := OpenWebSocketConnection("ws"+strings.TrimPrefix(server.URL, "http"), "", "", false)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)

	// The hangup without a close frame stays visible as 1006
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseAbnormalClosure, closeErr.Code)
	assert.Error(t, streamResult(err))

	// Stays closed
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestWebSocketConnection_NormalClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_, _, _ = ws.ReadMessage()
	}))
	defer server.Close()

	conn, err := OpenWebSocketConnection("ws"+strings.TrimPrefix(server.URL, "http"), "", "", false)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Read(make([]byte, 16))
	assert.ErrorIs(t, err, ErrConnectionClosed)

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.NoError(t, streamResult(err))
}

func TestOpenWebSocketConnection_BadScheme(t *testing.T) {
	_, err := OpenWebSocketConnection("http://example.com/link", "", "", false)
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestOpenConnection_NoTarget(t *testing.T) {
	previous := *conf
	t.Cleanup(func() { *conf = previous })
	conf.Port = ""
	conf.URL = ""

	_, _, err := OpenConnection()
	assert.ErrorContains(t, err, "either --port or --url must be specified")
}
