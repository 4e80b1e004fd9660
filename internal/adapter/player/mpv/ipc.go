package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// errClosed is returned for commands on a closed connection.
var errClosed = errors.New("mpv ipc connection closed")

// message is any line mpv writes: a reply (request_id set) or an event.
type message struct {
	RequestID *int64          `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`

	Event  string `json:"event,omitempty"`
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type request struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

type reply struct {
	data json.RawMessage
	err  error
}

// ipcConn speaks mpv's JSON IPC: one JSON object per line, replies matched
// by request_id. A single goroutine reads the socket, so events reach
// onEvent in the order mpv sent them.
type ipcConn struct {
	conn    net.Conn
	onEvent func(message)

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan reply
	closed  bool
	done    chan struct{}
}

func dialIPC(ctx context.Context, path string, onEvent func(message)) (*ipcConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	c := &ipcConn{
		conn:    conn,
		onEvent: onEvent,
		pending: make(map[int64]chan reply),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// command sends one command and waits for mpv's reply.
func (c *ipcConn) command(ctx context.Context, args ...interface{}) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	line, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		c.forget(id)
		return nil, err
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(line, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("write %v: %w", args[0], err)
	}

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		return nil, errClosed
	}
}

func (c *ipcConn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *ipcConn) readLoop() {
	defer c.shutdown()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		if msg.Event != "" {
			if c.onEvent != nil {
				c.onEvent(msg)
			}
			continue
		}
		if msg.RequestID == nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*msg.RequestID]
		delete(c.pending, *msg.RequestID)
		c.mu.Unlock()
		if !ok {
			continue
		}

		r := reply{data: msg.Data}
		if msg.Error != "" && msg.Error != "success" {
			r.err = fmt.Errorf("mpv: %s", msg.Error)
		}
		ch <- r
	}
}

func (c *ipcConn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Close closes the socket and waits for the reader to stop.
func (c *ipcConn) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed when the reader stops.
func (c *ipcConn) Done() <-chan struct{} {
	return c.done
}
