package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"mergeq/internal/protocol"
)

const defaultTimeout = 5 * time.Second

// Client talks to the agent listening on a unix socket.
type Client struct {
	path    string
	timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds each call, dial included.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Dial checks that an agent is accepting connections at path and returns a
// client for it.
func Dial(path string, opts ...Option) (*Client, error) {
	client := &Client{path: path, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(client)
	}
	conn, err := net.DialTimeout("unix", path, client.timeout)
	if err != nil {
		return nil, &DialError{Path: path, Err: err}
	}
	_ = conn.Close()
	return client, nil
}

// Path returns the socket path the client dials.
func (c *Client) Path() string {
	return c.path
}

// Push queues a pull request URL.
func (c *Client) Push(url string) error {
	_, err := c.call(protocol.Push(url))
	return err
}

// Pop removes a pull request URL from the queue.
func (c *Client) Pop(url string) error {
	_, err := c.call(protocol.Pop(url))
	return err
}

// Clear empties the queue.
func (c *Client) Clear() error {
	_, err := c.call(protocol.Clear())
	return err
}

// Force starts a processing run without waiting for it to finish.
func (c *Client) Force() error {
	_, err := c.call(protocol.ForceProcess())
	return err
}

// Quit asks the agent to shut down.
func (c *Client) Quit() error {
	_, err := c.call(protocol.Quit())
	return err
}

// List returns the queued URLs in insertion order.
func (c *Client) List() ([]string, error) {
	resp, err := c.call(protocol.List())
	if err != nil {
		return nil, err
	}
	if resp.Kind != protocol.KindItems {
		return nil, fmt.Errorf("unexpected %s response to list", resp.Kind)
	}
	return resp.Items, nil
}

func (c *Client) call(body protocol.RequestBody) (protocol.Response, error) {
	conn, err := net.DialTimeout("unix", c.path, c.timeout)
	if err != nil {
		return protocol.Response{}, &DialError{Path: c.path, Err: err}
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return protocol.Response{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := protocol.Write(conn, protocol.NewRequest(body)); err != nil {
		return protocol.Response{}, err
	}
	resp, err := protocol.ReadResponse(bufio.NewReader(conn))
	if errors.Is(err, io.EOF) {
		return protocol.Response{}, errors.New("agent closed the connection without responding")
	}
	if err != nil {
		return protocol.Response{}, err
	}
	if resp.Kind == protocol.KindFailure {
		return resp, &FailureError{Failure: resp.Failure}
	}
	return resp, nil
}
