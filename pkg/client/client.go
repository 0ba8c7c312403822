package client

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/josenovais97/distributed-systems/pkg/logger"
	"github.com/josenovais97/distributed-systems/pkg/protocol"
)

// Client is a connection to a kvserver. Calls are serialised; a Client may be
// shared between goroutines but they will take turns on the wire.
//
// If a call's context ends while it is on the wire the reply can no longer be
// matched to a request, so the connection is closed and later calls return
// ErrClosed.
type Client struct {
	opts *options
	log  *slog.Logger

	mu     sync.Mutex
	nc     net.Conn
	r      *protocol.Reader
	w      *protocol.Writer
	closed atomic.Bool
}

// Dial connects to the server at addr. The session is not usable until Login
// succeeds.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	o := &options{
		dialTimeout: 10 * time.Second,
		logger:      logger.Noop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	d := net.Dialer{Timeout: o.dialTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		opts: o,
		log:  o.logger.With(logger.Component("kvclient"), logger.Addr(addr)),
		nc:   nc,
		r:    protocol.NewReader(nc),
		w:    protocol.NewWriter(nc),
	}, nil
}

// Login authenticates, registering the user first if WithRegister was given
// and the server does not know the name, then waits until the server admits
// the session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := errors.Join(protocol.CheckString(username), protocol.CheckString(password)); err != nil {
		return err
	}
	return c.do(ctx, func() error {
		if err := c.answerPrompt(username); err != nil {
			return err
		}
		if err := c.answerPrompt(password); err != nil {
			return err
		}

		registering := false
		for {
			msg, err := c.r.ReadMessage()
			if err != nil {
				return err
			}
			switch msg.Status {
			case protocol.StatusOK:
				c.log.DebugContext(ctx, "authenticated", logger.Username(username))
			case protocol.StatusRegisterPrompt:
				answer := protocol.AnswerNo
				if c.opts.register {
					answer = protocol.AnswerYes
					registering = true
				}
				if err := c.send(answer); err != nil {
					return err
				}
			case protocol.StatusError:
				if registering {
					return errors.Join(ErrRegistrationFailed, &ServerError{Message: msg.Text})
				}
				return errors.Join(ErrAuthenticationFailed, &ServerError{Message: msg.Text})
			case protocol.StatusWaiting:
				pos := parsePosition(msg.Text)
				c.log.DebugContext(ctx, "waiting for a session slot", logger.Position(pos))
				if c.opts.onWait != nil {
					c.opts.onWait(pos)
				}
			case protocol.StatusAdmitted:
				return nil
			case protocol.StatusClosing:
				return ErrServerClosing
			default:
				return errors.Join(ErrUnexpectedStatus, errors.New(msg.Status.String()))
			}
		}
	})
}

// Put stores value under key.
func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	if err := errors.Join(protocol.CheckString(key), protocol.CheckBlob(value)); err != nil {
		return err
	}
	return c.do(ctx, func() error {
		if err := c.w.WriteString(protocol.CmdPut); err != nil {
			return err
		}
		if err := c.w.WriteString(key); err != nil {
			return err
		}
		if err := c.w.WriteBlob(value); err != nil {
			return err
		}
		if err := c.w.Flush(); err != nil {
			return err
		}
		return c.expectOK()
	})
}

// Get returns the value stored under key. ok is false if the key is absent,
// which is distinct from a present empty value.
func (c *Client) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	if err := protocol.CheckString(key); err != nil {
		return nil, false, err
	}
	err = c.do(ctx, func() error {
		if err := c.w.WriteString(protocol.CmdGet); err != nil {
			return err
		}
		if err := c.w.WriteString(key); err != nil {
			return err
		}
		if err := c.w.Flush(); err != nil {
			return err
		}

		msg, err := c.r.ReadMessage()
		if err != nil {
			return err
		}
		switch msg.Status {
		case protocol.StatusOK:
			value, err = c.r.ReadBlob()
			ok = err == nil
			return err
		case protocol.StatusNotFound:
			return nil
		default:
			return statusError(msg)
		}
	})
	return value, ok, err
}

// MultiPut stores all pairs atomically. An empty map is a no-op on the server.
func (c *Client) MultiPut(ctx context.Context, pairs map[string][]byte) error {
	if err := protocol.CheckCount(len(pairs)); err != nil {
		return err
	}
	for k, v := range pairs {
		if err := errors.Join(protocol.CheckString(k), protocol.CheckBlob(v)); err != nil {
			return err
		}
	}
	return c.do(ctx, func() error {
		if err := c.w.WriteString(protocol.CmdMultiPut); err != nil {
			return err
		}
		if err := c.w.WriteInt32(int32(len(pairs))); err != nil {
			return err
		}
		for k, v := range pairs {
			if err := c.w.WriteString(k); err != nil {
				return err
			}
			if err := c.w.WriteBlob(v); err != nil {
				return err
			}
		}
		if err := c.w.Flush(); err != nil {
			return err
		}
		return c.expectOK()
	})
}

// MultiGet returns the values of the keys that are present, read from a single
// consistent snapshot. Missing keys are omitted from the result.
func (c *Client) MultiGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := protocol.CheckCount(len(keys)); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := protocol.CheckString(k); err != nil {
			return nil, err
		}
	}

	var out map[string][]byte
	err := c.do(ctx, func() error {
		if err := c.w.WriteString(protocol.CmdMultiGet); err != nil {
			return err
		}
		if err := c.w.WriteInt32(int32(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			if err := c.w.WriteString(k); err != nil {
				return err
			}
		}
		if err := c.w.Flush(); err != nil {
			return err
		}

		msg, err := c.r.ReadMessage()
		if err != nil {
			return err
		}
		if msg.Status != protocol.StatusOK {
			return statusError(msg)
		}
		n, err := c.r.ReadCount(0)
		if err != nil {
			return err
		}
		out = make(map[string][]byte, n)
		for range n {
			k, err := c.r.ReadString()
			if err != nil {
				return err
			}
			v, err := c.r.ReadBlob()
			if err != nil {
				return err
			}
			out[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Logout ends the session, freeing its slot on the server, and closes the
// connection.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, func() error {
		if err := c.send(protocol.CmdLogout); err != nil {
			return err
		}
		return c.expectOK()
	})
	if cerr := c.Close(); err == nil && cerr != nil && !errors.Is(cerr, ErrClosed) {
		err = cerr
	}
	return err
}

// Close drops the connection without logging out. The server releases the
// session's slot when it notices. Close does not wait for an in-flight call,
// which fails with a connection error.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return c.nc.Close()
}

// do runs fn with the connection deadline taken from ctx. A ctx cancelled
// mid-call interrupts blocked I/O. Whatever fn left unflushed is dropped when
// it fails, so the next request starts on a clean frame.
func (c *Client) do(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := c.nc.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.nc.SetDeadline(time.Now())
	})

	err := fn()
	if err != nil && c.w.Buffered() > 0 {
		c.w.Discard()
	}
	if !stop() {
		// The deadline was forced while fn ran, so the stream position is unknown.
		_ = c.Close()
		if err != nil {
			return errors.Join(ctx.Err(), err)
		}
	}
	return err
}

func (c *Client) send(s string) error {
	if err := c.w.WriteString(s); err != nil {
		return err
	}
	return c.w.Flush()
}

// answerPrompt waits for a Prompt and replies with s.
func (c *Client) answerPrompt(s string) error {
	msg, err := c.r.ReadMessage()
	if err != nil {
		return err
	}
	switch msg.Status {
	case protocol.StatusPrompt:
		return c.send(s)
	case protocol.StatusClosing:
		return ErrServerClosing
	default:
		return statusError(msg)
	}
}

func (c *Client) expectOK() error {
	msg, err := c.r.ReadMessage()
	if err != nil {
		return err
	}
	if msg.Status != protocol.StatusOK {
		return statusError(msg)
	}
	return nil
}

func statusError(msg protocol.Message) error {
	if msg.Status == protocol.StatusError {
		return &ServerError{Message: msg.Text}
	}
	return errors.Join(ErrUnexpectedStatus, errors.New(msg.Status.String()))
}

// parsePosition extracts the trailing number of a Waiting message, or 0.
func parsePosition(text string) int {
	i := strings.LastIndexByte(text, ' ')
	n, err := strconv.Atoi(text[i+1:])
	if err != nil {
		return 0
	}
	return n
}
