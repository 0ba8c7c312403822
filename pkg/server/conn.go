package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/josenovais97/distributed-systems/pkg/admission"
	"github.com/josenovais97/distributed-systems/pkg/auth"
	"github.com/josenovais97/distributed-systems/pkg/logger"
	"github.com/josenovais97/distributed-systems/pkg/protocol"
	"github.com/josenovais97/distributed-systems/pkg/session"
)

// conn is the server side of one client connection.
type conn struct {
	srv *Server
	nc  net.Conn
	r   *protocol.Reader
	w   *protocol.Writer
	log *slog.Logger
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	defer nc.Close()

	c := &conn{
		srv: s,
		nc:  nc,
		r:   protocol.NewReader(nc, protocol.WithMaxBlobSize(s.cfg.maxValueSize)),
		w:   protocol.NewWriter(nc),
		log: s.log.With(logger.RemoteAddr(nc.RemoteAddr().String())),
	}
	c.log.DebugContext(ctx, "connection accepted")

	username, err := c.authenticate(ctx)
	if err != nil {
		c.logEnd(ctx, "authentication ended", err)
		return
	}

	sess := session.New(username, nc.RemoteAddr().String())
	if err := s.cfg.sessions.Add(sess); err != nil {
		c.log.ErrorContext(ctx, "failed to register session", logger.Error(err))
		return
	}
	defer s.cfg.sessions.Delete(sess.ID)
	defer sess.Close()

	ctx = logger.WithSessionID(ctx, sess.ID.String())
	c.log = c.log.With(logger.Username(username))

	if err := c.admit(ctx, sess); err != nil {
		c.logEnd(ctx, "session not admitted", err)
		return
	}
	defer s.gate.Release(sess.ID)

	if err := sess.Activate(); err != nil {
		c.log.ErrorContext(ctx, "failed to activate session", logger.Error(err))
		return
	}
	if err := c.reply(protocol.StatusAdmitted, "session available"); err != nil {
		c.logEnd(ctx, "session ended", err)
		return
	}
	c.log.InfoContext(ctx, "session started")

	err = c.serve(ctx)
	c.logEnd(ctx, "session ended", err)
}

// authenticate runs the username/password exchange and returns the
// normalised username of a logged-in or newly registered user.
func (c *conn) authenticate(ctx context.Context) (string, error) {
	if err := c.reply(protocol.StatusPrompt, "username"); err != nil {
		return "", err
	}
	c.armReadDeadline()
	username, err := c.r.ReadString()
	if err != nil {
		return "", err
	}
	if err := c.reply(protocol.StatusPrompt, "password"); err != nil {
		return "", err
	}
	c.armReadDeadline()
	password, err := c.r.ReadString()
	if err != nil {
		return "", err
	}

	host := clientHost(c.nc.RemoteAddr())
	throttle := c.srv.cfg.throttle
	if throttle != nil {
		if ok, retry := throttle.Allow(host); !ok {
			_ = c.reply(protocol.StatusError, fmt.Sprintf("too many failed login attempts, retry in %s", retry.Round(time.Second)))
			return "", auth.ErrTooManyAttempts
		}
	}

	err = c.srv.creds.Authenticate(ctx, username, password)
	switch {
	case err == nil:
		if throttle != nil {
			throttle.Reset(host)
		}
		if err := c.reply(protocol.StatusOK, "authenticated"); err != nil {
			return "", err
		}
		return normalizedName(username), nil

	case errors.Is(err, auth.ErrUserNotFound):
		return c.offerRegistration(ctx, username, password)

	default:
		if throttle != nil && errors.Is(err, auth.ErrInvalidCredentials) {
			throttle.Fail(host)
		}
		_ = c.reply(protocol.StatusError, "authentication failed")
		return "", err
	}
}

func (c *conn) offerRegistration(ctx context.Context, username, password string) (string, error) {
	if err := c.reply(protocol.StatusRegisterPrompt, "user not found, register? (yes/no)"); err != nil {
		return "", err
	}
	c.armReadDeadline()
	answer, err := c.r.ReadString()
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(strings.TrimSpace(answer), protocol.AnswerYes) {
		_ = c.reply(protocol.StatusError, "authentication failed")
		return "", auth.ErrUserNotFound
	}

	if err := c.srv.creds.Register(ctx, username, password); err != nil {
		msg := "registration failed"
		switch {
		case errors.Is(err, auth.ErrDuplicateRegistration):
			msg = "registration failed: username already exists"
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrPasswordRequired), errors.Is(err, auth.ErrPasswordTooLong):
			msg = "registration failed: " + err.Error()
		}
		_ = c.reply(protocol.StatusError, msg)
		return "", err
	}
	if err := c.reply(protocol.StatusOK, "registered"); err != nil {
		return "", err
	}
	return normalizedName(username), nil
}

// admit queues the session and blocks until it holds a slot. The caller
// owns the slot on success and tells the client. While queued
// the client is sent its position each time it is woken, and a watcher
// abandons the wait if the client goes away.
func (c *conn) admit(ctx context.Context, sess *session.Session) error {
	waitCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// Queue time is not idle time.
	_ = c.nc.SetReadDeadline(time.Time{})

	// Clients speak only after Admitted, so any input while queued ends the
	// wait; once the watcher returns nothing else would notice a disconnect.
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		err := c.r.AwaitData()
		switch {
		case err == nil:
			cancel(errEarlyData)
		case !isTimeout(err):
			cancel(err)
		}
	}()

	notify := func(position int) {
		c.log.DebugContext(ctx, "session waiting for a slot", logger.Position(position))
		if err := c.reply(protocol.StatusWaiting, fmt.Sprintf("waiting for a free slot, position %d", position)); err != nil {
			cancel(err)
		}
	}
	err := c.srv.gate.Admit(waitCtx, sess.ID, notify)

	// Interrupt the watcher's peek and wait for it before this goroutine
	// reads again; the reader keeps any bytes the peek buffered.
	_ = c.nc.SetReadDeadline(time.Now())
	<-watcherDone
	_ = c.nc.SetReadDeadline(time.Time{})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, admission.ErrControllerClosed):
		_ = c.reply(protocol.StatusClosing, "server is shutting down")
		return err
	case errors.Is(err, admission.ErrAdmissionAbandoned):
		cause := context.Cause(waitCtx)
		if errors.Is(cause, errEarlyData) {
			_ = c.reply(protocol.StatusError, "unexpected data before admission")
		}
		if cause != nil {
			return errors.Join(err, cause)
		}
		return err
	default:
		return err
	}
}

var (
	// errLogout ends the command loop after a logout.
	errLogout = errors.New("logout")

	errEarlyData = errors.New("data received before admission")
)

func (c *conn) serve(ctx context.Context) error {
	for {
		c.armReadDeadline()
		cmd, err := c.r.ReadString()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedString) {
				if err := c.reply(protocol.StatusError, "invalid command"); err != nil {
					return err
				}
				continue
			}
			return err
		}

		start := time.Now()
		switch cmd {
		case protocol.CmdPut:
			err = c.put()
		case protocol.CmdGet:
			err = c.get()
		case protocol.CmdMultiPut:
			err = c.multiPut()
		case protocol.CmdMultiGet:
			err = c.multiGet()
		case protocol.CmdLogout:
			if err := c.reply(protocol.StatusOK, "bye"); err != nil {
				return err
			}
			return errLogout
		default:
			err = c.reply(protocol.StatusError, "invalid command")
		}
		if err != nil {
			return err
		}
		c.log.DebugContext(ctx, "command handled",
			logger.Command(cmd),
			logger.Duration(time.Since(start)),
		)
	}
}

func (c *conn) put() error {
	key, kerr := c.r.ReadString()
	if kerr != nil && !recoverable(kerr) {
		return kerr
	}
	value, verr := c.r.ReadBlob()
	if verr != nil && !recoverable(verr) {
		return c.reject(verr)
	}
	if err := errors.Join(kerr, verr); err != nil {
		return c.reject(err)
	}
	c.srv.store.Put(key, value)
	return c.reply(protocol.StatusOK, "")
}

func (c *conn) get() error {
	key, err := c.r.ReadString()
	if err != nil {
		return c.reject(err)
	}
	value, ok := c.srv.store.Get(key)
	if !ok {
		return c.reply(protocol.StatusNotFound, "key not found")
	}
	if err := c.w.WriteMessage(protocol.StatusOK, ""); err != nil {
		return err
	}
	if err := c.w.WriteBlob(value); err != nil {
		return err
	}
	return c.w.Flush()
}

// multiPut reads the whole batch before applying it so that a bad entry
// leaves the stream aligned and the store untouched.
func (c *conn) multiPut() error {
	n, err := c.r.ReadCount(c.srv.cfg.maxBatchSize)
	if err != nil {
		return c.reject(err)
	}

	pairs := make(map[string][]byte, n)
	var bad error
	for range n {
		key, err := c.r.ReadString()
		if err != nil {
			if !recoverable(err) {
				return c.reject(err)
			}
			bad = errors.Join(bad, err)
		}
		value, err := c.r.ReadBlob()
		if err != nil {
			if !recoverable(err) {
				return c.reject(err)
			}
			bad = errors.Join(bad, err)
			continue
		}
		pairs[key] = value
	}
	if bad != nil {
		return c.reject(bad)
	}

	c.srv.store.MultiPut(pairs)
	return c.reply(protocol.StatusOK, "")
}

func (c *conn) multiGet() error {
	n, err := c.r.ReadCount(c.srv.cfg.maxBatchSize)
	if err != nil {
		return c.reject(err)
	}

	keys := make([]string, 0, n)
	var bad error
	for range n {
		key, err := c.r.ReadString()
		if err != nil {
			if !recoverable(err) {
				return c.reject(err)
			}
			bad = errors.Join(bad, err)
			continue
		}
		keys = append(keys, key)
	}
	if bad != nil {
		return c.reject(bad)
	}

	found := c.srv.store.MultiGet(keys)
	names := slices.Sorted(maps.Keys(found))

	if err := c.w.WriteMessage(protocol.StatusOK, ""); err != nil {
		return err
	}
	if err := c.w.WriteInt32(int32(len(names))); err != nil {
		return err
	}
	for _, k := range names {
		if err := c.w.WriteString(k); err != nil {
			return err
		}
		if err := c.w.WriteBlob(found[k]); err != nil {
			return err
		}
	}
	return c.w.Flush()
}

// reject answers a bad request. Errors that leave the stream aligned are
// reported to the client and the session continues; the rest are reported
// when possible and end the session.
func (c *conn) reject(err error) error {
	switch {
	case recoverable(err):
		return c.reply(protocol.StatusError, describe(err))
	case errors.Is(err, protocol.ErrValueTooLarge), errors.Is(err, protocol.ErrBatchTooLarge):
		_ = c.reply(protocol.StatusError, describe(err))
		return err
	default:
		return err
	}
}

func (c *conn) reply(status protocol.Status, text string) error {
	if err := c.w.WriteMessage(status, text); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *conn) armReadDeadline() {
	if d := c.srv.cfg.idleTimeout; d > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(d))
	}
}

func (c *conn) logEnd(ctx context.Context, msg string, err error) {
	switch {
	case err == nil, errors.Is(err, errLogout):
		c.log.InfoContext(ctx, msg)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		c.log.InfoContext(ctx, msg, slog.String("reason", "client disconnected"))
	case isTimeout(err):
		c.log.InfoContext(ctx, msg, slog.String("reason", "idle timeout"))
	case errors.Is(err, admission.ErrAdmissionAbandoned),
		errors.Is(err, admission.ErrControllerClosed),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrDuplicateRegistration),
		errors.Is(err, auth.ErrTooManyAttempts):
		c.log.DebugContext(ctx, msg, logger.Error(err))
	default:
		c.log.WarnContext(ctx, msg, logger.Error(err))
	}
}

// recoverable reports whether err leaves the input stream aligned on the
// next value, so the session can carry on after an Error reply.
func recoverable(err error) bool {
	return errors.Is(err, protocol.ErrNegativeLength) || errors.Is(err, protocol.ErrMalformedString)
}

func describe(err error) string {
	switch {
	case errors.Is(err, protocol.ErrNegativeLength):
		return "invalid length"
	case errors.Is(err, protocol.ErrMalformedString):
		return "invalid string encoding"
	case errors.Is(err, protocol.ErrValueTooLarge):
		return "value too large"
	case errors.Is(err, protocol.ErrBatchTooLarge):
		return "batch too large"
	default:
		return "bad request"
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func clientHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func normalizedName(username string) string {
	if name, err := auth.NormalizeUsername(username); err == nil {
		return name
	}
	return username
}
