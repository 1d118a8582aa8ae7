package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"mergeq/internal/logging"
	"mergeq/internal/protocol"
	"mergeq/internal/pullrequest"
	"mergeq/internal/queue"
	"mergeq/internal/runner"
)

// ErrAlreadyRunning is returned when another agent holds the socket lock.
var ErrAlreadyRunning = errors.New("another mergeq agent is already running")

const defaultIdleTimeout = 30 * time.Second

// RunnerFactory builds a Runner for one processing run. It fails when the
// processing credential is unavailable.
type RunnerFactory func() (*runner.Runner, error)

// Options configures an Agent.
type Options struct {
	SocketPath string
	Queue      *queue.Queue
	// Interval between scheduled runs. Zero disables the scheduler.
	Interval      time.Duration
	NewRunner     RunnerFactory
	Authenticator Authenticator
	// IdleTimeout bounds how long a connected client may stay silent.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Agent owns the queue and serves clients over a unix socket.
type Agent struct {
	socketPath  string
	queue       *queue.Queue
	interval    time.Duration
	newRunner   RunnerFactory
	auth        Authenticator
	idleTimeout time.Duration
	logger      *slog.Logger

	// runMu serializes runs so a forced run never overlaps a scheduled one.
	runMu sync.Mutex
	group errgroup.Group
}

// New validates opts and builds an Agent.
func New(opts Options) (*Agent, error) {
	if strings.TrimSpace(opts.SocketPath) == "" {
		return nil, errors.New("agent requires a socket path")
	}
	if opts.NewRunner == nil {
		return nil, errors.New("agent requires a runner factory")
	}
	q := opts.Queue
	if q == nil {
		q = queue.New(0)
	}
	auth := opts.Authenticator
	if auth == nil {
		auth = NewPeerCredentials()
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Agent{
		socketPath:  opts.SocketPath,
		queue:       q,
		interval:    opts.Interval,
		newRunner:   opts.NewRunner,
		auth:        auth,
		idleTimeout: idle,
		logger:      logging.NewComponentLogger(logger, "agent"),
	}, nil
}

// Queue exposes the agent's queue.
func (a *Agent) Queue() *queue.Queue {
	return a.queue
}

// Run serves until a client sends Quit or ctx is cancelled. The socket is
// removed and the lock released on every return path, after the scheduler
// and any in-flight runs have finished.
func (a *Agent) Run(ctx context.Context) error {
	lock := flock.New(LockPath(a.socketPath))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire agent lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			a.logger.Warn("failed to release agent lock", logging.Error(err))
		}
	}()

	listener, err := a.listen()
	if err != nil {
		return err
	}
	defer a.removeSocket()

	stopAccept := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stopAccept()

	schedCtx, stopScheduler := context.WithCancel(ctx)
	if a.interval > 0 {
		a.group.Go(func() error {
			a.schedule(schedCtx, ctx)
			return nil
		})
	}

	a.logger.Info("agent listening",
		logging.String(logging.FieldEventType, "agent_start"),
		logging.String("socket", a.socketPath),
		logging.Duration("interval", a.interval),
		logging.Int("queue_limit", a.queue.Limit()),
	)

	serveErr := a.serve(ctx, listener)

	_ = listener.Close()
	stopScheduler()
	_ = a.group.Wait()

	a.logger.Info("agent stopped",
		logging.String(logging.FieldEventType, "agent_stop"),
		logging.Int("queued", a.queue.Len()),
	)
	return serveErr
}

func (a *Agent) listen() (net.Listener, error) {
	// The lock is ours, so anything at the socket path is left over from an
	// agent that did not shut down cleanly.
	if _, err := os.Lstat(a.socketPath); err == nil {
		a.logger.Info("removing stale socket", logging.String("socket", a.socketPath))
		if err := os.Remove(a.socketPath); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	listener, err := net.Listen("unix", a.socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(a.socketPath, 0o600); err != nil {
		_ = listener.Close()
		_ = os.Remove(a.socketPath)
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return listener, nil
}

func (a *Agent) removeSocket() {
	if err := os.Remove(a.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(a.logger, "failed to remove socket", "agent_socket_cleanup_failed",
			logging.String("socket", a.socketPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
			logging.String(logging.FieldImpact, "clients may see a stale socket until the next agent start"),
		)
	}
}

// serve is the sequential accept loop.
func (a *Agent) serve(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.WarnWithContext(a.logger, "accept failed", "agent_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check socket permissions"),
				logging.String(logging.FieldImpact, "a client connection was dropped"),
			)
			continue
		}
		quit := a.handleConn(ctx, conn)
		_ = conn.Close()
		if quit {
			a.logger.Info("quit requested", logging.String(logging.FieldEventType, "agent_quit"))
			return nil
		}
	}
}

// handleConn runs one session and reports whether the client asked the
// agent to quit.
func (a *Agent) handleConn(ctx context.Context, conn net.Conn) bool {
	if err := a.auth.Authenticate(conn); err != nil {
		logging.WarnWithContext(a.logger, "connection rejected", "agent_auth_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "connect as the user running the agent"),
			logging.String(logging.FieldImpact, "the client request was refused"),
		)
		a.reply(conn, protocol.Fail(protocol.Auth()))
		return false
	}

	reader := bufio.NewReader(conn)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(a.idleTimeout))
		req, err := protocol.ReadRequest(reader)
		if err != nil {
			var malformed *protocol.MalformedError
			switch {
			case errors.Is(err, io.EOF):
			case errors.As(err, &malformed):
				a.logger.Warn("malformed request", logging.Error(err), logging.String(logging.FieldEventType, "agent_request_malformed"))
				a.reply(conn, protocol.Fail(protocol.Malformed(malformed.Err.Error())))
			default:
				a.logger.Debug("connection read failed", logging.Error(err))
				a.reply(conn, protocol.Fail(protocol.Io(err.Error())))
			}
			return false
		}
		if req.Protocol != protocol.Version {
			a.logger.Warn("protocol version mismatch",
				logging.String(logging.FieldEventType, "agent_version_mismatch"),
				logging.Int64("client_version", int64(req.Protocol)),
			)
			a.reply(conn, protocol.Fail(protocol.VersionMismatch(protocol.Version)))
			return false
		}

		resp, quit := a.dispatch(ctx, req.Body)
		if !a.reply(conn, resp) {
			return quit
		}
		if quit {
			return true
		}
	}
}

func (a *Agent) reply(conn net.Conn, resp protocol.Response) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(a.idleTimeout))
	if err := protocol.Write(conn, resp); err != nil {
		a.logger.Debug("response write failed", logging.Error(err))
		return false
	}
	return true
}

func (a *Agent) dispatch(ctx context.Context, body protocol.RequestBody) (protocol.Response, bool) {
	switch body.Kind {
	case protocol.KindPush:
		return a.push(body.URL), false
	case protocol.KindPop:
		url := strings.TrimSpace(body.URL)
		removed := a.queue.Pop(url)
		a.logger.Info("pull request popped",
			logging.String(logging.FieldEventType, "queue_pop"),
			logging.String(logging.FieldURL, url),
			logging.Bool("found", removed),
		)
		return protocol.OK(), false
	case protocol.KindClear:
		removed := a.queue.Clear()
		a.logger.Info("queue cleared", logging.String(logging.FieldEventType, "queue_clear"), logging.Int("removed", removed))
		return protocol.OK(), false
	case protocol.KindList:
		return protocol.Items(a.queue.List()), false
	case protocol.KindForceProcess:
		return a.force(ctx), false
	case protocol.KindQuit:
		return protocol.OK(), true
	default:
		return protocol.Fail(protocol.Malformed(fmt.Sprintf("unsupported request %q", body.Kind))), false
	}
}

func (a *Agent) push(raw string) protocol.Response {
	pr, err := pullrequest.Parse(raw)
	if err != nil {
		return protocol.Fail(protocol.Malformed(err.Error()))
	}
	added, err := a.queue.Push(pr)
	if errors.Is(err, queue.ErrFull) {
		return protocol.Fail(protocol.Malformed(fmt.Sprintf("queue is full (limit %d)", a.queue.Limit())))
	}
	if err != nil {
		return protocol.Fail(protocol.Unwrap(err.Error()))
	}
	a.logger.Info("pull request queued",
		logging.String(logging.FieldEventType, "queue_push"),
		logging.String(logging.FieldURL, pr.URL),
		logging.Bool("duplicate", !added),
	)
	return protocol.OK()
}

func (a *Agent) force(ctx context.Context) protocol.Response {
	r, err := a.newRunner()
	if err != nil {
		return protocol.Fail(protocol.Unwrap(err.Error()))
	}
	a.logger.Info("forced run requested",
		logging.String(logging.FieldEventType, "queue_force"),
		logging.String(logging.FieldRunID, r.ID()),
	)
	a.group.Go(func() error {
		a.execute(ctx, r)
		return nil
	})
	return protocol.OK()
}

// schedule triggers a blocking run per tick until schedCtx ends. Runs use
// runCtx so stopping the scheduler does not interrupt one in progress.
func (a *Agent) schedule(schedCtx, runCtx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-schedCtx.Done():
			return
		case <-ticker.C:
			r, err := a.newRunner()
			if err != nil {
				logging.WarnWithContext(a.logger, "scheduled run skipped", "queue_run_skipped",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "export GITHUB_API_TOKEN and restart the agent"),
					logging.String(logging.FieldImpact, "queued pull requests are not processed"),
				)
				continue
			}
			a.execute(runCtx, r)
		}
	}
}

func (a *Agent) execute(ctx context.Context, r *runner.Runner) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	// Errors are logged by the runner; the next run retries.
	_ = r.Run(ctx, a.queue)
}
