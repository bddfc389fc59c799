package runware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SessionState represents the state of the connection session.
type SessionState string

const (
	StateDisconnected   SessionState = "disconnected"
	StateConnecting     SessionState = "connecting"
	StateAuthenticating SessionState = "authenticating"
	StateActive         SessionState = "active"
	StateClosing        SessionState = "closing"
)

// DefaultHeartbeatInterval is how often a ping task is sent while connected.
const DefaultHeartbeatInterval = 100 * time.Second

// connection is one open transport plus the goroutines serving it.
type connection struct {
	transport Transport
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// session owns the transport and drives the connect, authenticate,
// listen/heartbeat and disconnect lifecycle.
type session struct {
	url       string
	dial      Dialer
	heartbeat time.Duration
	logger    *slog.Logger
	onSend    func([]Task)

	// handle receives every decoded frame in arrival order.
	handle func(*Frame)
	// onLost is called once when the transport fails underneath an active session.
	onLost func(error)

	lifecycle sync.Mutex // serializes connect and disconnect

	mu    sync.Mutex
	state SessionState
	conn  *connection
	last  *connection
}

func newSession(cfg *clientConfig, handle func(*Frame), onLost func(error)) *session {
	return &session{
		url:       cfg.url,
		dial:      cfg.dialer,
		heartbeat: cfg.heartbeat,
		logger:    cfg.logger,
		onSend:    cfg.onSend,
		handle:    handle,
		onLost:    onLost,
		state:     StateDisconnected,
	}
}

// State returns the current session state.
func (s *session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Connect opens the transport, authenticates and starts the listener and
// heartbeat. It is a no-op when already active.
func (s *session) Connect(ctx context.Context, apiKey string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	switch s.state {
	case StateActive:
		s.mu.Unlock()
		return nil
	case StateDisconnected:
	default:
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.state = StateConnecting
	last := s.last
	s.mu.Unlock()

	// Goroutines of a connection that died on its own may still be unwinding.
	if last != nil {
		last.wg.Wait()
	}

	transport, err := s.dial(ctx, s.url)
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}

	s.setState(StateAuthenticating)

	// Authentication is fire-and-forget; the server reports a bad key as an error frame.
	if err := s.write(ctx, transport, NewAuthenticationTask(apiKey)); err != nil {
		_ = transport.Close()
		s.setState(StateDisconnected)
		return &SendError{Op: string(TaskAuthentication), Err: err}
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &connection{transport: transport, cancel: cancel}

	s.mu.Lock()
	s.conn = c
	s.last = c
	s.state = StateActive
	s.mu.Unlock()

	c.wg.Add(2)
	go s.listen(connCtx, c)
	go s.pulse(connCtx, c)

	s.logger.Info("connected", slog.String("url", s.url))

	return nil
}

// Send writes tasks as one frame. It fails with ErrNotConnected when no
// transport is open.
func (s *session) Send(ctx context.Context, tasks ...Task) error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()

	if c == nil {
		return ErrNotConnected
	}

	return s.write(ctx, c.transport, tasks...)
}

// Disconnect closes the transport and waits for the listener and heartbeat
// to stop. It does not fail pending tasks.
func (s *session) Disconnect(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	c := s.conn
	if c == nil {
		s.state = StateDisconnected
		s.mu.Unlock()
		return nil
	}
	s.conn = nil
	s.state = StateClosing
	s.mu.Unlock()

	c.cancel()
	closeErr := c.transport.Close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.setState(StateDisconnected)
	s.logger.Info("disconnected", slog.String("url", s.url))

	if closeErr != nil {
		return &ConnectionError{Op: "close", URL: s.url, Err: closeErr}
	}
	return err
}

// write sends tasks on transport with logging and the send hook.
func (s *session) write(ctx context.Context, transport Transport, tasks ...Task) error {
	if s.onSend != nil {
		s.onSend(tasks)
	}

	for _, task := range tasks {
		h := task.Header()
		s.logger.Debug("sending task",
			slog.String("task_type", string(h.TaskType)),
			slog.String("task_uuid", h.TaskUUID),
		)
	}

	return transport.Send(ctx, tasks)
}

// listen reads frames until the transport fails or the connection is cancelled.
func (s *session) listen(ctx context.Context, c *connection) {
	defer c.wg.Done()

	for {
		frame, err := c.transport.Receive(ctx)
		if err != nil {
			var frameErr *FrameError
			if errors.As(err, &frameErr) {
				s.logger.Warn("dropping malformed frame", slog.Any("error", err))
				continue
			}
			s.lost(c, err)
			return
		}

		s.handle(frame)
	}
}

// lost tears down c after a transport failure. It does nothing if c was
// already detached by Disconnect.
func (s *session) lost(c *connection, cause error) {
	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	c.cancel()
	_ = c.transport.Close()

	err := &ConnectionError{Op: "listen", URL: s.url, Err: fmt.Errorf("%w: %w", ErrConnectionLost, cause)}
	s.logger.Warn("connection lost", slog.Any("error", cause))

	if s.onLost != nil {
		s.onLost(err)
	}
}

// pulse sends a ping task immediately and then every heartbeat interval.
// Pongs are not tracked.
func (s *session) pulse(ctx context.Context, c *connection) {
	defer c.wg.Done()

	if s.heartbeat <= 0 {
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		if err := s.write(ctx, c.transport, NewPingTask()); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("heartbeat failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
