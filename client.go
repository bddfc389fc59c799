package runware

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Client issues Runware tasks over a single WebSocket connection.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	apiKey string
	cfg    clientConfig

	registry   *taskRegistry
	dispatcher *dispatcher
	session    *session

	mu sync.Mutex // serializes Start and Stop
}

// New creates a Client. Call Start before issuing tasks.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.finish()

	c := &Client{
		apiKey:   apiKey,
		cfg:      cfg,
		registry: newTaskRegistry(),
	}
	c.dispatcher = &dispatcher{
		registry:  c.registry,
		logger:    cfg.logger,
		onReceive: cfg.onReceive,
	}
	c.session = newSession(&c.cfg, c.dispatcher.Dispatch, c.connectionLost)

	return c
}

// APIKey returns the key the client authenticates with.
func (c *Client) APIKey() string {
	return c.apiKey
}

// State returns the connection state.
func (c *Client) State() SessionState {
	return c.session.State()
}

// Start connects and authenticates. It fails with ErrAlreadyInitialized if
// the client is already started.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State() != StateDisconnected {
		return ErrAlreadyInitialized
	}

	return c.session.Connect(ctx, c.apiKey)
}

// Stop disconnects and fails any tasks still waiting with ErrClosed. It is a
// no-op if the client is not started.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State() == StateDisconnected {
		return nil
	}

	err := c.session.Disconnect(ctx)
	if n := c.registry.FailAll(ErrClosed); n > 0 {
		c.cfg.logger.Debug("failed pending tasks on stop", slog.Int("count", n))
	}
	return err
}

// Submit registers req under a fresh identifier and sends it. The returned
// Future resolves when all expected results have arrived.
func (c *Client) Submit(ctx context.Context, req Request) (*Future, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mode, expected := req.Expected()
	id := uuid.New().String()

	// Register before sending so a fast reply always finds its task.
	fut, err := c.registry.Register(id, mode, expected)
	if err != nil {
		return nil, err
	}

	if err := c.session.Send(ctx, req.Task(id)); err != nil {
		c.registry.Remove(id)
		return nil, &SendError{Op: string(req.Type()), Err: err}
	}

	return fut, nil
}

// Do submits req and waits for its results. If ctx ends first the task is
// abandoned and ctx.Err() is returned.
func (c *Client) Do(ctx context.Context, req Request) ([]Result, error) {
	fut, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	results, err := fut.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.registry.Remove(fut.ID())
		}
		return nil, err
	}
	return results, nil
}

// ImageInference generates images. One result is returned per requested image.
func (c *Client) ImageInference(ctx context.Context, req ImageInferenceRequest) ([]ImageResult, error) {
	results, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeResults[ImageResult](req.Type(), results)
}

// Upscale enlarges an image.
func (c *Client) Upscale(ctx context.Context, req UpscaleRequest) (*ImageResult, error) {
	return doSingle[ImageResult](ctx, c, req)
}

// RemoveBackground removes the background of an image.
func (c *Client) RemoveBackground(ctx context.Context, req RemoveBackgroundRequest) (*ImageResult, error) {
	return doSingle[ImageResult](ctx, c, req)
}

// ImageToText captions an image.
func (c *Client) ImageToText(ctx context.Context, req ImageToTextRequest) (*TextResult, error) {
	return doSingle[TextResult](ctx, c, req)
}

// PromptEnhance returns enriched variants of a prompt, one per requested version.
func (c *Client) PromptEnhance(ctx context.Context, req PromptEnhanceRequest) ([]TextResult, error) {
	results, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeResults[TextResult](req.Type(), results)
}

func doSingle[T any, PT resultModel[T]](ctx context.Context, c *Client, req Request) (*T, error) {
	results, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := decodeResults[T, PT](req.Type(), results)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// connectionLost unblocks every waiting caller after the transport fails.
func (c *Client) connectionLost(err error) {
	if n := c.registry.FailAll(err); n > 0 {
		c.cfg.logger.Warn("failed pending tasks", slog.Int("count", n), slog.Any("error", err))
	}
}
