package runware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// DefaultURL is the Runware WebSocket endpoint.
const DefaultURL = "wss://ws-api.runware.ai/v1"

// Transport provides the interface for sending and receiving frames.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, tasks []Task) error
	Receive(ctx context.Context) (*Frame, error)
	Close() error
}

// Dialer opens a Transport to url.
type Dialer func(ctx context.Context, url string) (Transport, error)

// DialOptions configures the WebSocket connection.
type DialOptions struct {
	// HTTPHeader specifies additional HTTP headers to send during handshake.
	HTTPHeader http.Header

	// HTTPClient is the HTTP client used for the handshake.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// ReadLimit caps the size of a single inbound message. Zero means 32MB.
	ReadLimit int64
}

// Dial connects to a Runware server and returns a Transport.
func Dial(ctx context.Context, url string, opts *DialOptions) (Transport, error) {
	dialOpts := &websocket.DialOptions{}
	readLimit := int64(32 * 1024 * 1024) // base64 image payloads get large
	if opts != nil {
		if opts.HTTPHeader != nil {
			dialOpts.HTTPHeader = opts.HTTPHeader.Clone()
		}
		if opts.HTTPClient != nil {
			dialOpts.HTTPClient = opts.HTTPClient
		}
		if opts.ReadLimit > 0 {
			readLimit = opts.ReadLimit
		}
	}

	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: url, Err: err}
	}
	conn.SetReadLimit(readLimit)

	return &wsTransport{conn: conn}, nil
}

// wsTransport implements Transport over WebSocket.
type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Send writes tasks as a single JSON array frame.
func (t *wsTransport) Send(ctx context.Context, tasks []Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	if err := wsjson.Write(ctx, t.conn, tasks); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}

	return nil
}

// Receive reads the next frame. A frame that is not valid JSON yields a
// *FrameError and leaves the connection usable.
func (t *wsTransport) Receive(ctx context.Context) (*Frame, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, &FrameError{Err: err}
	}

	return &frame, nil
}

// Close closes the transport.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	// The close handshake waits on the reader, which takes mu on its error path.
	return t.conn.Close(websocket.StatusNormalClosure, "")
}
