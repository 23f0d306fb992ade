package stt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxhollow/holo/pkg/audioio"
)

// segment is one recognition message from the service.
type segment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Client streams PCM16 frames to an STT service over WebSocket and
// surfaces finalized transcripts.
//
// The connection is supervised in a background goroutine. While the
// link is down the client drops captured frames and keeps retrying with
// exponential backoff; transcript sequence numbers continue across
// reconnects.
type Client struct {
	config *Config
	logger *slog.Logger

	frames      <-chan audioio.Frame
	transcripts chan Transcript

	// seq is only touched by the supervisor goroutine.
	seq uint64

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClient creates an STT client reading audio from frames.
func NewClient(frames <-chan audioio.Frame, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config:      cfg,
		logger:      cfg.Logger.With("component", "stt.client"),
		frames:      frames,
		transcripts: make(chan Transcript, cfg.QueueSize),
		done:        make(chan struct{}),
	}, nil
}

// Start connects and begins streaming. The client runs until the
// context is cancelled or Close is called.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
	return nil
}

// Transcripts returns the channel of finalized transcripts.
func (c *Client) Transcripts() <-chan Transcript {
	return c.transcripts
}

// Close stops the client and closes the transcript channel.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	cancel := c.cancel
	c.mu.Unlock()

	if started {
		cancel()
		<-c.done
	} else {
		close(c.transcripts)
	}
	return nil
}

// run supervises the connection, reconnecting with exponential backoff.
// Frames captured while the link is down are dropped so the pipeline
// never blocks on an outage.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.transcripts)

	delay := c.config.ReconnectBaseDelay

	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("dial failed, retrying",
				"url", c.config.URL,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.config.ReconnectMaxDelay {
				delay = c.config.ReconnectMaxDelay
			}
			continue
		}

		delay = c.config.ReconnectBaseDelay
		c.session(ctx, conn)

		if ctx.Err() != nil {
			return
		}
		c.logger.Info("connection lost, reconnecting", "url", c.config.URL)
	}
}

// dial establishes the WebSocket connection.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return nil, &ConnectionError{URL: c.config.URL, Err: err}
	}
	c.logger.Info("connected", "url", c.config.URL, "sample_rate", c.config.SampleRate)
	return conn, nil
}

// session runs one connected session: a writer pumping audio frames out
// and a reader collecting recognition segments. Returns when either
// side fails or the context is cancelled.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	// Unblocks a reader stuck in ReadMessage when the client shuts down.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// The writer runs on a per-session context so the reader can end the
	// session without waiting for a frame or the keepalive tick.
	sctx, endSession := context.WithCancel(ctx)
	defer endSession()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(sctx, conn)
	}()

	c.readLoop(ctx, conn)

	// Wake the writer out of its select and unblock an in-flight write.
	endSession()
	conn.Close()
	<-writerDone
}

// writeLoop forwards captured frames as binary messages and sends
// periodic pings.
func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("keepalive ping failed", "error", err)
				return
			}

		case frame, ok := <-c.frames:
			if !ok {
				// Capture stopped. The reader keeps collecting trailing
				// segments until the connection closes.
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame.Bytes()); err != nil {
				c.logger.Warn("frame write failed", "error", err)
				return
			}
		}
	}
}

// readLoop reads recognition segments until the connection fails.
// Interim segments are discarded; final segments become transcripts.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil &&
				websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}

		var seg segment
		if err := json.Unmarshal(message, &seg); err != nil {
			c.logger.Warn("malformed segment", "error", err)
			continue
		}

		text := strings.TrimSpace(seg.Text)
		if !seg.Final || text == "" {
			continue
		}

		c.seq++
		t := Transcript{
			Seq:        c.seq,
			Text:       text,
			CapturedAt: time.Now(),
		}
		c.logger.Debug("transcript", "seq", t.Seq, "text", t.Text)

		select {
		case c.transcripts <- t:
		case <-ctx.Done():
			return
		}
	}
}

// Verify Client implements Source at compile time.
var _ Source = (*Client)(nil)
