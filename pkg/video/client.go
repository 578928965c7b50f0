// Package video consumes the Pi camera's MJPEG-over-HTTP stream and
// caches the most recent frame for the inference loop.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/visionaid/go-visionaid/internal/log"
)

var (
	// ErrNoFrame is returned before the first frame has arrived.
	ErrNoFrame = errors.New("video: no frame received yet")
	// ErrStale is returned when the cached frame is older than the
	// staleness window, typically because the stream dropped.
	ErrStale = errors.New("video: cached frame is stale")
)

// DefaultStaleness is how old a cached frame may be before captures
// fail. The inference loop runs every few seconds, so a frame older
// than this means the stream is dead, not just slow.
const DefaultStaleness = 10 * time.Second

// reconnectWait is the delay before re-dialing a dropped stream.
const reconnectWait = 2 * time.Second

// Client reads an MJPEG stream and keeps the latest JPEG frame.
type Client struct {
	streamURL string
	staleness time.Duration
	http      *http.Client

	mu         sync.RWMutex
	latest     []byte
	receivedAt time.Time
	frameReady chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithStaleness overrides the frame staleness window.
func WithStaleness(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.staleness = d
		}
	}
}

// WithHTTPClient overrides the HTTP client used to dial the stream.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for the MJPEG stream at streamURL.
func NewClient(streamURL string, opts ...Option) *Client {
	c := &Client{
		streamURL:  streamURL,
		staleness:  DefaultStaleness,
		http:       &http.Client{}, // no timeout: the stream is long-lived
		frameReady: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run dials the stream and keeps reading frames until the context is
// cancelled, re-dialing after drops.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.stream(ctx); err != nil && ctx.Err() == nil {
			log.Warn("video stream dropped, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectWait):
		}
	}
}

// stream reads one connection's worth of frames.
func (c *Client) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned %d", resp.StatusCode)
	}

	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("parse stream content type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return errors.New("stream content type has no boundary")
	}

	mr := multipart.NewReader(resp.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read stream part: %w", err)
		}
		frame, err := readFrame(part)
		part.Close()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if len(frame) == 0 {
			continue
		}
		c.store(frame)
	}
}

// readFrame reads one JPEG from a stream part. The Pi's feed sends a
// Content-Length per part, which lets us take the frame as soon as its
// bytes arrive; waiting for the next boundary would leave the cache one
// frame behind a paused stream. Parts without the header fall back to
// boundary-delimited reads.
func readFrame(part *multipart.Part) ([]byte, error) {
	if cl := part.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad frame content length %q", cl)
		}
		frame := make([]byte, n)
		if _, err := io.ReadFull(part, frame); err != nil {
			return nil, err
		}
		return frame, nil
	}
	return io.ReadAll(part)
}

func (c *Client) store(frame []byte) {
	c.mu.Lock()
	c.latest = frame
	c.receivedAt = time.Now()
	c.mu.Unlock()

	select {
	case c.frameReady <- struct{}{}:
	default:
	}
}

// CaptureJPEG returns a copy of the most recent frame. It fails with
// ErrNoFrame before the first frame and ErrStale when the cached
// frame has outlived the staleness window.
func (c *Client) CaptureJPEG() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return nil, ErrNoFrame
	}
	if time.Since(c.receivedAt) > c.staleness {
		return nil, ErrStale
	}
	frame := make([]byte, len(c.latest))
	copy(frame, c.latest)
	return frame, nil
}

// WaitFrame blocks until a new frame arrives or the context is
// cancelled. Useful at startup before the first inference cycle.
func (c *Client) WaitFrame(ctx context.Context) error {
	if _, err := c.CaptureJPEG(); err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.frameReady:
		return nil
	}
}
